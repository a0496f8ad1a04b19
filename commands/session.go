package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/zeu5/snake-rl/experiment"
	"github.com/zeu5/snake-rl/policies"
	"github.com/zeu5/snake-rl/snake"
	"github.com/zeu5/snake-rl/types"
)

func TrainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Train the memory over the configured worlds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, done := interruptible(cmd.Context())
			defer done()
			return runSession(ctx, cmd, true)
		},
	}
}

func RunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Play with a trained memory without learning",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, done := interruptible(cmd.Context())
			defer done()
			return runSession(ctx, cmd, false)
		},
	}
}

func runSession(ctx context.Context, cmd *cobra.Command, training bool) (err error) {
	logger := newLogger()
	c, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	path, err := memoryPath(memory, training)
	if err != nil {
		return err
	}
	epsilonFunc, err := types.ParseEpsilon(c.Epsilon)
	if err != nil {
		return err
	}
	reward, err := snake.NewRewardModel(c.Environment.RewardModel)
	if err != nil {
		return err
	}
	worldRuns, err := loadWorlds(c)
	if err != nil {
		return err
	}

	rng := newRand()
	table, closeTable, err := newTable(ctx, c, rng)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, closeTable())
	}()

	lr, df := c.Agent.Learning, c.Agent.Discount
	if !training {
		lr, df = 0, 0
	}
	agent, err := policies.NewAgent(lr, df, table, rng)
	if err != nil {
		return err
	}

	name := c.Name
	if name == "" {
		name = memoryName(path)
	}
	sessionConfig := &experiment.SessionConfig{
		Name:        name,
		Training:    training,
		Cycles:      c.Cycles,
		Epsilon:     epsilonFunc,
		Worlds:      worldRuns,
		MaxStarving: c.Environment.MaxStarving,
		MemoryPath:  path,
		Plot:        plot,
	}
	if !noStats {
		sessionConfig.StatsDir = filepath.Join(statsDir, name)
	}
	session := experiment.NewSession(sessionConfig, agent, reward, rng, logger)
	if err := session.LoadMemory(ctx); err != nil {
		return err
	}

	logger.Info("session started", "name", name, "training", training, "memory", path,
		"table", c.MemoryTable.Name, "cycles", c.Cycles, "worlds", len(worldRuns), "epsilon", c.Epsilon)
	start := time.Now()
	printer := experiment.NewTerminalPrinter(session.Output(), os.Stdout, time.Duration(printRefresh)*time.Millisecond)
	printer.Start(ctx)
	summary, err := session.Run(ctx)
	printer.Stop()
	printSummary(os.Stdout, summary, time.Since(start))
	return err
}

func printSummary(out io.Writer, s experiment.Summary, elapsed time.Duration) {
	status := "completed"
	if s.Aborted {
		status = "interrupted"
	}
	fmt.Fprintf(out, "Session %s after %s\n", status, elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "Cycles: %s, Episodes: %s, Steps: %s\n",
		humanize.Comma(int64(s.Cycles)), humanize.Comma(int64(s.Episodes)), humanize.Comma(int64(s.Steps)))
	if s.Episodes == 0 {
		return
	}
	fmt.Fprintf(out, "Wins: %s (%s%%), Loses: %s, Starves: %s\n",
		humanize.Comma(int64(s.Wins)), humanize.FormatFloat("#.##", 100*float64(s.Wins)/float64(s.Episodes)),
		humanize.Comma(int64(s.Loses)), humanize.Comma(int64(s.Starves)))
}
