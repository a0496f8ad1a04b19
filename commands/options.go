package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/zeu5/snake-rl/config"
	"github.com/zeu5/snake-rl/experiment"
	"github.com/zeu5/snake-rl/policies"
	"github.com/zeu5/snake-rl/snake"
	"github.com/zeu5/snake-rl/storage"
	"github.com/zeu5/snake-rl/types"
	"golang.org/x/exp/rand"
)

// resolveConfig reads the configuration file, if any, and applies the flags explicitly set
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	c := config.Default()
	if configFile != "" {
		var err error
		if c, err = config.FromFile(configFile); err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("cycles") {
		c.Cycles = cycles
	}
	if flags.Changed("epsilon") {
		c.Epsilon = epsilon
	}
	if flags.Changed("learn") {
		c.Agent.Learning = learning
	}
	if flags.Changed("discount") {
		c.Agent.Discount = discount
	}
	if flags.Changed("reward") {
		c.Environment.RewardModel = rewardModel
	}
	if flags.Changed("max-starving") {
		c.Environment.MaxStarving = maxStarving
	}
	if flags.Changed("table") {
		c.MemoryTable.Name = tableName
	}
	if flags.Changed("delay") {
		c.MemoryTable.Delay = delay
	}
	if flags.Changed("precision") {
		c.MemoryTable.Precision = precision
	}
	if flags.Changed("storage") {
		c.MemoryTable.Adapters = []storage.Config{{Name: storageName, Args: storageArgs}}
		if strings.EqualFold(c.MemoryTable.Name, "double") {
			primary, hidden := splitArgs(storageName, storageArgs)
			c.MemoryTable.Adapters = []storage.Config{
				{Name: storageName, Args: primary},
				{Name: storageName, Args: hidden},
			}
		}
	}
	if flags.Changed("world") {
		c.Worlds = make([]config.World, 0, len(worlds))
		for _, name := range worlds {
			c.Worlds = append(c.Worlds, config.World{Name: name, Episodes: config.DefaultEpisodes})
		}
	}
	if flags.Changed("episodes") {
		for i := range c.Worlds {
			c.Worlds[i].Episodes = episodes
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// splitArgs derives distinct adapter arguments for the two tables of a double table
func splitArgs(name string, args map[string]string) (primary, hidden map[string]string) {
	primary = make(map[string]string, len(args)+1)
	hidden = make(map[string]string, len(args)+1)
	for k, v := range args {
		primary[k] = v
		hidden[k] = v
	}
	switch strings.ToLower(name) {
	case "redis":
		prefix := args["prefix"]
		if prefix == "" {
			prefix = storage.DefaultRedisPrefix
		}
		primary["prefix"] = prefix + "primary:"
		hidden["prefix"] = prefix + "hidden:"
	case "sqlite":
		if p := args["path"]; p != "" {
			hidden["path"] = strings.TrimSuffix(p, filepath.Ext(p)) + "-hidden" + filepath.Ext(p)
		}
	}
	return primary, hidden
}

// memoryPath resolves a memory name into a file path. Names without a folder live in memoriesDir.
func memoryPath(name string, generate bool) (string, error) {
	if name == "" {
		if !generate {
			return "", fmt.Errorf("%w: a memory is required", types.ErrConfiguration)
		}
		name = "memory-" + uuid.NewString()
	}
	if filepath.Ext(name) == "" {
		name += ".json"
	}
	if filepath.Base(name) == name {
		name = filepath.Join(memoriesDir, name)
	}
	return name, nil
}

func memoryName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newRand() *rand.Rand {
	s := uint64(seed)
	if seed == 0 {
		s = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewSource(s))
}

func loadWorld(name string) (*snake.World, error) {
	path := name
	if filepath.Ext(path) == "" {
		path = filepath.Join(worldsDir, name+".json")
	}
	return snake.LoadWorld(path)
}

func loadWorlds(c *config.Config) ([]experiment.WorldRun, error) {
	runs := make([]experiment.WorldRun, 0, len(c.Worlds))
	for _, w := range c.Worlds {
		world, err := loadWorld(w.Name)
		if err != nil {
			return nil, err
		}
		runs = append(runs, experiment.WorldRun{World: world, Episodes: w.Episodes})
	}
	return runs, nil
}

// newTable builds the configured memory table. The returned closer releases its adapters.
func newTable(ctx context.Context, c *config.Config, rng *rand.Rand) (policies.Table, func() error, error) {
	adapters := make([]storage.Adapter, 0)
	closer := func() error {
		var errs error
		for _, a := range adapters {
			errs = errors.Join(errs, storage.CloseIfSupported(a))
		}
		return errs
	}
	for _, cfg := range c.TableAdapters() {
		a, err := storage.NewAdapter(ctx, cfg)
		if err != nil {
			return nil, nil, errors.Join(err, closer())
		}
		adapters = append(adapters, a)
	}
	table, err := policies.NewTable(c.MemoryTable.Name, snake.Actions, adapters, c.MemoryTable.Delay, rng)
	if err != nil {
		return nil, nil, errors.Join(err, closer())
	}
	table.SetPrecision(c.MemoryTable.Precision)
	return table, closer, nil
}
