// Package commands wires the command line interface.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	configFile   string
	memory       string
	memoriesDir  string
	worldsDir    string
	worlds       []string
	episodes     int
	cycles       int
	learning     float64
	discount     float64
	rewardModel  string
	epsilon      string
	seed         int64
	statsDir     string
	noStats      bool
	plot         bool
	verbose      bool
	tableName    string
	delay        int
	precision    int32
	maxStarving  int
	storageName  string
	storageArgs  map[string]string
	printRefresh int
)

func GetRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:          "snake-rl",
		Short:        "Train and run a tabular Q-learning snake",
		SilenceUsage: true,
	}
	flags := rootCommand.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "YAML or JSON run configuration, flags override its values")
	flags.StringVarP(&memory, "memory", "m", "", "Memory file name or path (a fresh name is generated when training)")
	flags.StringVar(&memoriesDir, "memories-dir", "memories", "Folder of memory files given by name")
	flags.StringVar(&worldsDir, "worlds-dir", "worlds", "Folder of world definitions")
	flags.StringSliceVarP(&worlds, "world", "w", nil, "Worlds to play in order (default [default])")
	flags.IntVarP(&episodes, "episodes", "e", 0, "Number of episodes per world and cycle (default 100)")
	flags.IntVar(&cycles, "cycles", 0, "Number of cycles, 0 or less repeats until interrupted (default 1)")
	flags.Float64Var(&learning, "learn", 0, "Learning rate (default 0.75)")
	flags.Float64Var(&discount, "discount", 0, "Discount factor (default 0.9)")
	flags.StringVar(&rewardModel, "reward", "", "Reward model: default or distance")
	flags.StringVar(&epsilon, "epsilon", "", "Exploration probability or schedule: default, linear")
	flags.Int64Var(&seed, "seed", 0, "Random seed, 0 uses the current time")
	flags.StringVar(&statsDir, "stats-dir", "stats", "Folder of the exported statistics")
	flags.BoolVar(&noStats, "no-stats", false, "Do not export statistics")
	flags.BoolVar(&plot, "plot", false, "Plot the cycle statistics to a PNG chart")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	flags.StringVar(&tableName, "table", "", "Memory table: single or double")
	flags.IntVar(&delay, "delay", 0, "Updates between double table merges (default 10)")
	flags.Int32Var(&precision, "precision", 0, "Decimal places of stored weights, negative keeps them exact (default 16)")
	flags.IntVar(&maxStarving, "max-starving", 0, "Steps without a capture before the episode ends (default 100)")
	flags.StringVar(&storageName, "storage", "", "Storage adapter of the memory table: dict, redis or sqlite")
	flags.StringToStringVar(&storageArgs, "storage-arg", nil, "Storage adapter arguments, e.g. address=localhost:6379,prefix=snake")
	flags.IntVar(&printRefresh, "refresh", 200, "Milliseconds between progress refreshes")

	// adding the subcommands here
	rootCommand.AddCommand(TrainCommand())
	rootCommand.AddCommand(RunCommand())
	rootCommand.AddCommand(ExploreCommand())
	return rootCommand
}
