// Package config loads run configurations from YAML or JSON files.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/zeu5/snake-rl/storage"
	"github.com/zeu5/snake-rl/types"
)

const (
	DefaultLearning    = 0.75
	DefaultDiscount    = 0.9
	DefaultReward      = "default"
	DefaultWorld       = "default"
	DefaultEpisodes    = 100
	DefaultCycles      = 1
	DefaultMaxStarving = 100
	DefaultDelay       = 10
	DefaultTable       = "single"
	DefaultPrecision   = 16
)

type MemoryTable struct {
	Name  string `mapstructure:"name"`
	Delay int    `mapstructure:"delay"`
	// Precision is the number of decimal places weights are rounded to, negative keeps them exact
	Precision int32            `mapstructure:"precision"`
	Adapters  []storage.Config `mapstructure:"adapters"`
}

type Agent struct {
	Learning float64 `mapstructure:"learning"`
	Discount float64 `mapstructure:"discount"`
}

type Environment struct {
	RewardModel string `mapstructure:"reward_model"`
	MaxStarving int    `mapstructure:"max_starving"`
}

type World struct {
	Name     string `mapstructure:"name"`
	Episodes int    `mapstructure:"episodes"`
}

// Config of a training or evaluation session
type Config struct {
	Name string `mapstructure:"name"`
	// Cycles below 1 repeat until interrupted
	Cycles int `mapstructure:"cycles"`
	// Epsilon is a probability or the name of a schedule
	Epsilon     string      `mapstructure:"epsilon"`
	MemoryTable MemoryTable `mapstructure:"memory_table"`
	Agent       Agent       `mapstructure:"agent"`
	Environment Environment `mapstructure:"environment"`
	Worlds      []World     `mapstructure:"worlds"`
}

func Default() *Config {
	return &Config{
		Cycles:  DefaultCycles,
		Epsilon: "default",
		MemoryTable: MemoryTable{
			Name:      DefaultTable,
			Delay:     DefaultDelay,
			Precision: DefaultPrecision,
		},
		Agent: Agent{
			Learning: DefaultLearning,
			Discount: DefaultDiscount,
		},
		Environment: Environment{
			RewardModel: DefaultReward,
			MaxStarving: DefaultMaxStarving,
		},
		Worlds: []World{{Name: DefaultWorld, Episodes: DefaultEpisodes}},
	}
}

func setDefaults(vp *viper.Viper) {
	d := Default()
	vp.SetDefault("cycles", d.Cycles)
	vp.SetDefault("epsilon", d.Epsilon)
	vp.SetDefault("memory_table.name", d.MemoryTable.Name)
	vp.SetDefault("memory_table.delay", d.MemoryTable.Delay)
	vp.SetDefault("memory_table.precision", d.MemoryTable.Precision)
	vp.SetDefault("agent.learning", d.Agent.Learning)
	vp.SetDefault("agent.discount", d.Agent.Discount)
	vp.SetDefault("environment.reward_model", d.Environment.RewardModel)
	vp.SetDefault("environment.max_starving", d.Environment.MaxStarving)
}

// FromFile reads a configuration file, the format follows the file extension
func FromFile(path string) (*Config, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "" {
		vp.SetConfigType("yaml")
	}
	setDefaults(vp)
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", types.ErrConfiguration, path, err)
	}

	c := &Config{}
	if err := vp.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", types.ErrConfiguration, path, err)
	}
	if len(c.Worlds) == 0 {
		c.Worlds = Default().Worlds
	}
	for i := range c.Worlds {
		if c.Worlds[i].Episodes == 0 {
			c.Worlds[i].Episodes = DefaultEpisodes
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Agent.Learning < 0 || c.Agent.Learning > 1 {
		return fmt.Errorf("%w: learning rate %v out of [0, 1]", types.ErrConfiguration, c.Agent.Learning)
	}
	if c.Agent.Discount < 0 || c.Agent.Discount > 1 {
		return fmt.Errorf("%w: discount factor %v out of [0, 1]", types.ErrConfiguration, c.Agent.Discount)
	}
	if c.MemoryTable.Delay < 1 {
		return fmt.Errorf("%w: memory table delay must be positive", types.ErrConfiguration)
	}
	if c.Environment.MaxStarving < 1 {
		return fmt.Errorf("%w: max starving must be positive", types.ErrConfiguration)
	}
	if len(c.Worlds) == 0 {
		return fmt.Errorf("%w: no worlds configured", types.ErrConfiguration)
	}
	for _, w := range c.Worlds {
		if w.Name == "" || w.Episodes < 1 {
			return fmt.Errorf("%w: world %q with %d episodes", types.ErrConfiguration, w.Name, w.Episodes)
		}
	}
	if _, err := types.ParseEpsilon(c.Epsilon); err != nil {
		return err
	}
	if adapters := c.TableAdapters(); len(adapters) > 1 {
		// merging clears the hidden table, it must not be the primary one
		if ns := adapters[0].Namespace(); ns != "" && ns == adapters[1].Namespace() {
			return fmt.Errorf("%w: primary and hidden tables share %s", types.ErrConfiguration, ns)
		}
	}
	return nil
}

// TableAdapters returns the adapter configurations, completing them for the table kind.
// A double table without explicit adapters keeps both tables in memory.
func (c *Config) TableAdapters() []storage.Config {
	adapters := append([]storage.Config(nil), c.MemoryTable.Adapters...)
	want := 1
	if strings.EqualFold(c.MemoryTable.Name, "double") {
		want = 2
	}
	for len(adapters) < want {
		adapters = append(adapters, storage.Config{Name: "dict"})
	}
	return adapters
}
