package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zeu5/snake-rl/types"
)

// Config selects and parametrizes an adapter
type Config struct {
	Name string            `mapstructure:"name"`
	Args map[string]string `mapstructure:"args"`
}

// NewAdapter builds the adapter named in the configuration
func NewAdapter(ctx context.Context, cfg Config) (Adapter, error) {
	switch strings.ToLower(cfg.Name) {
	case "", "dict", "memory":
		return NewDictAdapter(), nil
	case "redis":
		opts := RedisOptions{
			Address:  cfg.arg("address", DefaultRedisAddress),
			Password: cfg.arg("password", ""),
			Prefix:   cfg.arg("prefix", DefaultRedisPrefix),
		}
		if db := cfg.arg("db", ""); db != "" {
			n, err := strconv.Atoi(db)
			if err != nil {
				return nil, fmt.Errorf("%w: redis db %q", types.ErrConfiguration, db)
			}
			opts.DB = n
		}
		return NewRedisAdapter(ctx, opts)
	case "sqlite":
		return NewSQLiteAdapter(ctx, cfg.arg("path", ""))
	default:
		return nil, fmt.Errorf("%w: unsupported storage adapter %q", types.ErrConfiguration, cfg.Name)
	}
}

// Namespace identifies the data an adapter built from c reads and writes.
// Two adapters with the same non-empty namespace share their contents, an
// empty namespace is private to the adapter.
func (c Config) Namespace() string {
	switch strings.ToLower(c.Name) {
	case "redis":
		db := c.arg("db", "")
		if db == "" {
			db = "0"
		}
		return fmt.Sprintf("redis://%s/%s/%s", c.arg("address", DefaultRedisAddress), db, redisPrefix(c.arg("prefix", "")))
	case "sqlite":
		path := c.arg("path", "")
		if path == "" || path == ":memory:" {
			return ""
		}
		return "sqlite://" + filepath.Clean(path)
	}
	return ""
}

func (c Config) arg(name, def string) string {
	if v, ok := c.Args[name]; ok {
		return v
	}
	return def
}
