package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/zeu5/snake-rl/types"
)

const (
	DefaultRedisAddress = "localhost:6379"
	// DefaultRedisPrefix keeps a table from claiming the whole database
	DefaultRedisPrefix = "snake:"
)

type RedisOptions struct {
	Address  string
	Password string
	DB       int
	// Prefix namespaces the keys of one table inside a shared server, empty means DefaultRedisPrefix
	Prefix string
}

// RedisAdapter stores weights as decimal strings in a redis server
type RedisAdapter struct {
	client *redis.Client
	prefix string
}

var _ Adapter = &RedisAdapter{}

// NewRedisAdapter connects to the server and checks it is reachable
func NewRedisAdapter(ctx context.Context, opts RedisOptions) (*RedisAdapter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Address, err)
	}
	return NewRedisAdapterFromClient(client, opts.Prefix), nil
}

func NewRedisAdapterFromClient(client *redis.Client, prefix string) *RedisAdapter {
	return &RedisAdapter{
		client: client,
		prefix: redisPrefix(prefix),
	}
}

func redisPrefix(prefix string) string {
	if prefix == "" {
		return DefaultRedisPrefix
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return prefix
}

func (r *RedisAdapter) Prefix() string {
	return r.prefix
}

func (r *RedisAdapter) key(k string) string {
	return r.prefix + k
}

func (r *RedisAdapter) Get(ctx context.Context, key string) (types.Weight, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return decimal.Zero, err
	}
	w, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrCorruptFormat, key, err)
	}
	return w, nil
}

func (r *RedisAdapter) Set(ctx context.Context, key string, weight types.Weight) error {
	return r.client.Set(ctx, r.key(key), weight.String(), 0).Err()
}

// SetAll uses a single MSET, which redis applies atomically
func (r *RedisAdapter) SetAll(ctx context.Context, entries map[string]types.Weight) error {
	if len(entries) == 0 {
		return nil
	}
	return r.client.MSet(ctx, r.pairs(entries)...).Err()
}

func (r *RedisAdapter) pairs(entries map[string]types.Weight) []interface{} {
	pairs := make([]interface{}, 0, 2*len(entries))
	for k, w := range entries {
		pairs = append(pairs, r.key(k), w.String())
	}
	return pairs
}

func (r *RedisAdapter) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisAdapter) Keys(ctx context.Context) ([]string, error) {
	keys := make([]string, 0)
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 512).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *RedisAdapter) Remove(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *RedisAdapter) Persist(ctx context.Context, path string) error {
	entries, err := Snapshot(ctx, r)
	if err != nil {
		return err
	}
	return WriteSnapshot(path, entries)
}

func (r *RedisAdapter) Load(ctx context.Context, path string) error {
	entries, err := ReadSnapshot(path)
	if err != nil {
		return err
	}
	return r.Replace(ctx, entries)
}

// Replace swaps the namespace contents inside a MULTI/EXEC transaction.
// Keys outside the prefix are never touched.
func (r *RedisAdapter) Replace(ctx context.Context, entries map[string]types.Weight) error {
	existing, err := r.Keys(ctx)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(existing) > 0 {
			full := make([]string, len(existing))
			for i, k := range existing {
				full[i] = r.key(k)
			}
			pipe.Del(ctx, full...)
		}
		if len(entries) > 0 {
			pipe.MSet(ctx, r.pairs(entries)...)
		}
		return nil
	})
	return err
}

func (r *RedisAdapter) Close() error {
	return r.client.Close()
}
