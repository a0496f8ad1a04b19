// Package storage holds the key/value persistence behind memory tables.
//
// Keys are composed from a state and an action ("<state>_<action>") and
// values are decimal weights. Every adapter persists to and loads from the
// same JSON snapshot format so tables can move between backends.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zeu5/snake-rl/types"
)

var (
	// ErrNotFound is returned for absent keys and missing persistence files
	ErrNotFound = errors.New("not found")
	// ErrCorruptFormat is returned when persisted data exists but cannot be decoded
	ErrCorruptFormat = errors.New("corrupt format")
)

// Adapter defines the persistence operations a memory table relies on
type Adapter interface {
	// Get fails with ErrNotFound when the key is absent
	Get(ctx context.Context, key string) (types.Weight, error)
	// Set overwrites unconditionally
	Set(ctx context.Context, key string, weight types.Weight) error
	// SetAll writes every entry or none of them
	SetAll(ctx context.Context, entries map[string]types.Weight) error
	Exists(ctx context.Context, key string) (bool, error)
	// Keys returns a snapshot of the keys at call time
	Keys(ctx context.Context) ([]string, error)
	Remove(ctx context.Context, key string) error
	// Persist writes all entries to path atomically
	Persist(ctx context.Context, path string) error
	// Load replaces all contents with the snapshot stored at path
	Load(ctx context.Context, path string) error
	// Replace swaps all contents for entries in one step
	Replace(ctx context.Context, entries map[string]types.Weight) error
}

// Key composes the storage key of a state-action pair
func Key(state types.State, action types.Action) string {
	return state.Key() + "_" + action.Key()
}

// SplitKey reverses Key, returning the state and the action value
func SplitKey(key string) (types.State, int, error) {
	i := strings.LastIndex(key, "_")
	if i < 0 {
		return types.State{}, 0, fmt.Errorf("%w: key %q has no action", ErrCorruptFormat, key)
	}
	state, err := types.ParseState(key[:i])
	if err != nil {
		return types.State{}, 0, fmt.Errorf("%w: key %q: %v", ErrCorruptFormat, key, err)
	}
	action, err := strconv.Atoi(key[i+1:])
	if err != nil {
		return types.State{}, 0, fmt.Errorf("%w: key %q: %v", ErrCorruptFormat, key, err)
	}
	return state, action, nil
}

// Weight reads the weight of a state-action pair.
// ok is false when the pair is undefined, which is distinct from a zero weight.
func Weight(ctx context.Context, a Adapter, state types.State, action types.Action) (w types.Weight, ok bool, err error) {
	w, err = a.Get(ctx, Key(state, action))
	if errors.Is(err, ErrNotFound) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return w, true, nil
}

func SetWeight(ctx context.Context, a Adapter, state types.State, action types.Action, w types.Weight) error {
	return a.Set(ctx, Key(state, action), w)
}

// HasWeight reports if the state-action pair is defined
func HasWeight(ctx context.Context, a Adapter, state types.State, action types.Action) (bool, error) {
	return a.Exists(ctx, Key(state, action))
}

// Snapshot copies every entry of the adapter
func Snapshot(ctx context.Context, a Adapter) (map[string]types.Weight, error) {
	keys, err := a.Keys(ctx)
	if err != nil {
		return nil, err
	}
	entries := make(map[string]types.Weight, len(keys))
	for _, k := range keys {
		w, err := a.Get(ctx, k)
		if errors.Is(err, ErrNotFound) {
			// removed between enumeration and read
			continue
		}
		if err != nil {
			return nil, err
		}
		entries[k] = w
	}
	return entries, nil
}

// Clear removes every entry of the adapter
func Clear(ctx context.Context, a Adapter) error {
	keys, err := a.Keys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := a.Remove(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// CloseIfSupported releases adapters holding connections
func CloseIfSupported(a Adapter) error {
	closer, ok := a.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
