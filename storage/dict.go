package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zeu5/snake-rl/types"
)

// DictAdapter keeps the entries in process memory
type DictAdapter struct {
	mu   sync.RWMutex
	data map[string]types.Weight
}

var _ Adapter = &DictAdapter{}

func NewDictAdapter() *DictAdapter {
	return &DictAdapter{
		data: make(map[string]types.Weight),
	}
}

func (d *DictAdapter) Get(_ context.Context, key string) (types.Weight, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	w, ok := d.data[key]
	if !ok {
		return types.Weight{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return w, nil
}

func (d *DictAdapter) Set(_ context.Context, key string, weight types.Weight) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.data[key] = weight
	return nil
}

func (d *DictAdapter) SetAll(_ context.Context, entries map[string]types.Weight) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for k, w := range entries {
		d.data[k] = w
	}
	return nil
}

func (d *DictAdapter) Exists(_ context.Context, key string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.data[key]
	return ok, nil
}

func (d *DictAdapter) Keys(_ context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	keys := make([]string, 0, len(d.data))
	for k := range d.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (d *DictAdapter) Remove(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.data, key)
	return nil
}

func (d *DictAdapter) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.data)
}

func (d *DictAdapter) Persist(_ context.Context, path string) error {
	d.mu.RLock()
	copied := make(map[string]types.Weight, len(d.data))
	for k, w := range d.data {
		copied[k] = w
	}
	d.mu.RUnlock()

	return WriteSnapshot(path, copied)
}

func (d *DictAdapter) Load(ctx context.Context, path string) error {
	entries, err := ReadSnapshot(path)
	if err != nil {
		return err
	}
	return d.Replace(ctx, entries)
}

func (d *DictAdapter) Replace(_ context.Context, entries map[string]types.Weight) error {
	data := make(map[string]types.Weight, len(entries))
	for k, w := range entries {
		data[k] = w
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = data
	return nil
}
