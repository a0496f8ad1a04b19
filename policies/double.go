package policies

import (
	"context"
	"fmt"

	"github.com/zeu5/snake-rl/storage"
	"github.com/zeu5/snake-rl/types"
)

// DoubleTable answers policy queries from its primary table while updates
// accumulate in a hidden table. Every delay updates the hidden entries
// overwrite the primary ones and the hidden table is cleared.
type DoubleTable struct {
	*SingleTable
	hidden *SingleTable

	delay   int
	pending int
}

var _ Table = &DoubleTable{}

func NewDoubleTable(primary, hidden *SingleTable, delay int) (*DoubleTable, error) {
	if delay < 1 {
		return nil, fmt.Errorf("%w: double table delay must be positive, got %d", types.ErrConfiguration, delay)
	}
	return &DoubleTable{
		SingleTable: primary,
		hidden:      hidden,
		delay:       delay,
	}, nil
}

// SetPrecision applies to both tables, updates land in the hidden one
func (d *DoubleTable) SetPrecision(places int32) {
	d.SingleTable.SetPrecision(places)
	d.hidden.SetPrecision(places)
}

// Pending returns the number of updates not yet merged into the primary table
func (d *DoubleTable) Pending() int {
	return d.pending
}

func (d *DoubleTable) Hidden() *SingleTable {
	return d.hidden
}

// touch brings a state into the hidden table, copying the primary weights when there are any.
// Unknown successor states are left undefined, they read as the default weight either way.
func (d *DoubleTable) touch(ctx context.Context, state types.State, initialize bool) error {
	known, err := d.hidden.Exists(ctx, state)
	if err != nil || known {
		return err
	}
	weights, err := d.SingleTable.Weights(ctx, state)
	if err != nil {
		return err
	}
	if len(weights) == 0 {
		if initialize {
			return d.hidden.InitializeState(ctx, state)
		}
		return nil
	}
	entries := make(map[string]types.Weight, len(weights))
	for _, aw := range weights {
		entries[storage.Key(state, aw.Action)] = aw.Weight
	}
	return d.hidden.adapter.SetAll(ctx, entries)
}

func (d *DoubleTable) Update(ctx context.Context, t types.Transition, learning, discount types.Weight) error {
	if err := d.touch(ctx, t.State, true); err != nil {
		return err
	}
	if !t.Terminal {
		// an unknown successor is not initialized, it bootstraps with the default weight like in the single table
		if err := d.touch(ctx, t.NextState, false); err != nil {
			return err
		}
	}
	if err := d.hidden.Update(ctx, t, learning, discount); err != nil {
		return err
	}

	d.pending++
	if d.pending >= d.delay {
		return d.Flush(ctx)
	}
	return nil
}

// Flush merges the hidden table into the primary table and clears it
func (d *DoubleTable) Flush(ctx context.Context) error {
	entries, err := storage.Snapshot(ctx, d.hidden.adapter)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		if err := d.SingleTable.adapter.SetAll(ctx, entries); err != nil {
			return fmt.Errorf("merging hidden table: %w", err)
		}
	}
	if err := storage.Clear(ctx, d.hidden.adapter); err != nil {
		return err
	}
	d.pending = 0
	return nil
}

func (d *DoubleTable) Save(ctx context.Context, path string) error {
	if err := d.Flush(ctx); err != nil {
		return err
	}
	return d.SingleTable.Save(ctx, path)
}

func (d *DoubleTable) Load(ctx context.Context, path string) error {
	if err := d.SingleTable.Load(ctx, path); err != nil {
		return err
	}
	d.pending = 0
	return storage.Clear(ctx, d.hidden.adapter)
}
