// Package policies implements the Q-learning memory tables and the agent using them.
package policies

import (
	"context"
	"fmt"
	"strings"

	"github.com/zeu5/snake-rl/storage"
	"github.com/zeu5/snake-rl/types"
	"golang.org/x/exp/rand"
)

// DefaultPrecision bounds the decimal places of stored weights, decimal products otherwise grow on every update
const DefaultPrecision int32 = 16

// Table maps (State, Action) pairs to weights and answers policy queries over them
type Table interface {
	Actions() types.ActionSet
	// Exists is true iff any action has a defined weight for the state
	Exists(context.Context, types.State) (bool, error)
	InitializeState(context.Context, types.State) error
	// Greedy returns types.UndefinedAction with the default weight for unknown states
	Greedy(context.Context, types.State) (types.Action, types.Weight, error)
	Choose(context.Context, types.State) (types.Action, error)
	Random() types.Action
	Update(ctx context.Context, t types.Transition, learning, discount types.Weight) error
	Weights(context.Context, types.State) ([]ActionWeight, error)
	States(context.Context) ([]types.State, error)
	Save(ctx context.Context, path string) error
	Load(ctx context.Context, path string) error
	// SetPrecision sets the decimal places updated weights are rounded to, negative keeps them exact
	SetPrecision(places int32)
}

// ActionWeight pairs an action with its current weight
type ActionWeight struct {
	Action types.Action
	Weight types.Weight
}

func (a ActionWeight) String() string {
	return fmt.Sprintf("%s: %s", a.Action, a.Weight.StringFixed(6))
}

// NewTable creates the named table. The double table requires a second adapter for its hidden table.
func NewTable(name string, actions types.ActionSet, adapters []storage.Adapter, delay int, rng *rand.Rand) (Table, error) {
	if len(adapters) == 0 {
		return nil, fmt.Errorf("%w: memory table %q needs an adapter", types.ErrConfiguration, name)
	}
	switch strings.ToLower(name) {
	case "", "single":
		return NewSingleTable(adapters[0], actions, rng)
	case "double":
		if len(adapters) < 2 {
			return nil, fmt.Errorf("%w: double memory table needs two adapters", types.ErrConfiguration)
		}
		primary, err := NewSingleTable(adapters[0], actions, rng)
		if err != nil {
			return nil, err
		}
		hidden, err := NewSingleTable(adapters[1], actions, rng)
		if err != nil {
			return nil, err
		}
		return NewDoubleTable(primary, hidden, delay)
	default:
		return nil, fmt.Errorf("%w: unknown memory table %q", types.ErrConfiguration, name)
	}
}
