package policies

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/zeu5/snake-rl/types"
	"golang.org/x/exp/rand"
)

// Agent picks actions from a memory table and learns from transitions
// with a fixed learning rate and discount factor.
type Agent struct {
	learning types.Weight
	discount types.Weight
	table    Table
	rand     *rand.Rand
}

func NewAgent(learning, discount float64, table Table, rng *rand.Rand) (*Agent, error) {
	if learning < 0 || learning > 1 {
		return nil, fmt.Errorf("%w: learning rate %v out of [0, 1]", types.ErrConfiguration, learning)
	}
	if discount < 0 || discount > 1 {
		return nil, fmt.Errorf("%w: discount factor %v out of [0, 1]", types.ErrConfiguration, discount)
	}
	return &Agent{
		learning: decimal.NewFromFloat(learning),
		discount: decimal.NewFromFloat(discount),
		table:    table,
		rand:     rng,
	}, nil
}

func (a *Agent) Table() Table {
	return a.table
}

func (a *Agent) LearningRate() types.Weight {
	return a.learning
}

func (a *Agent) DiscountFactor() types.Weight {
	return a.discount
}

// Act explores with probability epsilon and otherwise samples the softmax policy
func (a *Agent) Act(ctx context.Context, state types.State, epsilon float64) (types.Action, error) {
	if a.rand.Float64() < epsilon {
		return a.table.Random(), nil
	}
	return a.table.Choose(ctx, state)
}

func (a *Agent) Remember(ctx context.Context, t types.Transition) error {
	return a.table.Update(ctx, t, a.learning, a.discount)
}

func (a *Agent) Save(ctx context.Context, path string) error {
	return a.table.Save(ctx, path)
}

func (a *Agent) Load(ctx context.Context, path string) error {
	return a.table.Load(ctx, path)
}
