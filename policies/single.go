package policies

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/zeu5/snake-rl/storage"
	"github.com/zeu5/snake-rl/types"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// SingleTable keeps the weights of every configured action in one storage adapter
type SingleTable struct {
	adapter   storage.Adapter
	actions   types.ActionSet
	rand      *rand.Rand
	precision int32
}

var _ Table = &SingleTable{}

func NewSingleTable(adapter storage.Adapter, actions types.ActionSet, rng *rand.Rand) (*SingleTable, error) {
	if len(actions) == 0 {
		return nil, fmt.Errorf("%w: empty action set", types.ErrConfiguration)
	}
	seen := make(map[int]bool)
	for _, a := range actions {
		if seen[a.Value] {
			return nil, fmt.Errorf("%w: duplicate action value %d", types.ErrConfiguration, a.Value)
		}
		seen[a.Value] = true
	}
	return &SingleTable{
		adapter:   adapter,
		actions:   actions.Copy(),
		rand:      rng,
		precision: DefaultPrecision,
	}, nil
}

func (s *SingleTable) Actions() types.ActionSet {
	return s.actions.Copy()
}

func (s *SingleTable) Adapter() storage.Adapter {
	return s.adapter
}

func (s *SingleTable) Exists(ctx context.Context, state types.State) (bool, error) {
	for _, a := range s.actions {
		ok, err := storage.HasWeight(ctx, s.adapter, state, a)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (s *SingleTable) InitializeState(ctx context.Context, state types.State) error {
	entries := make(map[string]types.Weight, len(s.actions))
	for _, a := range s.actions {
		entries[storage.Key(state, a)] = types.DefaultWeight
	}
	return s.adapter.SetAll(ctx, entries)
}

// Weights returns the defined weights of the state in action order
func (s *SingleTable) Weights(ctx context.Context, state types.State) ([]ActionWeight, error) {
	weights := make([]ActionWeight, 0, len(s.actions))
	for _, a := range s.actions {
		w, ok, err := storage.Weight(ctx, s.adapter, state, a)
		if err != nil {
			return nil, err
		}
		if ok {
			weights = append(weights, ActionWeight{Action: a, Weight: w})
		}
	}
	return weights, nil
}

func (s *SingleTable) Greedy(ctx context.Context, state types.State) (types.Action, types.Weight, error) {
	weights, err := s.Weights(ctx, state)
	if err != nil {
		return types.UndefinedAction, types.DefaultWeight, err
	}
	if len(weights) == 0 {
		return types.UndefinedAction, types.DefaultWeight, nil
	}
	best := weights[0]
	for _, aw := range weights[1:] {
		if aw.Weight.GreaterThan(best.Weight) {
			best = aw
		}
	}
	return best.Action, best.Weight, nil
}

// best reads the bootstrap value of a successor state without initializing it
func (s *SingleTable) best(ctx context.Context, state types.State) (types.Weight, error) {
	_, w, err := s.Greedy(ctx, state)
	return w, err
}

// Choose samples an action with probability proportional to exp(weight).
// Unknown states get a uniformly random action and stay unknown.
func (s *SingleTable) Choose(ctx context.Context, state types.State) (types.Action, error) {
	weights, err := s.Weights(ctx, state)
	if err != nil {
		return types.UndefinedAction, err
	}
	if len(weights) == 0 {
		return s.Random(), nil
	}

	vals := make([]float64, len(weights))
	maxVal := math.Inf(-1)
	for i, aw := range weights {
		vals[i] = aw.Weight.InexactFloat64()
		maxVal = math.Max(maxVal, vals[i])
	}
	// shifted by the maximum so large weights do not overflow
	sum := 0.0
	for i, val := range vals {
		vals[i] = math.Exp(val - maxVal)
		sum += vals[i]
	}
	for i := range vals {
		vals[i] /= sum
	}
	i, ok := sampleuv.NewWeighted(vals, s.rand).Take()
	if !ok {
		return s.Random(), nil
	}
	return weights[i].Action, nil
}

func (s *SingleTable) Random() types.Action {
	return s.actions[s.rand.Intn(len(s.actions))]
}

func (s *SingleTable) Update(ctx context.Context, t types.Transition, learning, discount types.Weight) error {
	action, ok := s.actions.Find(t.Action.Value)
	if !ok || !t.Action.Defined() {
		return fmt.Errorf("%w: action %s is not configured", types.ErrConfiguration, t.Action)
	}
	known, err := s.Exists(ctx, t.State)
	if err != nil {
		return err
	}
	if !known {
		if err := s.InitializeState(ctx, t.State); err != nil {
			return err
		}
	}

	old, ok, err := storage.Weight(ctx, s.adapter, t.State, action)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: state %s is partially initialized", storage.ErrCorruptFormat, t.State)
	}

	nextVal := decimal.Zero
	// terminal transitions have no successor to bootstrap from
	if !t.Terminal {
		nextVal, err = s.best(ctx, t.NextState)
		if err != nil {
			return err
		}
	}

	one := decimal.NewFromInt(1)
	newVal := one.Sub(learning).Mul(old).Add(learning.Mul(t.Reward.Add(discount.Mul(nextVal))))
	if s.precision >= 0 {
		newVal = newVal.Round(s.precision)
	}
	return storage.SetWeight(ctx, s.adapter, t.State, action, newVal)
}

func (s *SingleTable) SetPrecision(places int32) {
	s.precision = places
}

// States lists every state with a defined weight, sorted by key
func (s *SingleTable) States(ctx context.Context) ([]types.State, error) {
	keys, err := s.adapter.Keys(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[types.State]bool)
	states := make([]types.State, 0)
	for _, k := range keys {
		state, _, err := storage.SplitKey(k)
		if err != nil {
			return nil, err
		}
		if !seen[state] {
			seen[state] = true
			states = append(states, state)
		}
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].Key() < states[j].Key()
	})
	return states, nil
}

func (s *SingleTable) Save(ctx context.Context, path string) error {
	return s.adapter.Persist(ctx, path)
}

// Load replaces the table with the snapshot at path.
// Snapshots holding unknown actions or partially initialized states are rejected before anything is replaced.
// The file is read once, the adapter receives exactly the validated entries.
func (s *SingleTable) Load(ctx context.Context, path string) error {
	entries, err := storage.ReadSnapshot(path)
	if err != nil {
		return err
	}
	if err := s.validate(entries); err != nil {
		return err
	}
	return s.adapter.Replace(ctx, entries)
}

func (s *SingleTable) validate(entries map[string]types.Weight) error {
	perState := make(map[types.State]int)
	for k := range entries {
		state, value, err := storage.SplitKey(k)
		if err != nil {
			return err
		}
		if _, ok := s.actions.Find(value); !ok {
			return fmt.Errorf("%w: key %q references unknown action %d", storage.ErrCorruptFormat, k, value)
		}
		perState[state]++
	}
	for state, n := range perState {
		if n != len(s.actions) {
			return fmt.Errorf("%w: state %s defines %d of %d actions", storage.ErrCorruptFormat, state, n, len(s.actions))
		}
	}
	return nil
}
