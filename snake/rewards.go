package snake

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zeu5/snake-rl/types"
)

var (
	LoseReward    = decimal.NewFromInt(-10)
	WinReward     = decimal.NewFromInt(10)
	CaptureReward = decimal.NewFromInt(5)
)

// Outcome of a step as seen by a reward model
type Outcome struct {
	Over  bool
	Won   bool
	Score int
	// distance from the head to the goal after the step
	Distance float64
	Size     int
}

// RewardModel scores steps. Reset is called at the start of every episode.
type RewardModel interface {
	Reward(Outcome) types.Weight
	Reset()
}

// DefaultReward punishes losing, rewards winning and every capture
type DefaultReward struct {
	lastScore int
}

var _ RewardModel = &DefaultReward{}

func (r *DefaultReward) Reward(o Outcome) types.Weight {
	if o.Over {
		if o.Won {
			return WinReward
		}
		return LoseReward
	}
	if o.Score > r.lastScore {
		r.lastScore = o.Score
		return CaptureReward
	}
	return decimal.Zero
}

func (r *DefaultReward) Reset() {
	r.lastScore = 0
}

// DistanceReward replaces neutral steps with a penalty growing with the distance to the goal
type DistanceReward struct {
	DefaultReward
}

var _ RewardModel = &DistanceReward{}

func (r *DistanceReward) Reward(o Outcome) types.Weight {
	reward := r.DefaultReward.Reward(o)
	if !reward.IsZero() || o.Size == 0 {
		return reward
	}
	return decimal.NewFromFloat(o.Distance / float64(o.Size)).Neg()
}

func NewRewardModel(name string) (RewardModel, error) {
	switch strings.ToLower(name) {
	case "", "default":
		return &DefaultReward{}, nil
	case "distance":
		return &DistanceReward{}, nil
	}
	return nil, fmt.Errorf("%w: unknown reward model %q", types.ErrConfiguration, name)
}
