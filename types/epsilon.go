package types

import (
	"fmt"
	"strconv"
	"strings"
)

// EpsilonFunc returns the exploration probability to use in a cycle.
// The environment argument is opaque to the schedule.
type EpsilonFunc func(cycle, maxCycle int, env any) float64

// ConstantEpsilon ignores the cycle
func ConstantEpsilon(value float64) EpsilonFunc {
	return func(_, _ int, _ any) float64 {
		return value
	}
}

// DefaultEpsilon decays from 0.01 to 0.00015 over the first half of the cycles
func DefaultEpsilon(cycle, maxCycle int, _ any) float64 {
	half := max(maxCycle/2, 1)
	return 0.01 - (0.00985 * float64(min(cycle, half)) / float64(half))
}

// LinearEpsilon decays from 0.1 to 0 over the first half of the cycles
func LinearEpsilon(cycle, maxCycle int, _ any) float64 {
	half := max(maxCycle/2, 1)
	return 0.1 - (0.1 * float64(min(cycle, half)) / float64(half))
}

// ParseEpsilon accepts a probability literal or the name of a schedule
func ParseEpsilon(value string) (EpsilonFunc, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "default":
		return DefaultEpsilon, nil
	case "linear":
		return LinearEpsilon, nil
	}
	p, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown epsilon %q", ErrConfiguration, value)
	}
	if p < 0 || p > 1 {
		return nil, fmt.Errorf("%w: epsilon %v out of [0, 1]", ErrConfiguration, p)
	}
	return ConstantEpsilon(p), nil
}

// ClampProbability bounds a schedule output to [0, 1]
func ClampProbability(p float64) float64 {
	return min(max(p, 0), 1)
}
