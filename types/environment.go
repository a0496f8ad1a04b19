package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Weight is the estimated discounted return of a (State, Action) pair
type Weight = decimal.Decimal

// DefaultWeight is the optimistic value every freshly initialized pair starts with
var DefaultWeight = decimal.NewFromInt(1)

// Component is one entry of a perception tuple: what was observed and how far away it is
type Component struct {
	Kind     int
	Distance int
}

func (c Component) String() string {
	return strconv.Itoa(c.Kind) + "," + strconv.Itoa(c.Distance)
}

// State of the environment as observed by the agent.
// Indexed by its key, which is deterministic and reversible.
type State struct {
	key string
}

// NewState encodes an ordered perception tuple into a State
func NewState(components ...Component) State {
	parts := make([]string, len(components))
	for i, c := range components {
		parts[i] = c.String()
	}
	return State{key: strings.Join(parts, "|")}
}

// ParseState decodes a key produced by State.Key
func ParseState(key string) (State, error) {
	if key == "" {
		return State{}, fmt.Errorf("empty state key")
	}
	components := make([]Component, 0)
	for _, part := range strings.Split(key, "|") {
		kind, distance, ok := strings.Cut(part, ",")
		if !ok {
			return State{}, fmt.Errorf("malformed state component %q", part)
		}
		k, err := strconv.Atoi(kind)
		if err != nil {
			return State{}, fmt.Errorf("malformed state component %q: %w", part, err)
		}
		d, err := strconv.Atoi(distance)
		if err != nil {
			return State{}, fmt.Errorf("malformed state component %q: %w", part, err)
		}
		components = append(components, Component{Kind: k, Distance: d})
	}
	return NewState(components...), nil
}

func (s State) Key() string {
	return s.key
}

func (s State) String() string {
	return "(" + s.key + ")"
}

func (s State) IsZero() bool {
	return s.key == ""
}

// Components returns the decoded perception tuple
func (s State) Components() []Component {
	if s.key == "" {
		return nil
	}
	parts := strings.Split(s.key, "|")
	components := make([]Component, len(parts))
	for i, part := range parts {
		kind, distance, _ := strings.Cut(part, ",")
		components[i].Kind, _ = strconv.Atoi(kind)
		components[i].Distance, _ = strconv.Atoi(distance)
	}
	return components
}

// An Action the agent can take, identified by its value
type Action struct {
	Value       int
	Description string

	undefined bool
}

// UndefinedAction is returned by policy queries on states that were never initialized
var UndefinedAction = Action{Description: "Undefined action", undefined: true}

func NewAction(value int, description string) Action {
	return Action{Value: value, Description: description}
}

func (a Action) Defined() bool {
	return !a.undefined
}

// Key of the action used when composing storage keys
func (a Action) Key() string {
	return strconv.Itoa(a.Value)
}

func (a Action) String() string {
	if a.undefined {
		return a.Description
	}
	return fmt.Sprintf("%s(%d)", a.Description, a.Value)
}

// ActionSet is the fixed, ordered set of actions configured for a table
type ActionSet []Action

func (s ActionSet) Find(value int) (Action, bool) {
	for _, a := range s {
		if a.Value == value {
			return a, true
		}
	}
	return Action{}, false
}

func (s ActionSet) Copy() ActionSet {
	return append(ActionSet(nil), s...)
}
