// Package explorer inspects trained memory tables from the terminal or over HTTP.
package explorer

import (
	"context"
	"fmt"
	"strings"

	"github.com/zeu5/snake-rl/policies"
	"github.com/zeu5/snake-rl/snake"
	"github.com/zeu5/snake-rl/types"
	"golang.org/x/exp/rand"
)

type Explorer struct {
	MemoryFile string

	table policies.Table
	// world is optional, it is required to play episodes
	world *snake.World
	rand  *rand.Rand
}

// NewExplorer loads the memory file into table
func NewExplorer(ctx context.Context, memoryFile string, table policies.Table, world *snake.World, rng *rand.Rand) (*Explorer, error) {
	if err := table.Load(ctx, memoryFile); err != nil {
		return nil, fmt.Errorf("loading memory %s: %w", memoryFile, err)
	}
	return &Explorer{
		MemoryFile: memoryFile,
		table:      table,
		world:      world,
		rand:       rng,
	}, nil
}

// StateView is the decoded content of a state with its weights
type StateView struct {
	Key        string       `json:"key"`
	Components []string     `json:"components"`
	Greedy     ActionView   `json:"greedy"`
	Weights    []ActionView `json:"weights"`
	Known      bool         `json:"known"`
}

type ActionView struct {
	Value       int    `json:"value"`
	Description string `json:"description"`
	Weight      string `json:"weight"`
}

func (e *Explorer) States(ctx context.Context) ([]types.State, error) {
	return e.table.States(ctx)
}

// View decodes the state and collects its weights
func (e *Explorer) View(ctx context.Context, state types.State) (StateView, error) {
	view := StateView{
		Key:        state.Key(),
		Components: Describe(state),
		Weights:    make([]ActionView, 0),
	}
	weights, err := e.table.Weights(ctx, state)
	if err != nil {
		return view, err
	}
	for _, aw := range weights {
		view.Weights = append(view.Weights, ActionView{aw.Action.Value, aw.Action.Description, aw.Weight.String()})
	}
	action, w, err := e.table.Greedy(ctx, state)
	if err != nil {
		return view, err
	}
	view.Known = action.Defined()
	view.Greedy = ActionView{action.Value, action.Description, w.String()}
	return view, nil
}

var rayNames = []string{"left", "forward", "right"}

func kindName(kind int) string {
	switch kind {
	case snake.Goal:
		return "goal"
	case snake.Body:
		return "body"
	case snake.Wall:
		return "wall"
	case snake.Unknown:
		return "out of bounds"
	}
	return fmt.Sprintf("kind %d", kind)
}

// Describe renders the perception components of a state in words
func Describe(state types.State) []string {
	components := state.Components()
	out := make([]string, 0, len(components))
	for i, c := range components {
		if i < len(rayNames) {
			out = append(out, fmt.Sprintf("%s ray: %s at distance %d", rayNames[i], kindName(c.Kind), c.Distance))
			continue
		}
		out = append(out, fmt.Sprintf("goal: %d degrees at distance %d", c.Kind, c.Distance))
	}
	return out
}

func (v StateView) String() string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "State Key: %s\n", v.Key)
	for _, c := range v.Components {
		fmt.Fprintf(b, "  %s\n", c)
	}
	if !v.Known {
		b.WriteString("No such state in the memory\n")
		return b.String()
	}
	b.WriteString("Weights are:\n")
	for _, w := range v.Weights {
		fmt.Fprintf(b, "  %s(%d): %s\n", w.Description, w.Value, w.Weight)
	}
	fmt.Fprintf(b, "Greedy action: %s(%d)\n", v.Greedy.Description, v.Greedy.Value)
	return b.String()
}
