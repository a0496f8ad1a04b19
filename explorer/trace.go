package explorer

import (
	"context"
	"fmt"

	"github.com/zeu5/snake-rl/policies"
	"github.com/zeu5/snake-rl/snake"
	"github.com/zeu5/snake-rl/types"
)

// Step of a recorded episode
type Step struct {
	Transition types.Transition
	Status     snake.Status
	Head       snake.Vector
	Goal       snake.Vector
}

type Trace struct {
	Steps []Step
	Score int
}

func (t *Trace) Len() int {
	return len(t.Steps)
}

func (t *Trace) Get(index int) (Step, bool) {
	if index < 0 || index >= len(t.Steps) {
		return Step{}, false
	}
	return t.Steps[index], true
}

func (s Step) String() string {
	tr := s.Transition
	return fmt.Sprintf("State: %s\nAction: %s\nReward: %s\nNextState: %s\nHead: %s Goal: %s Status: %s\n",
		tr.State, tr.Action, tr.Reward, tr.NextState, s.Head, s.Goal, s.Status)
}

// Play records one episode following the memory without learning from it
func (e *Explorer) Play(ctx context.Context, epsilon float64) (*Trace, error) {
	if e.world == nil {
		return nil, fmt.Errorf("%w: no world to play in", types.ErrConfiguration)
	}
	agent, err := policies.NewAgent(0, 0, e.table, e.rand)
	if err != nil {
		return nil, err
	}
	env := snake.NewEnvironment(e.world, agent, &snake.DefaultReward{}, e.rand)
	trace := &Trace{Steps: make([]Step, 0)}
	env.OnStep = func(t types.Transition, status snake.Status) {
		trace.Steps = append(trace.Steps, Step{
			Transition: t,
			Status:     status,
			Head:       e.world.Head(),
			Goal:       e.world.Goal(),
		})
	}
	if _, err := env.Execute(ctx, snake.ExecuteConfig{Episodes: 1, Epsilon: epsilon}); err != nil {
		return trace, err
	}
	trace.Score = env.Score()
	return trace, nil
}
