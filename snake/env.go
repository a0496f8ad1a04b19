package snake

import (
	"context"
	"fmt"

	"github.com/zeu5/snake-rl/policies"
	"github.com/zeu5/snake-rl/types"
	"golang.org/x/exp/rand"
)

// Status of the current episode
type Status int

const (
	Running Status = iota
	Won
	Lost
	Starved
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Won:
		return "won"
	case Lost:
		return "lost"
	case Starved:
		return "starved"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

const DefaultMaxStarving = 100

// Actions available to the snake, the value is the number of quarter turns applied to the heading
var Actions = types.ActionSet{
	types.NewAction(-1, "Turn Left"),
	types.NewAction(0, "Go Forward"),
	types.NewAction(1, "Turn Right"),
}

// ExecuteConfig parametrizes a multi-episode run
type ExecuteConfig struct {
	Episodes int
	Epsilon  float64
	// Training enables learning from every transition
	Training bool
}

// Environment runs episodes of an agent in a world
type Environment struct {
	world  *World
	agent  *policies.Agent
	reward RewardModel
	rand   *rand.Rand

	// MaxStarving is the number of steps without a capture after which the episode ends
	MaxStarving int
	// OnEpisode is called after every completed episode
	OnEpisode func(episode int, results *types.Results)
	// OnStep is called with the transition of every step
	OnStep func(t types.Transition, status Status)

	score     int
	objective int
	starving  int
	status    Status
}

func NewEnvironment(world *World, agent *policies.Agent, reward RewardModel, rng *rand.Rand) *Environment {
	return &Environment{
		world:       world,
		agent:       agent,
		reward:      reward,
		rand:        rng,
		MaxStarving: DefaultMaxStarving,
		objective:   world.FreeCells() - world.StartLength(),
	}
}

func (e *Environment) World() *World {
	return e.world
}

func (e *Environment) Score() int {
	return e.score
}

// Objective is the score that wins an episode
func (e *Environment) Objective() int {
	return e.objective
}

func (e *Environment) Status() Status {
	return e.status
}

// Reset starts a new episode
func (e *Environment) Reset() {
	e.reward.Reset()
	e.world.Reset(e.rand)
	e.score = 0
	e.starving = 0
	e.status = Running
}

// Step observes, acts, moves the snake, evaluates the outcome and learns from it when training
func (e *Environment) Step(ctx context.Context, training bool, epsilon float64) (Status, error) {
	state := Observe(e.world)
	action, err := e.agent.Act(ctx, state, epsilon)
	if err != nil {
		return e.status, fmt.Errorf("choosing action: %w", err)
	}

	e.world.Turn(action.Value)
	e.world.Advance()
	e.evaluate()

	reward := e.reward.Reward(Outcome{
		Over:     e.status != Running,
		Won:      e.status == Won,
		Score:    e.score,
		Distance: e.world.Head().Distance(e.world.Goal()),
		Size:     e.world.Size(),
	})
	if !training && e.OnStep == nil {
		return e.status, nil
	}
	t := types.NewTransition(state, action, reward, Observe(e.world), e.status != Running)
	if training {
		if err := e.agent.Remember(ctx, t); err != nil {
			return e.status, fmt.Errorf("learning from %s: %w", state, err)
		}
	}
	if e.OnStep != nil {
		e.OnStep(t, e.status)
	}
	return e.status, nil
}

// evaluate applies collisions, captures and starvation in that order
func (e *Environment) evaluate() {
	if e.world.Colliding() {
		e.status = Lost
		return
	}
	if e.world.Head() == e.world.Goal() {
		e.score++
		e.starving = 0
		e.world.Grow()
		if e.score >= e.objective || !e.world.PlaceGoal(e.rand) {
			e.status = Won
		}
		return
	}
	e.starving++
	if e.starving >= e.MaxStarving {
		e.status = Starved
	}
}

// Execute runs the configured number of episodes.
// Cancelling ctx stops the run at the next step, the results gathered so far are returned with Abort set.
func (e *Environment) Execute(ctx context.Context, config ExecuteConfig) (types.Results, error) {
	results := types.NewResults()
	for episode := 0; episode < config.Episodes; episode++ {
		e.Reset()
		steps := 0
		for e.status == Running {
			select {
			case <-ctx.Done():
				results.Abort = true
				if steps > 0 {
					results.AddEpisode(steps, e.score)
				}
				return results, nil
			default:
			}

			steps++
			if _, err := e.Step(ctx, config.Training, config.Epsilon); err != nil {
				return results, err
			}
		}

		results.AddEpisode(steps, e.score)
		switch e.status {
		case Won:
			results.Wins += 1
		case Lost:
			results.Loses += 1
		case Starved:
			results.Starves += 1
		}
		if e.OnEpisode != nil {
			e.OnEpisode(episode, &results)
		}
	}
	return results, nil
}
