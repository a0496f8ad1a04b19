package types

// Transition observed in one step of an episode.
// Consumed by the memory table update.
type Transition struct {
	State     State
	Action    Action
	Reward    Weight
	NextState State
	// Terminal transitions do not bootstrap from NextState
	Terminal bool
}

func NewTransition(state State, action Action, reward Weight, nextState State, terminal bool) Transition {
	return Transition{
		State:     state,
		Action:    action,
		Reward:    reward,
		NextState: nextState,
		Terminal:  terminal,
	}
}
