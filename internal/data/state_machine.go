package data

import "fmt"

// State is a generic state label used by the closed enumerations (JobStatus,
// RunnerStatus, ...) that need transition validation.
type State string

type StateTransition struct {
	From State
	To   State
}

// StateMachine is a small, reusable transition table. Entities never hold
// one directly; they build one on demand from their own transition list and
// ask it whether a move is legal (see JobStatus.TransitionTo).
type StateMachine struct {
	CurrentState State
	Transitions  map[State]map[State]bool
}

func NewStateMachine(initialState State, transitions []StateTransition) *StateMachine {
	sm := &StateMachine{
		CurrentState: initialState,
		Transitions:  make(map[State]map[State]bool),
	}

	for _, t := range transitions {
		if sm.Transitions[t.From] == nil {
			sm.Transitions[t.From] = make(map[State]bool)
		}
		sm.Transitions[t.From][t.To] = true
	}

	return sm
}

func (sm *StateMachine) CanTransitionTo(target State) bool {
	if _, ok := sm.Transitions[sm.CurrentState]; !ok {
		return false
	}
	return sm.Transitions[sm.CurrentState][target]
}

func (sm *StateMachine) TransitionTo(target State) error {
	if sm.CanTransitionTo(target) {
		sm.CurrentState = target
		return nil
	}
	return fmt.Errorf("cannot transition from %s to %s", sm.CurrentState, target)
}
