package data

import (
	"fmt"
	"strings"
)

// JobStatus is the job lifecycle state machine from spec §4.6. Terminal
// states (Succeeded, Failed, Cancelled) reject every further transition
// (I2), enforced by TransitionTo below rather than trusted to callers.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
	JobStatusScheduled JobStatus = "SCHEDULED"
)

func JobStatuses() []JobStatus {
	return []JobStatus{
		JobStatusPending, JobStatusRunning, JobStatusSucceeded,
		JobStatusFailed, JobStatusCancelled, JobStatusScheduled,
	}
}

func (s JobStatus) State() State {
	return State(s)
}

func (s JobStatus) Validate() error {
	for _, known := range JobStatuses() {
		if known == JobStatus(strings.ToUpper(string(s))) {
			return nil
		}
	}
	return fmt.Errorf("invalid job status: %s", s)
}

func ToJobStatus(s string) (JobStatus, error) {
	status := JobStatus(strings.ToUpper(s))
	if err := status.Validate(); err != nil {
		return "", err
	}
	return status, nil
}

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed || s == JobStatusCancelled
}

// JobStateMachineWithInitialState returns a state machine capturing every
// legal transition drawn in spec §4.6's diagram: submission, claim,
// success/failure, cancellation, due-time promotion, and the stall-sweep
// reassignment back to Pending.
func JobStateMachineWithInitialState(initial JobStatus) *StateMachine {
	transitions := []StateTransition{
		{From: JobStatusScheduled.State(), To: JobStatusPending.State()},   // due time reached
		{From: JobStatusPending.State(), To: JobStatusRunning.State()},     // runner claims the job
		{From: JobStatusPending.State(), To: JobStatusCancelled.State()},   // customer cancels while queued
		{From: JobStatusRunning.State(), To: JobStatusSucceeded.State()},   // processor completes successfully
		{From: JobStatusRunning.State(), To: JobStatusFailed.State()},      // processor reports failure
		{From: JobStatusRunning.State(), To: JobStatusPending.State()},     // stall sweep reassignment
	}
	return NewStateMachine(initial.State(), transitions)
}

// TransitionTo reports whether moving from the receiver state to target is
// legal, without mutating anything; callers apply the transition via a
// repository update once they've also performed its side effects (wallet
// release, queue push, ...).
func (s JobStatus) TransitionTo(target JobStatus) error {
	if err := JobStateMachineWithInitialState(s).TransitionTo(target.State()); err != nil {
		return ErrBadState{From: s, To: target}
	}
	return nil
}

// ErrBadState is returned whenever a job transition is attempted out of a
// terminal state or along an edge the state machine doesn't define (I2).
type ErrBadState struct {
	From JobStatus
	To   JobStatus
}

func (e ErrBadState) Error() string {
	return fmt.Sprintf("cannot transition job from %s to %s", e.From, e.To)
}
