package domain

// ExecutionState is the controller's lifecycle state. Transitions are
// driven exclusively by the execution controller.
type ExecutionState string

const (
	// StateIdle means disarmed; nothing is polled.
	StateIdle ExecutionState = "idle"

	// StateMonitoring means armed and evaluating every poll tick.
	StateMonitoring ExecutionState = "monitoring"

	// StateVerifying means a qualifying opportunity is being re-checked
	// against a fresh snapshot before any capital moves.
	StateVerifying ExecutionState = "verifying"

	// StateCommitting means the two-leg order submission is in flight.
	// A stop command never interrupts this state.
	StateCommitting ExecutionState = "committing"

	// StateSettled means both legs completed (or were simulated).
	StateSettled ExecutionState = "settled"

	// StateAborted means the decision cycle failed; an explicit re-arm
	// is required.
	StateAborted ExecutionState = "aborted"
)

// String returns the state name.
func (s ExecutionState) String() string {
	return string(s)
}

// CanStop reports whether a stop command is honored immediately in this
// state. Committing runs to completion first.
func (s ExecutionState) CanStop() bool {
	return s == StateMonitoring || s == StateVerifying
}

// validTransitions is the full lifecycle graph. Idle never jumps into
// the decision pipeline without passing through Monitoring.
var validTransitions = map[ExecutionState][]ExecutionState{
	StateIdle:       {StateMonitoring},
	StateMonitoring: {StateVerifying, StateIdle},
	StateVerifying:  {StateCommitting, StateMonitoring, StateIdle},
	StateCommitting: {StateSettled, StateAborted},
	StateSettled:    {StateMonitoring, StateIdle},
	StateAborted:    {StateIdle},
}

// CanTransitionTo reports whether the lifecycle permits moving from s
// to next.
func (s ExecutionState) CanTransitionTo(next ExecutionState) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
