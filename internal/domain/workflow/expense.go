package workflow

import "sync"

// expenseTransitions is built on first use so it never depends on package init order
var expenseTransitions = sync.OnceValue(func() *Builder {
	// Pending is the only state with outgoing transitions
	return NewBuilder().From(StatePending, TransitionTable{
		TriggerApprove:     StateApproved,
		TriggerAutoApprove: StateApproved,
		TriggerReject:      StateRejected,
	})
})

// NewExpenseMachine creates a state machine positioned at the given expense status
func NewExpenseMachine(status string) (StateMachine, error) {
	return expenseTransitions().Build(State(status))
}
