package workflow

import "github.com/garyjia/expense-approval/internal/domain/entity"

// State represents an expense status in the approval lifecycle
type State string

const (
	StatePending  State = entity.StatusPending
	StateApproved State = entity.StatusApproved
	StateRejected State = entity.StatusRejected
)

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return s == StateApproved || s == StateRejected
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid expense state.
// A switch rather than a lookup table keeps it usable from package-level initializers.
func (s State) IsValid() bool {
	switch s {
	case StatePending, StateApproved, StateRejected:
		return true
	default:
		return false
	}
}
