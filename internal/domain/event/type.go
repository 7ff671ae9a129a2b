package event

// Type identifies the type of domain event
type Type string

const (
	TypeExpenseSubmitted Type = "expense.submitted"
	TypeApprovalAssigned Type = "approval.assigned"
	TypeApprovalDecided  Type = "approval.decided"
	TypeExpenseApproved  Type = "expense.approved"
	TypeExpenseRejected  Type = "expense.rejected"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeExpenseSubmitted,
		TypeApprovalAssigned,
		TypeApprovalDecided,
		TypeExpenseApproved,
		TypeExpenseRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the event announces a final expense status
func (t Type) IsTerminal() bool {
	return t == TypeExpenseApproved || t == TypeExpenseRejected
}

// AllTypes returns every defined event type
func AllTypes() []Type {
	return []Type{
		TypeExpenseSubmitted,
		TypeApprovalAssigned,
		TypeApprovalDecided,
		TypeExpenseApproved,
		TypeExpenseRejected,
	}
}
