package approval

import "github.com/garyjia/expense-approval/internal/domain/entity"

// OutcomeReason explains why the engine produced an outcome
type OutcomeReason string

const (
	ReasonSubmitted     OutcomeReason = "submitted"
	ReasonAdvanced      OutcomeReason = "advanced"
	ReasonRejected      OutcomeReason = "rejected"
	ReasonAutoApproved  OutcomeReason = "auto_approved"
	ReasonFinalApproved OutcomeReason = "final_approved"
)

// WorkflowOutcome is the complete set of writes a caller must commit atomically.
// LedgerMutation is nil on submission; NewApprovalRecord is nil once the expense is terminal.
type WorkflowOutcome struct {
	ExpenseID         string                 `json:"expense_id"`
	PreviousStatus    string                 `json:"previous_status"`
	NewExpenseStatus  string                 `json:"new_expense_status"`
	LedgerMutation    *entity.ApprovalRecord `json:"ledger_mutation,omitempty"`
	NewApprovalRecord *entity.ApprovalRecord `json:"new_approval_record,omitempty"`
	AutoApproved      bool                   `json:"auto_approved"`
	Reason            OutcomeReason          `json:"reason"`
}

// IsTerminal returns true when the outcome leaves the expense Approved or Rejected
func (o *WorkflowOutcome) IsTerminal() bool {
	return entity.IsTerminalStatus(o.NewExpenseStatus)
}

// StatusChanged returns true when the expense status must be written
func (o *WorkflowOutcome) StatusChanged() bool {
	return o.PreviousStatus != o.NewExpenseStatus
}
