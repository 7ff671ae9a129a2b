package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a reimbursement claim submitted by an employee against an approval flow.
// Status is mutated only through a committed WorkflowOutcome.
type Expense struct {
	ID          string          `json:"id"`
	EmployeeID  string          `json:"employee_id"`
	CompanyID   string          `json:"company_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	ExpenseDate time.Time       `json:"expense_date"`
	FlowID      string          `json:"flow_id"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// IsTerminal returns true once the expense is Approved or Rejected
func (e *Expense) IsTerminal() bool {
	return IsTerminalStatus(e.Status)
}
