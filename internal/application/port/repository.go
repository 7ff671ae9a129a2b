package port

import (
	"context"
	"errors"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// ErrConflict is returned when a conditional write lost a race against a concurrent writer.
// The caller should re-read its snapshot and retry.
var ErrConflict = errors.New("concurrent modification")

// Lookups return (nil, nil) when the row does not exist.

// CompanyRepository defines persistence operations for Company
type CompanyRepository interface {
	Create(ctx context.Context, company *entity.Company) error
	GetByID(ctx context.Context, id string) (*entity.Company, error)
}

// UserRepository defines persistence operations for User
type UserRepository interface {
	ManagerResolver

	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	ListByCompany(ctx context.Context, companyID string) ([]*entity.User, error)
	UpdateRole(ctx context.Context, id, role string) error
	UpdateManager(ctx context.Context, id, managerID string) error
	Count(ctx context.Context) (int, error)
}

// ManagerResolver resolves the direct manager of an employee; empty string when none
type ManagerResolver interface {
	GetManagerID(ctx context.Context, employeeID string) (string, error)
}

// FlowRepository defines persistence operations for FlowDefinition and its steps
type FlowRepository interface {
	Create(ctx context.Context, flow *entity.FlowDefinition) error
	GetByID(ctx context.Context, id string) (*entity.FlowDefinition, error)
	ListByCompany(ctx context.Context, companyID string) ([]*entity.FlowDefinition, error)
}

// ExpenseRepository defines persistence operations for Expense
type ExpenseRepository interface {
	Create(ctx context.Context, expense *entity.Expense) error
	GetByID(ctx context.Context, id string) (*entity.Expense, error)
	ListByEmployee(ctx context.Context, employeeID string, limit, offset int) ([]*entity.Expense, error)

	// CompareAndSetStatus moves the expense from one status to another and
	// returns ErrConflict when the stored status is no longer `from`
	CompareAndSetStatus(ctx context.Context, id, from, to string) error
}

// ApprovalRepository defines persistence operations for the approval ledger.
// The store enforces at most one Pending record per expense.
type ApprovalRepository interface {
	// Create inserts a record; ErrConflict when the expense already has a Pending record
	Create(ctx context.Context, record *entity.ApprovalRecord) error
	GetByID(ctx context.Context, id string) (*entity.ApprovalRecord, error)
	GetLedger(ctx context.Context, expenseID string) (entity.Ledger, error)
	ListPendingByApprover(ctx context.Context, approverID string) ([]*entity.ApprovalRecord, error)

	// Resolve writes the decision of a record that is still Pending; ErrConflict otherwise
	Resolve(ctx context.Context, record *entity.ApprovalRecord) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
