package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/approval"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/domain/policy"
	"github.com/garyjia/expense-approval/pkg/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// SubmitExpenseRequest carries the employee-entered fields of a new expense
type SubmitExpenseRequest struct {
	FlowID      string
	Amount      decimal.Decimal
	Currency    string
	Category    string
	Description string
	ExpenseDate time.Time
}

// ExpenseService handles expense submission and the employee-facing queries
type ExpenseService interface {
	Submit(ctx context.Context, employeeID string, req SubmitExpenseRequest) (*entity.Expense, *entity.ApprovalRecord, error)
	Get(ctx context.Context, actorID, expenseID string) (*entity.Expense, error)
	ListMine(ctx context.Context, employeeID string, limit, offset int) ([]*entity.Expense, error)
	Ledger(ctx context.Context, actorID, expenseID string) (entity.Ledger, error)
}

type expenseServiceImpl struct {
	expenses        port.ExpenseRepository
	approvals       port.ApprovalRepository
	flows           port.FlowRepository
	users           port.UserRepository
	companies       port.CompanyRepository
	txManager       port.TransactionManager
	engine          *approval.Engine
	publisher       Publisher
	defaultCurrency string
	logger          Logger
}

// ExpenseServiceOption configures the expense service
type ExpenseServiceOption func(*expenseServiceImpl)

// WithDefaultCurrency is used when neither the request nor the company names a currency
func WithDefaultCurrency(currency string) ExpenseServiceOption {
	return func(s *expenseServiceImpl) {
		s.defaultCurrency = currency
	}
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(
	expenses port.ExpenseRepository,
	approvals port.ApprovalRepository,
	flows port.FlowRepository,
	users port.UserRepository,
	companies port.CompanyRepository,
	txManager port.TransactionManager,
	engine *approval.Engine,
	publisher Publisher,
	logger Logger,
	opts ...ExpenseServiceOption,
) ExpenseService {
	s := &expenseServiceImpl{
		expenses:        expenses,
		approvals:       approvals,
		flows:           flows,
		users:           users,
		companies:       companies,
		txManager:       txManager,
		engine:          engine,
		publisher:       publisher,
		defaultCurrency: "USD",
		logger:          logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates the expense and routes it to its first approver in one transaction
func (s *expenseServiceImpl) Submit(ctx context.Context, employeeID string, req SubmitExpenseRequest) (*entity.Expense, *entity.ApprovalRecord, error) {
	employee, err := loadActor(ctx, s.users, employeeID, policy.SubmitExpense)
	if err != nil {
		return nil, nil, err
	}

	if err := validateSubmit(req); err != nil {
		return nil, nil, err
	}

	flow, err := s.flows.GetByID(ctx, req.FlowID)
	if err != nil {
		return nil, nil, fmt.Errorf("load flow: %w", err)
	}
	if flow == nil || flow.CompanyID != employee.CompanyID {
		return nil, nil, fmt.Errorf("%w: flow %s", approval.ErrNotFound, req.FlowID)
	}

	managerID, err := s.users.GetManagerID(ctx, employee.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve manager: %w", err)
	}

	currency, err := s.currencyFor(ctx, employee, req.Currency)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	expense := &entity.Expense{
		ID:          uuid.NewString(),
		EmployeeID:  employee.ID,
		CompanyID:   employee.CompanyID,
		Amount:      req.Amount,
		Currency:    currency,
		Category:    req.Category,
		Description: strings.TrimSpace(req.Description),
		ExpenseDate: req.ExpenseDate.UTC(),
		FlowID:      flow.ID,
		Status:      entity.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	outcome, err := s.engine.SubmitExpense(approval.SubmitInput{
		Expense:   expense,
		Flow:      flow,
		ManagerID: managerID,
	})
	if err != nil {
		s.logger.Error("Expense routing failed", "error", err, "employee_id", employee.ID, "flow_id", flow.ID)
		return nil, nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.expenses.Create(txCtx, expense); err != nil {
			return fmt.Errorf("create expense: %w", err)
		}
		return commitOutcome(txCtx, s.expenses, s.approvals, outcome)
	})
	if err != nil {
		s.logger.Error("Failed to submit expense", "error", err, "expense_id", expense.ID)
		return nil, nil, err
	}

	s.logger.Info("Expense submitted",
		"expense_id", expense.ID,
		"employee_id", employee.ID,
		"amount", expense.Amount.String(),
		"currency", expense.Currency,
		"first_approver_id", outcome.NewApprovalRecord.ApproverID,
	)
	s.publisher.Publish(ctx, outcomeEvents(outcome, expense))

	return expense, outcome.NewApprovalRecord, nil
}

// Get returns an expense visible to the caller: its owner, an approver on its ledger, or a company admin
func (s *expenseServiceImpl) Get(ctx context.Context, actorID, expenseID string) (*entity.Expense, error) {
	expense, _, err := s.visibleExpense(ctx, actorID, expenseID)
	return expense, err
}

// ListMine lists the caller's own expenses, newest first
func (s *expenseServiceImpl) ListMine(ctx context.Context, employeeID string, limit, offset int) ([]*entity.Expense, error) {
	if _, err := loadActor(ctx, s.users, employeeID, policy.ViewOwnExpenses); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	expenses, err := s.expenses.ListByEmployee(ctx, employeeID, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list expenses", "error", err, "employee_id", employeeID)
		return nil, err
	}
	return expenses, nil
}

// Ledger returns the approval history of an expense visible to the caller
func (s *expenseServiceImpl) Ledger(ctx context.Context, actorID, expenseID string) (entity.Ledger, error) {
	_, ledger, err := s.visibleExpense(ctx, actorID, expenseID)
	return ledger, err
}

func (s *expenseServiceImpl) visibleExpense(ctx context.Context, actorID, expenseID string) (*entity.Expense, entity.Ledger, error) {
	actor, err := loadActor(ctx, s.users, actorID, policy.ViewOwnExpenses)
	if err != nil {
		return nil, nil, err
	}

	expense, err := s.expenses.GetByID(ctx, expenseID)
	if err != nil {
		return nil, nil, fmt.Errorf("load expense: %w", err)
	}
	if expense == nil || expense.CompanyID != actor.CompanyID {
		return nil, nil, fmt.Errorf("%w: expense %s", approval.ErrNotFound, expenseID)
	}

	ledger, err := s.approvals.GetLedger(ctx, expense.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load ledger: %w", err)
	}

	if expense.EmployeeID == actor.ID || policy.Allowed(actor.Role, policy.ManageUsers) {
		return expense, ledger, nil
	}
	for _, record := range ledger {
		if record.ApproverID == actor.ID {
			return expense, ledger, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: expense %s belongs to another employee", policy.ErrForbidden, expenseID)
}

func (s *expenseServiceImpl) currencyFor(ctx context.Context, employee *entity.User, requested string) (string, error) {
	if c := strings.ToUpper(strings.TrimSpace(requested)); c != "" {
		if err := utils.ValidateCurrencyCode(c); err != nil {
			return "", fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return c, nil
	}
	company, err := s.companies.GetByID(ctx, employee.CompanyID)
	if err != nil {
		return "", fmt.Errorf("load company: %w", err)
	}
	if company != nil && company.DefaultCurrency != "" {
		return company.DefaultCurrency, nil
	}
	return s.defaultCurrency, nil
}

func validateSubmit(req SubmitExpenseRequest) error {
	switch {
	case req.FlowID == "":
		return fmt.Errorf("%w: flow_id is required", ErrValidation)
	case req.Amount.IsNegative():
		return fmt.Errorf("%w: amount must not be negative", ErrValidation)
	case strings.TrimSpace(req.Category) == "":
		return fmt.Errorf("%w: category is required", ErrValidation)
	case req.ExpenseDate.IsZero():
		return fmt.Errorf("%w: expense_date is required", ErrValidation)
	}
	return nil
}
