package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/approval"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/domain/policy"
)

// DecisionRequest is an approver's verdict on the active record of an expense
type DecisionRequest struct {
	Decision string
	Comments string
}

// PendingApproval pairs an active approval record with the expense it gates
type PendingApproval struct {
	Record  *entity.ApprovalRecord `json:"record"`
	Expense *entity.Expense        `json:"expense"`
}

// ApprovalService processes approver decisions and serves the approver dashboard
type ApprovalService interface {
	Decide(ctx context.Context, approverID, recordID string, req DecisionRequest) (*approval.WorkflowOutcome, error)
	PendingFor(ctx context.Context, approverID string) ([]PendingApproval, error)
}

type approvalServiceImpl struct {
	expenses   port.ExpenseRepository
	approvals  port.ApprovalRepository
	flows      port.FlowRepository
	users      port.UserRepository
	txManager  port.TransactionManager
	engine     *approval.Engine
	publisher  Publisher
	maxRetries int
	onConflict func(expenseID string)
	logger     Logger
}

// ApprovalServiceOption configures the approval service
type ApprovalServiceOption func(*approvalServiceImpl)

// WithMaxDecisionRetries bounds the read-evaluate-commit attempts of one decision
func WithMaxDecisionRetries(n int) ApprovalServiceOption {
	return func(s *approvalServiceImpl) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithConflictHook is called each time a commit loses an optimistic concurrency race
func WithConflictHook(hook func(expenseID string)) ApprovalServiceOption {
	return func(s *approvalServiceImpl) {
		s.onConflict = hook
	}
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(
	expenses port.ExpenseRepository,
	approvals port.ApprovalRepository,
	flows port.FlowRepository,
	users port.UserRepository,
	txManager port.TransactionManager,
	engine *approval.Engine,
	publisher Publisher,
	logger Logger,
	opts ...ApprovalServiceOption,
) ApprovalService {
	s := &approvalServiceImpl{
		expenses:   expenses,
		approvals:  approvals,
		flows:      flows,
		users:      users,
		txManager:  txManager,
		engine:     engine,
		publisher:  publisher,
		maxRetries: 3,
		onConflict: func(string) {},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Decide applies the decision and commits the outcome atomically.
// A lost race re-reads the snapshot and re-evaluates; the second decider of the
// same record then sees it decided and gets ErrInvalidState.
func (s *approvalServiceImpl) Decide(ctx context.Context, approverID, recordID string, req DecisionRequest) (*approval.WorkflowOutcome, error) {
	if _, err := loadActor(ctx, s.users, approverID, policy.DecideApproval); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		outcome, expense, err := s.decideOnce(ctx, approverID, recordID, req)
		if err == nil {
			s.logger.Info("Decision committed",
				"expense_id", outcome.ExpenseID,
				"record_id", recordID,
				"approver_id", approverID,
				"decision", req.Decision,
				"reason", outcome.Reason,
				"new_status", outcome.NewExpenseStatus,
				"attempt", attempt,
			)
			s.publisher.Publish(ctx, outcomeEvents(outcome, expense))
			return outcome, nil
		}
		if !errors.Is(err, port.ErrConflict) {
			return nil, err
		}

		lastErr = err
		if expense != nil {
			s.onConflict(expense.ID)
		}
		s.logger.Info("Decision conflict, retrying",
			"record_id", recordID,
			"approver_id", approverID,
			"attempt", attempt,
			"error", err,
		)
	}

	s.logger.Error("Decision retries exhausted", "record_id", recordID, "approver_id", approverID, "error", lastErr)
	return nil, fmt.Errorf("decision on %s not committed after %d attempts: %w", recordID, s.maxRetries, lastErr)
}

func (s *approvalServiceImpl) decideOnce(ctx context.Context, approverID, recordID string, req DecisionRequest) (*approval.WorkflowOutcome, *entity.Expense, error) {
	record, err := s.approvals.GetByID(ctx, recordID)
	if err != nil {
		return nil, nil, fmt.Errorf("load approval: %w", err)
	}
	if record == nil {
		return nil, nil, fmt.Errorf("%w: approval %s", approval.ErrNotFound, recordID)
	}

	expense, err := s.expenses.GetByID(ctx, record.ExpenseID)
	if err != nil {
		return nil, nil, fmt.Errorf("load expense: %w", err)
	}
	if expense == nil {
		return nil, nil, fmt.Errorf("%w: expense %s", approval.ErrNotFound, record.ExpenseID)
	}

	flow, err := s.flows.GetByID(ctx, expense.FlowID)
	if err != nil {
		return nil, nil, fmt.Errorf("load flow: %w", err)
	}
	if flow == nil {
		return nil, nil, fmt.Errorf("%w: flow %s", approval.ErrNotFound, expense.FlowID)
	}

	ledger, err := s.approvals.GetLedger(ctx, expense.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load ledger: %w", err)
	}

	outcome, err := s.engine.ProcessDecision(approval.DecisionInput{
		Expense:                expense,
		Flow:                   flow,
		Ledger:                 ledger,
		ApproverID:             approverID,
		Decision:               req.Decision,
		ActiveApprovalRecordID: recordID,
		Comments:               req.Comments,
	})
	if err != nil {
		return nil, expense, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return commitOutcome(txCtx, s.expenses, s.approvals, outcome)
	})
	if err != nil {
		return nil, expense, err
	}
	return outcome, expense, nil
}

// PendingFor lists the records awaiting the approver with their expenses, oldest first
func (s *approvalServiceImpl) PendingFor(ctx context.Context, approverID string) ([]PendingApproval, error) {
	if _, err := loadActor(ctx, s.users, approverID, policy.DecideApproval); err != nil {
		return nil, err
	}

	records, err := s.approvals.ListPendingByApprover(ctx, approverID)
	if err != nil {
		s.logger.Error("Failed to list pending approvals", "error", err, "approver_id", approverID)
		return nil, err
	}

	pending := make([]PendingApproval, 0, len(records))
	for _, record := range records {
		expense, err := s.expenses.GetByID(ctx, record.ExpenseID)
		if err != nil {
			return nil, fmt.Errorf("load expense %s: %w", record.ExpenseID, err)
		}
		if expense == nil {
			continue
		}
		pending = append(pending, PendingApproval{Record: record, Expense: expense})
	}
	return pending, nil
}
