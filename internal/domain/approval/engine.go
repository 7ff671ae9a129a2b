package approval

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/domain/workflow"
)

const (
	commentManagerFirst = "Initial manager approval."
	commentFirstStep    = "First step in the flow."
)

// IDGenerator produces identifiers for new approval records
type IDGenerator func() string

// Clock supplies creation and decision timestamps
type Clock func() time.Time

// Engine is the approval workflow state machine. It holds no per-expense state
// and is safe for concurrent use.
type Engine struct {
	newID IDGenerator
	now   Clock
}

// Option configures the engine
type Option func(*Engine)

// WithIDGenerator sets the identifier source for new approval records
func WithIDGenerator(gen IDGenerator) Option {
	return func(e *Engine) {
		e.newID = gen
	}
}

// WithClock sets the timestamp source
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		e.now = clock
	}
}

// NewEngine creates a new workflow engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// SubmitInput is the snapshot needed to start the approval of a new expense
type SubmitInput struct {
	Expense *entity.Expense
	Flow    *entity.FlowDefinition
	Ledger  entity.Ledger

	// ManagerID is the submitting employee's manager, empty when none is known
	ManagerID string
}

// DecisionInput is the snapshot plus the decision being processed
type DecisionInput struct {
	Expense                *entity.Expense
	Flow                   *entity.FlowDefinition
	Ledger                 entity.Ledger
	ApproverID             string
	Decision               string
	ActiveApprovalRecordID string
	Comments               string
}

// SubmitExpense creates the first pending approval record for a freshly submitted expense
func (e *Engine) SubmitExpense(in SubmitInput) (*WorkflowOutcome, error) {
	if err := checkSnapshot(in.Expense, in.Flow); err != nil {
		return nil, err
	}
	if in.Expense.Status != entity.StatusPending {
		return nil, fmt.Errorf("%w: expense %s is %s", ErrInvalidState, in.Expense.ID, in.Expense.Status)
	}
	if len(in.Ledger) > 0 {
		return nil, fmt.Errorf("%w: expense %s already has %d approval records", ErrInvalidState, in.Expense.ID, len(in.Ledger))
	}

	var approverID, comments string
	steps := SortedSteps(in.Flow.Steps)

	switch {
	case in.Flow.IsManagerApproverFirst && in.ManagerID != "":
		approverID, comments = in.ManagerID, commentManagerFirst
	case len(steps) > 0:
		approverID, comments = steps[0].ApproverID, commentFirstStep
	default:
		return nil, fmt.Errorf("%w: flow %s has no steps and employee %s has no manager",
			ErrInvalidConfiguration, in.Flow.ID, in.Expense.EmployeeID)
	}

	return &WorkflowOutcome{
		ExpenseID:         in.Expense.ID,
		PreviousStatus:    entity.StatusPending,
		NewExpenseStatus:  entity.StatusPending,
		NewApprovalRecord: e.pendingRecord(in.Expense.ID, approverID, comments),
		Reason:            ReasonSubmitted,
	}, nil
}

// ProcessDecision resolves the active approval record and decides the next state of the expense
func (e *Engine) ProcessDecision(in DecisionInput) (*WorkflowOutcome, error) {
	if err := checkSnapshot(in.Expense, in.Flow); err != nil {
		return nil, err
	}
	if in.Decision != entity.StatusApproved && in.Decision != entity.StatusRejected {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, in.Decision)
	}

	machine, err := workflow.NewExpenseMachine(in.Expense.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if machine.State().IsTerminal() {
		return nil, fmt.Errorf("%w: expense %s is already %s", ErrInvalidState, in.Expense.ID, in.Expense.Status)
	}

	active, err := activeRecord(in)
	if err != nil {
		return nil, err
	}

	now := e.now()
	mutation := *active
	mutation.Status = in.Decision
	mutation.DecidedAt = &now
	if in.Comments != "" {
		mutation.Comments = in.Comments
	}

	outcome := &WorkflowOutcome{
		ExpenseID:      in.Expense.ID,
		PreviousStatus: in.Expense.Status,
		LedgerMutation: &mutation,
	}

	if in.Decision == entity.StatusRejected {
		return fire(machine, workflow.TriggerReject, outcome, ReasonRejected)
	}

	if auto := Evaluate(in.Flow, in.Ledger, in.ApproverID, in.Decision); auto.AutoApproved {
		outcome.AutoApproved = true
		return fire(machine, workflow.TriggerAutoApprove, outcome, ReasonAutoApproved)
	}

	step := NextStep(in.Flow, in.Ledger, in.ApproverID)
	if step.HasNext {
		outcome.NewExpenseStatus = machine.State().String()
		outcome.NewApprovalRecord = e.pendingRecord(in.Expense.ID, step.NextApproverID, "")
		outcome.Reason = ReasonAdvanced
		return outcome, nil
	}

	return fire(machine, workflow.TriggerApprove, outcome, ReasonFinalApproved)
}

func (e *Engine) pendingRecord(expenseID, approverID, comments string) *entity.ApprovalRecord {
	return &entity.ApprovalRecord{
		ID:         e.newID(),
		ExpenseID:  expenseID,
		ApproverID: approverID,
		Status:     entity.StatusPending,
		Comments:   comments,
		CreatedAt:  e.now(),
	}
}

func fire(machine workflow.StateMachine, trigger workflow.Trigger, outcome *WorkflowOutcome, reason OutcomeReason) (*WorkflowOutcome, error) {
	if !machine.CanFire(trigger) {
		return nil, fmt.Errorf("%w: expense %s cannot take %s from %s", ErrInvalidState, outcome.ExpenseID, trigger, machine.State())
	}
	if err := machine.Fire(trigger); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	outcome.NewExpenseStatus = machine.State().String()
	outcome.Reason = reason
	return outcome, nil
}

func checkSnapshot(expense *entity.Expense, flow *entity.FlowDefinition) error {
	if expense == nil {
		return fmt.Errorf("%w: expense missing from snapshot", ErrNotFound)
	}
	if flow == nil || flow.ID != expense.FlowID {
		return fmt.Errorf("%w: flow %s for expense %s", ErrNotFound, expense.FlowID, expense.ID)
	}
	return ValidateFlow(flow)
}

// activeRecord finds the single pending record the approver is resolving
func activeRecord(in DecisionInput) (*entity.ApprovalRecord, error) {
	pending := in.Ledger.PendingRecords()
	if len(pending) > 1 {
		return nil, fmt.Errorf("%w: expense %s has %d pending approval records", ErrInvalidState, in.Expense.ID, len(pending))
	}

	active := in.Ledger.Find(in.ActiveApprovalRecordID)
	switch {
	case active == nil:
		return nil, fmt.Errorf("%w: approval record %s not in ledger of expense %s", ErrInvalidState, in.ActiveApprovalRecordID, in.Expense.ID)
	case active.ExpenseID != in.Expense.ID:
		return nil, fmt.Errorf("%w: approval record %s belongs to expense %s", ErrInvalidState, active.ID, active.ExpenseID)
	case !active.IsPending():
		return nil, fmt.Errorf("%w: approval record %s is already %s", ErrInvalidState, active.ID, active.Status)
	case active.ApproverID != in.ApproverID:
		return nil, fmt.Errorf("%w: approval record %s is assigned to another approver", ErrInvalidState, active.ID)
	}

	return active, nil
}
