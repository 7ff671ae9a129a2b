package service

import (
	"context"
	"fmt"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/approval"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/domain/event"
	"github.com/google/uuid"
)

// commitOutcome writes an engine outcome. It must run inside a transaction;
// every write is conditional so a concurrent decider surfaces as port.ErrConflict.
func commitOutcome(ctx context.Context, expenses port.ExpenseRepository, approvals port.ApprovalRepository, outcome *approval.WorkflowOutcome) error {
	if outcome.LedgerMutation != nil {
		if err := approvals.Resolve(ctx, outcome.LedgerMutation); err != nil {
			return fmt.Errorf("resolve approval: %w", err)
		}
	}

	if outcome.StatusChanged() {
		if err := expenses.CompareAndSetStatus(ctx, outcome.ExpenseID, outcome.PreviousStatus, outcome.NewExpenseStatus); err != nil {
			return fmt.Errorf("update expense status: %w", err)
		}
	}

	if outcome.NewApprovalRecord != nil {
		if err := approvals.Create(ctx, outcome.NewApprovalRecord); err != nil {
			return fmt.Errorf("create approval: %w", err)
		}
	}

	return nil
}

// outcomeEvents maps a committed outcome to the events announcing it, in causal order
func outcomeEvents(outcome *approval.WorkflowOutcome, expense *entity.Expense) []*event.Event {
	correlationID := uuid.NewString()
	newEvent := func(t event.Type, payload map[string]interface{}) *event.Event {
		return event.NewEventWithCorrelation(t, outcome.ExpenseID, payload, correlationID)
	}

	var events []*event.Event

	if outcome.Reason == approval.ReasonSubmitted {
		events = append(events, newEvent(event.TypeExpenseSubmitted, map[string]interface{}{
			event.KeyEmployeeID: expense.EmployeeID,
		}))
	}

	if m := outcome.LedgerMutation; m != nil {
		events = append(events, newEvent(event.TypeApprovalDecided, map[string]interface{}{
			event.KeyApproverID: m.ApproverID,
			event.KeyRecordID:   m.ID,
			event.KeyDecision:   m.Status,
			event.KeyReason:     string(outcome.Reason),
		}))
	}

	if r := outcome.NewApprovalRecord; r != nil {
		events = append(events, newEvent(event.TypeApprovalAssigned, map[string]interface{}{
			event.KeyApproverID: r.ApproverID,
			event.KeyRecordID:   r.ID,
		}))
	}

	switch outcome.NewExpenseStatus {
	case entity.StatusApproved:
		events = append(events, newEvent(event.TypeExpenseApproved, map[string]interface{}{
			event.KeyEmployeeID:   expense.EmployeeID,
			event.KeyAutoApproved: outcome.AutoApproved,
			event.KeyReason:       string(outcome.Reason),
		}))
	case entity.StatusRejected:
		events = append(events, newEvent(event.TypeExpenseRejected, map[string]interface{}{
			event.KeyEmployeeID: expense.EmployeeID,
			event.KeyReason:     string(outcome.Reason),
		}))
	}

	return events
}
