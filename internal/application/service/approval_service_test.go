package service

import (
	"context"
	"testing"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/approval"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/domain/event"
	"github.com/garyjia/expense-approval/internal/domain/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approve(comments string) DecisionRequest {
	return DecisionRequest{Decision: entity.StatusApproved, Comments: comments}
}

func TestApprovalService_SequentialApproval(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seedFlow("f1", true, entity.RuleNone, nil, "", "a1", "a2")
	expense, first := h.submit(t, "f1")

	outcome, err := h.approvals.Decide(ctx, "mgr", first.ID, approve("fine"))
	require.NoError(t, err)
	assert.Equal(t, approval.ReasonAdvanced, outcome.Reason)
	assert.Equal(t, "a1", outcome.NewApprovalRecord.ApproverID)
	assert.Equal(t, []event.Type{event.TypeApprovalDecided, event.TypeApprovalAssigned}, h.publisher.last())

	second := h.pendingOf(t, expense.ID)
	require.NotNil(t, second)
	outcome, err = h.approvals.Decide(ctx, "a1", second.ID, approve(""))
	require.NoError(t, err)
	assert.Equal(t, "a2", outcome.NewApprovalRecord.ApproverID)

	third := h.pendingOf(t, expense.ID)
	outcome, err = h.approvals.Decide(ctx, "a2", third.ID, approve(""))
	require.NoError(t, err)
	assert.Equal(t, approval.ReasonFinalApproved, outcome.Reason)
	assert.Nil(t, outcome.NewApprovalRecord)
	assert.Equal(t, entity.StatusApproved, h.status(t, expense.ID))
	assert.Nil(t, h.pendingOf(t, expense.ID))
	assert.Equal(t, []event.Type{event.TypeApprovalDecided, event.TypeExpenseApproved}, h.publisher.last())

	ledger, err := h.expenses.Ledger(ctx, "emp", expense.ID)
	require.NoError(t, err)
	require.Len(t, ledger, 3)
	assert.Equal(t, "fine", ledger[0].Comments)
	for _, r := range ledger {
		assert.Equal(t, entity.StatusApproved, r.Status)
		assert.NotNil(t, r.DecidedAt)
	}
}

func TestApprovalService_Reject(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seedFlow("f1", false, entity.RuleNone, nil, "", "a1", "a2")
	expense, first := h.submit(t, "f1")

	outcome, err := h.approvals.Decide(ctx, "a1", first.ID, DecisionRequest{Decision: entity.StatusRejected, Comments: "no receipt"})
	require.NoError(t, err)
	assert.Equal(t, approval.ReasonRejected, outcome.Reason)
	assert.Equal(t, entity.StatusRejected, h.status(t, expense.ID))
	assert.Nil(t, h.pendingOf(t, expense.ID))
	assert.Equal(t, []event.Type{event.TypeApprovalDecided, event.TypeExpenseRejected}, h.publisher.last())

	_, err = h.approvals.Decide(ctx, "a1", first.ID, approve(""))
	assert.ErrorIs(t, err, approval.ErrInvalidState)
}

func TestApprovalService_CriticalApproverAutoApproves(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seedFlow("f1", false, entity.RuleSpecificApprover, nil, "cfo", "cfo", "a1", "a2")
	expense, first := h.submit(t, "f1")

	outcome, err := h.approvals.Decide(ctx, "cfo", first.ID, approve(""))
	require.NoError(t, err)
	assert.True(t, outcome.AutoApproved)
	assert.Equal(t, approval.ReasonAutoApproved, outcome.Reason)
	assert.Equal(t, entity.StatusApproved, h.status(t, expense.ID))

	batch := h.publisher.batches[len(h.publisher.batches)-1]
	require.Len(t, batch, 2)
	assert.True(t, batch[1].GetPayloadBool(event.KeyAutoApproved))
}

func TestApprovalService_PercentageAutoApproves(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seedFlow("f1", false, entity.RulePercentage, intPtr(50), "", "a1", "a2", "cfo", "mgr")
	expense, first := h.submit(t, "f1")

	_, err := h.approvals.Decide(ctx, "a1", first.ID, approve(""))
	require.NoError(t, err)

	second := h.pendingOf(t, expense.ID)
	outcome, err := h.approvals.Decide(ctx, "a2", second.ID, approve(""))
	require.NoError(t, err)
	assert.True(t, outcome.AutoApproved, "2 of 4 steps reach 50%")
	assert.Equal(t, entity.StatusApproved, h.status(t, expense.ID))
}

func TestApprovalService_Rejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seedFlow("f1", false, entity.RuleNone, nil, "", "a1", "a2")
	_, first := h.submit(t, "f1")

	_, err := h.approvals.Decide(ctx, "a2", first.ID, approve(""))
	assert.ErrorIs(t, err, approval.ErrInvalidState, "record belongs to a1")

	_, err = h.approvals.Decide(ctx, "emp", first.ID, approve(""))
	assert.ErrorIs(t, err, policy.ErrForbidden)

	_, err = h.approvals.Decide(ctx, "a1", "missing", approve(""))
	assert.ErrorIs(t, err, approval.ErrNotFound)

	_, err = h.approvals.Decide(ctx, "a1", first.ID, DecisionRequest{Decision: "Maybe"})
	assert.ErrorIs(t, err, approval.ErrInvalidDecision)

	assert.Equal(t, entity.StatusPending, h.pendingOf(t, first.ExpenseID).Status)
}

func TestApprovalService_RetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seedFlow("f1", false, entity.RuleNone, nil, "", "a1", "a2")
	expense, first := h.submit(t, "f1")

	repo := &mockApprovalRepo{s: h.store}
	attempts := 0
	h.store.resolveFunc = func(ctx context.Context, record *entity.ApprovalRecord) error {
		attempts++
		if attempts == 1 {
			return port.ErrConflict
		}
		return repo.resolve(record)
	}

	outcome, err := h.approvals.Decide(ctx, "a1", first.ID, approve(""))
	require.NoError(t, err)
	assert.Equal(t, approval.ReasonAdvanced, outcome.Reason)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []string{expense.ID}, h.conflicts)
}

func TestApprovalService_ConcurrentDeciderLoses(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seedFlow("f1", false, entity.RuleNone, nil, "", "a1", "a2")
	expense, first := h.submit(t, "f1")

	// another decider commits the same record between our read and our write
	repo := &mockApprovalRepo{s: h.store}
	h.store.resolveFunc = func(ctx context.Context, record *entity.ApprovalRecord) error {
		h.store.resolveFunc = nil
		rival := *record
		rival.Status = entity.StatusRejected
		require.NoError(t, repo.resolve(&rival))
		h.store.expenses[expense.ID].Status = entity.StatusRejected
		return repo.resolve(record)
	}

	_, err := h.approvals.Decide(ctx, "a1", first.ID, approve(""))
	assert.ErrorIs(t, err, approval.ErrInvalidState, "re-evaluation sees the terminal expense")
	assert.Len(t, h.conflicts, 1)
	assert.Equal(t, entity.StatusRejected, h.status(t, expense.ID))
}

func TestApprovalService_RetriesExhausted(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seedFlow("f1", false, entity.RuleNone, nil, "", "a1")
	_, first := h.submit(t, "f1")

	attempts := 0
	h.store.resolveFunc = func(ctx context.Context, record *entity.ApprovalRecord) error {
		attempts++
		return port.ErrConflict
	}

	_, err := h.approvals.Decide(ctx, "a1", first.ID, approve(""))
	assert.ErrorIs(t, err, port.ErrConflict)
	assert.Equal(t, 3, attempts)
	assert.Len(t, h.conflicts, 3)
}

func TestApprovalService_PendingFor(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seedFlow("f1", true, entity.RuleNone, nil, "", "a1")
	e1, _ := h.submit(t, "f1")
	e2, _ := h.submit(t, "f1")

	pending, err := h.approvals.PendingFor(ctx, "mgr")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	ids := []string{pending[0].Expense.ID, pending[1].Expense.ID}
	assert.ElementsMatch(t, []string{e1.ID, e2.ID}, ids)

	none, err := h.approvals.PendingFor(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = h.approvals.PendingFor(ctx, "emp")
	assert.ErrorIs(t, err, policy.ErrForbidden)
}
