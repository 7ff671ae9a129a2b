package approval

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func steps(approvers ...string) []entity.FlowStep {
	out := make([]entity.FlowStep, len(approvers))
	for i, a := range approvers {
		out[i] = entity.FlowStep{SequenceOrder: i + 1, ApproverID: a}
	}
	return out
}

func newTestEngine() *Engine {
	n := 0
	return NewEngine(
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("rec-%d", n)
		}),
		WithClock(func() time.Time { return fixedNow }),
	)
}

// harness plays the caller's role: it keeps the snapshot and commits every outcome
type harness struct {
	t       *testing.T
	engine  *Engine
	expense *entity.Expense
	flow    *entity.FlowDefinition
	ledger  entity.Ledger
}

func newHarness(t *testing.T, flow *entity.FlowDefinition, managerID string) *harness {
	t.Helper()
	flow.ID = "flow-1"
	h := &harness{
		t:      t,
		engine: newTestEngine(),
		flow:   flow,
		expense: &entity.Expense{
			ID:         "exp-1",
			EmployeeID: "emp-1",
			FlowID:     flow.ID,
			Status:     entity.StatusPending,
		},
	}

	outcome, err := h.engine.SubmitExpense(SubmitInput{
		Expense:   h.expense,
		Flow:      h.flow,
		ManagerID: managerID,
	})
	require.NoError(t, err)
	h.commit(outcome)
	return h
}

func (h *harness) commit(o *WorkflowOutcome) {
	if o.LedgerMutation != nil {
		idx := h.ledger.IndexOf(o.LedgerMutation.ID)
		require.GreaterOrEqual(h.t, idx, 0)
		h.ledger[idx] = *o.LedgerMutation
	}
	if o.NewApprovalRecord != nil {
		h.ledger = append(h.ledger, *o.NewApprovalRecord)
	}
	h.expense.Status = o.NewExpenseStatus
}

func (h *harness) pending() *entity.ApprovalRecord {
	p := h.ledger.PendingRecords()
	if len(p) == 0 {
		return nil
	}
	return &p[0]
}

func (h *harness) decide(approverID, decision string) (*WorkflowOutcome, error) {
	active := ""
	if p := h.pending(); p != nil {
		active = p.ID
	}
	outcome, err := h.engine.ProcessDecision(DecisionInput{
		Expense:                h.expense,
		Flow:                   h.flow,
		Ledger:                 h.ledger,
		ApproverID:             approverID,
		Decision:               decision,
		ActiveApprovalRecordID: active,
	})
	if err == nil {
		h.commit(outcome)
	}
	return outcome, err
}
