package service

import (
	"context"
	"testing"
	"time"

	"github.com/garyjia/expense-approval/internal/domain/approval"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type harness struct {
	store     *memStore
	users     *mockUserRepo
	tx        *mockTxManager
	publisher *mockPublisher
	conflicts []string

	expenses  ExpenseService
	approvals ApprovalService
	flows     FlowService
	accounts  UserService
}

// newHarness seeds company c1 with admin, mgr, emp (reporting to mgr), approvers a1, a2, cfo
// and company c2 with outsider
func newHarness(t *testing.T) *harness {
	t.Helper()

	store := newMemStore()
	store.companies["c1"] = &entity.Company{ID: "c1", Name: "Acme", DefaultCurrency: "EUR"}
	store.companies["c2"] = &entity.Company{ID: "c2", Name: "Other", DefaultCurrency: "USD"}

	for _, u := range []*entity.User{
		{ID: "admin", Name: "Ada", Email: "ada@acme.test", Role: entity.RoleAdmin, CompanyID: "c1"},
		{ID: "mgr", Name: "Max", Email: "max@acme.test", Role: entity.RoleManager, CompanyID: "c1"},
		{ID: "emp", Name: "Eve", Email: "eve@acme.test", Role: entity.RoleEmployee, CompanyID: "c1", ManagerID: "mgr"},
		{ID: "peer", Name: "Pat", Email: "pat@acme.test", Role: entity.RoleEmployee, CompanyID: "c1", ManagerID: "mgr"},
		{ID: "a1", Name: "Ann", Email: "ann@acme.test", Role: entity.RoleManager, CompanyID: "c1"},
		{ID: "a2", Name: "Bob", Email: "bob@acme.test", Role: entity.RoleManager, CompanyID: "c1"},
		{ID: "cfo", Name: "Cy", Email: "cy@acme.test", Role: entity.RoleAdmin, CompanyID: "c1"},
		{ID: "outsider", Name: "Oz", Email: "oz@other.test", Role: entity.RoleAdmin, CompanyID: "c2"},
	} {
		store.addUser(u)
	}

	h := &harness{
		store:     store,
		users:     &mockUserRepo{s: store},
		tx:        &mockTxManager{},
		publisher: &mockPublisher{},
	}

	expenseRepo := &mockExpenseRepo{s: store}
	approvalRepo := &mockApprovalRepo{s: store}
	flowRepo := &mockFlowRepo{s: store}
	companyRepo := &mockCompanyRepo{s: store}
	engine := approval.NewEngine()

	h.expenses = NewExpenseService(expenseRepo, approvalRepo, flowRepo, h.users, companyRepo, h.tx, engine, h.publisher, mockLogger{})
	h.approvals = NewApprovalService(expenseRepo, approvalRepo, flowRepo, h.users, h.tx, engine, h.publisher, mockLogger{},
		WithMaxDecisionRetries(3),
		WithConflictHook(func(expenseID string) { h.conflicts = append(h.conflicts, expenseID) }),
	)
	h.flows = NewFlowService(flowRepo, h.users, h.tx, mockLogger{})
	h.accounts = NewUserService(h.users, companyRepo, h.tx, "Bootstrap Inc", "USD", mockLogger{})
	return h
}

func intPtr(v int) *int { return &v }

// seedFlow stores a flow of company c1
func (h *harness) seedFlow(id string, managerFirst bool, rule entity.RuleType, pct *int, critical string, approvers ...string) {
	steps := make([]entity.FlowStep, len(approvers))
	for i, a := range approvers {
		steps[i] = entity.FlowStep{SequenceOrder: i + 1, ApproverID: a}
	}
	h.store.addFlow(&entity.FlowDefinition{
		ID:                     id,
		Name:                   id,
		CompanyID:              "c1",
		IsManagerApproverFirst: managerFirst,
		Steps:                  steps,
		RuleType:               rule,
		ApprovalPercentage:     pct,
		CriticalApproverID:     critical,
	})
}

func submitReq(flowID string) SubmitExpenseRequest {
	return SubmitExpenseRequest{
		FlowID:      flowID,
		Amount:      decimal.RequireFromString("42.50"),
		Category:    entity.CategoryMeals,
		Description: "Team lunch",
		ExpenseDate: time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
	}
}

// submit files an expense for emp and returns it with its first pending record
func (h *harness) submit(t *testing.T, flowID string) (*entity.Expense, *entity.ApprovalRecord) {
	t.Helper()
	expense, record, err := h.expenses.Submit(context.Background(), "emp", submitReq(flowID))
	require.NoError(t, err)
	return expense, record
}

// pendingOf returns the single pending record of an expense, or nil
func (h *harness) pendingOf(t *testing.T, expenseID string) *entity.ApprovalRecord {
	t.Helper()
	ledger, err := (&mockApprovalRepo{s: h.store}).GetLedger(context.Background(), expenseID)
	require.NoError(t, err)
	pending := ledger.PendingRecords()
	require.LessOrEqual(t, len(pending), 1)
	if len(pending) == 0 {
		return nil
	}
	return &pending[0]
}

func (h *harness) status(t *testing.T, expenseID string) string {
	t.Helper()
	e, err := (&mockExpenseRepo{s: h.store}).GetByID(context.Background(), expenseID)
	require.NoError(t, err)
	require.NotNil(t, e)
	return e.Status
}
