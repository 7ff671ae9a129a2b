package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/domain/event"
)

// memStore backs every repository mock with maps; the func fields override single calls
type memStore struct {
	mu        sync.Mutex
	companies map[string]*entity.Company
	users     map[string]*entity.User
	flows     map[string]*entity.FlowDefinition
	expenses  map[string]*entity.Expense
	records   []*entity.ApprovalRecord

	resolveFunc func(ctx context.Context, record *entity.ApprovalRecord) error
	casFunc     func(ctx context.Context, id, from, to string) error
}

func newMemStore() *memStore {
	return &memStore{
		companies: make(map[string]*entity.Company),
		users:     make(map[string]*entity.User),
		flows:     make(map[string]*entity.FlowDefinition),
		expenses:  make(map[string]*entity.Expense),
	}
}

func (m *memStore) addUser(u *entity.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *u
	m.users[u.ID] = &clone
}

func (m *memStore) addFlow(f *entity.FlowDefinition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *f
	m.flows[f.ID] = &clone
}

// mockCompanyRepo

type mockCompanyRepo struct{ s *memStore }

func (r *mockCompanyRepo) Create(ctx context.Context, c *entity.Company) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	clone := *c
	r.s.companies[c.ID] = &clone
	return nil
}

func (r *mockCompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.companies[id]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, nil
}

// mockUserRepo

type mockUserRepo struct {
	s *memStore

	getByIDFunc func(ctx context.Context, id string) (*entity.User, error)
}

func (r *mockUserRepo) Create(ctx context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return fmt.Errorf("duplicate email: %w", port.ErrConflict)
		}
	}
	clone := *u
	r.s.users[u.ID] = &clone
	return nil
}

func (r *mockUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if r.getByIDFunc != nil {
		return r.getByIDFunc(ctx, id)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, nil
}

func (r *mockUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *mockUserRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var users []*entity.User
	for _, u := range r.s.users {
		if u.CompanyID == companyID {
			clone := *u
			users = append(users, &clone)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *mockUserRepo) UpdateRole(ctx context.Context, id, role string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.Role = role
	return nil
}

func (r *mockUserRepo) UpdateManager(ctx context.Context, id, managerID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.ManagerID = managerID
	return nil
}

func (r *mockUserRepo) GetManagerID(ctx context.Context, employeeID string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[employeeID]; ok {
		return u.ManagerID, nil
	}
	return "", nil
}

func (r *mockUserRepo) Count(ctx context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.users), nil
}

// mockFlowRepo

type mockFlowRepo struct{ s *memStore }

func (r *mockFlowRepo) Create(ctx context.Context, f *entity.FlowDefinition) error {
	r.s.addFlow(f)
	return nil
}

func (r *mockFlowRepo) GetByID(ctx context.Context, id string) (*entity.FlowDefinition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if f, ok := r.s.flows[id]; ok {
		clone := *f
		return &clone, nil
	}
	return nil, nil
}

func (r *mockFlowRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.FlowDefinition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var flows []*entity.FlowDefinition
	for _, f := range r.s.flows {
		if f.CompanyID == companyID {
			clone := *f
			flows = append(flows, &clone)
		}
	}
	return flows, nil
}

// mockExpenseRepo

type mockExpenseRepo struct{ s *memStore }

func (r *mockExpenseRepo) Create(ctx context.Context, e *entity.Expense) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	clone := *e
	r.s.expenses[e.ID] = &clone
	return nil
}

func (r *mockExpenseRepo) GetByID(ctx context.Context, id string) (*entity.Expense, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e, ok := r.s.expenses[id]; ok {
		clone := *e
		return &clone, nil
	}
	return nil, nil
}

func (r *mockExpenseRepo) ListByEmployee(ctx context.Context, employeeID string, limit, offset int) ([]*entity.Expense, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Expense
	for _, e := range r.s.expenses {
		if e.EmployeeID == employeeID {
			clone := *e
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *mockExpenseRepo) CompareAndSetStatus(ctx context.Context, id, from, to string) error {
	if r.s.casFunc != nil {
		return r.s.casFunc(ctx, id, from, to)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.expenses[id]
	if !ok || e.Status != from {
		return port.ErrConflict
	}
	e.Status = to
	return nil
}

// mockApprovalRepo

type mockApprovalRepo struct{ s *memStore }

func (r *mockApprovalRepo) Create(ctx context.Context, rec *entity.ApprovalRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rec.Status == entity.StatusPending {
		for _, existing := range r.s.records {
			if existing.ExpenseID == rec.ExpenseID && existing.Status == entity.StatusPending {
				return port.ErrConflict
			}
		}
	}
	clone := *rec
	r.s.records = append(r.s.records, &clone)
	return nil
}

func (r *mockApprovalRepo) GetByID(ctx context.Context, id string) (*entity.ApprovalRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range r.s.records {
		if rec.ID == id {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *mockApprovalRepo) GetLedger(ctx context.Context, expenseID string) (entity.Ledger, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ledger := entity.Ledger{}
	for _, rec := range r.s.records {
		if rec.ExpenseID == expenseID {
			ledger = append(ledger, *rec)
		}
	}
	return ledger, nil
}

func (r *mockApprovalRepo) ListPendingByApprover(ctx context.Context, approverID string) ([]*entity.ApprovalRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.ApprovalRecord
	for _, rec := range r.s.records {
		if rec.ApproverID == approverID && rec.Status == entity.StatusPending {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *mockApprovalRepo) Resolve(ctx context.Context, rec *entity.ApprovalRecord) error {
	if r.s.resolveFunc != nil {
		return r.s.resolveFunc(ctx, rec)
	}
	return r.resolve(rec)
}

func (r *mockApprovalRepo) resolve(rec *entity.ApprovalRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.records {
		if existing.ID == rec.ID {
			if existing.Status != entity.StatusPending {
				return port.ErrConflict
			}
			existing.Status = rec.Status
			existing.Comments = rec.Comments
			existing.DecidedAt = rec.DecidedAt
			return nil
		}
	}
	return port.ErrConflict
}

// mockTxManager runs fn directly; rollback is not simulated
type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

// mockPublisher records published batches
type mockPublisher struct {
	mu      sync.Mutex
	batches [][]*event.Event
}

func (m *mockPublisher) Publish(ctx context.Context, events []*event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, events)
}

func (m *mockPublisher) last() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.batches) == 0 {
		return nil
	}
	var types []event.Type
	for _, evt := range m.batches[len(m.batches)-1] {
		types = append(types, evt.Type)
	}
	return types
}

// mockLogger discards log lines
type mockLogger struct{}

func (mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (mockLogger) Error(msg string, keysAndValues ...interface{}) {}
