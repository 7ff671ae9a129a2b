package service

import (
	"context"
	"testing"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/approval"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/domain/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmptyUserService() (UserService, *memStore) {
	store := newMemStore()
	svc := NewUserService(&mockUserRepo{s: store}, &mockCompanyRepo{s: store}, &mockTxManager{}, "Bootstrap Inc", "USD", mockLogger{})
	return svc, store
}

func TestUserService_Signup(t *testing.T) {
	ctx := context.Background()

	t.Run("first user bootstraps a company as admin", func(t *testing.T) {
		svc, store := newEmptyUserService()

		user, err := svc.Signup(ctx, "", SignupRequest{Name: "Ada", Email: "Ada@Example.com", Role: entity.RoleEmployee})
		require.NoError(t, err)

		assert.Equal(t, entity.RoleAdmin, user.Role)
		assert.Equal(t, "ada@example.com", user.Email)
		require.Contains(t, store.companies, user.CompanyID)
		assert.Equal(t, "Bootstrap Inc", store.companies[user.CompanyID].Name)
		assert.Equal(t, "USD", store.companies[user.CompanyID].DefaultCurrency)
	})

	t.Run("self signup needs an existing company", func(t *testing.T) {
		svc, store := newEmptyUserService()
		admin, err := svc.Signup(ctx, "", SignupRequest{Name: "Ada", Email: "ada@example.com"})
		require.NoError(t, err)

		_, err = svc.Signup(ctx, "", SignupRequest{Name: "Eve", Email: "eve@example.com"})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = svc.Signup(ctx, "", SignupRequest{Name: "Eve", Email: "eve@example.com", CompanyID: "nope"})
		assert.ErrorIs(t, err, approval.ErrNotFound)

		eve, err := svc.Signup(ctx, "", SignupRequest{Name: "Eve", Email: "eve@example.com", CompanyID: admin.CompanyID, Role: entity.RoleAdmin})
		require.NoError(t, err)
		assert.Equal(t, entity.RoleEmployee, eve.Role, "self signup cannot pick a role")
		assert.Len(t, store.companies, 1)
	})

	t.Run("admin creates users with role and manager", func(t *testing.T) {
		h := newHarness(t)

		user, err := h.accounts.Signup(ctx, "admin", SignupRequest{Name: "New", Email: "new@acme.test", Role: entity.RoleManager, ManagerID: "mgr"})
		require.NoError(t, err)
		assert.Equal(t, "c1", user.CompanyID)
		assert.Equal(t, entity.RoleManager, user.Role)
		assert.Equal(t, "mgr", user.ManagerID)

		_, err = h.accounts.Signup(ctx, "admin", SignupRequest{Name: "Bad", Email: "bad@acme.test", ManagerID: "emp"})
		assert.ErrorIs(t, err, ErrValidation, "employees cannot manage")

		_, err = h.accounts.Signup(ctx, "admin", SignupRequest{Name: "Bad", Email: "bad@acme.test", Role: "Owner"})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = h.accounts.Signup(ctx, "emp", SignupRequest{Name: "Bad", Email: "bad@acme.test"})
		assert.ErrorIs(t, err, policy.ErrForbidden)
	})

	t.Run("input validation", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.accounts.Signup(ctx, "admin", SignupRequest{Name: "", Email: "x@acme.test"})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = h.accounts.Signup(ctx, "admin", SignupRequest{Name: "X", Email: "not-an-email"})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = h.accounts.Signup(ctx, "admin", SignupRequest{Name: "X", Email: "eve@acme.test"})
		assert.ErrorIs(t, err, port.ErrConflict)
	})
}

func TestUserService_Administration(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	t.Run("update role", func(t *testing.T) {
		user, err := h.accounts.UpdateRole(ctx, "admin", "emp", entity.RoleManager)
		require.NoError(t, err)
		assert.Equal(t, entity.RoleManager, user.Role)

		_, err = h.accounts.UpdateRole(ctx, "admin", "admin", entity.RoleEmployee)
		assert.ErrorIs(t, err, ErrValidation)

		_, err = h.accounts.UpdateRole(ctx, "admin", "outsider", entity.RoleEmployee)
		assert.ErrorIs(t, err, approval.ErrNotFound)

		_, err = h.accounts.UpdateRole(ctx, "mgr", "emp", entity.RoleAdmin)
		assert.ErrorIs(t, err, policy.ErrForbidden)
	})

	t.Run("assign manager", func(t *testing.T) {
		user, err := h.accounts.AssignManager(ctx, "admin", "peer", "a1")
		require.NoError(t, err)
		assert.Equal(t, "a1", user.ManagerID)

		managerID, err := h.users.GetManagerID(ctx, "peer")
		require.NoError(t, err)
		assert.Equal(t, "a1", managerID)

		_, err = h.accounts.AssignManager(ctx, "admin", "a1", "a1")
		assert.ErrorIs(t, err, ErrValidation)

		_, err = h.accounts.AssignManager(ctx, "admin", "peer", "outsider")
		assert.ErrorIs(t, err, ErrValidation)

		cleared, err := h.accounts.AssignManager(ctx, "admin", "peer", "")
		require.NoError(t, err)
		assert.Empty(t, cleared.ManagerID)
	})

	t.Run("list and get", func(t *testing.T) {
		users, err := h.accounts.List(ctx, "admin")
		require.NoError(t, err)
		assert.Len(t, users, 7)

		self, err := h.accounts.Get(ctx, "peer", "peer")
		require.NoError(t, err)
		assert.Equal(t, "peer", self.ID)

		_, err = h.accounts.Get(ctx, "peer", "emp")
		assert.ErrorIs(t, err, policy.ErrForbidden)

		_, err = h.accounts.List(ctx, "mgr")
		assert.ErrorIs(t, err, policy.ErrForbidden)
	})
}
