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
)

// SignupRequest registers a user.
// CompanyID is required for self-signup once the first company exists.
type SignupRequest struct {
	Name      string
	Email     string
	CompanyID string
	Role      string
	ManagerID string
}

// UserService manages tenants, users, roles and reporting lines
type UserService interface {
	// Signup registers a user. The very first user bootstraps a company and becomes Admin;
	// an Admin caller creates users in their company with any role; anyone else self-registers as Employee.
	Signup(ctx context.Context, actorID string, req SignupRequest) (*entity.User, error)
	Get(ctx context.Context, actorID, userID string) (*entity.User, error)
	List(ctx context.Context, actorID string) ([]*entity.User, error)
	UpdateRole(ctx context.Context, actorID, userID, role string) (*entity.User, error)
	AssignManager(ctx context.Context, actorID, userID, managerID string) (*entity.User, error)
}

type userServiceImpl struct {
	users         port.UserRepository
	companies     port.CompanyRepository
	txManager     port.TransactionManager
	bootstrapName string
	currency      string
	logger        Logger
}

// NewUserService creates a new UserService.
// bootstrapName and currency describe the company created for the first user.
func NewUserService(
	users port.UserRepository,
	companies port.CompanyRepository,
	txManager port.TransactionManager,
	bootstrapName string,
	currency string,
	logger Logger,
) UserService {
	return &userServiceImpl{
		users:         users,
		companies:     companies,
		txManager:     txManager,
		bootstrapName: bootstrapName,
		currency:      currency,
		logger:        logger,
	}
}

// Signup creates a user according to who is calling
func (s *userServiceImpl) Signup(ctx context.Context, actorID string, req SignupRequest) (*entity.User, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := utils.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email %q", ErrValidation, req.Email)
	}

	user := &entity.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Role:      entity.RoleEmployee,
		CreatedAt: time.Now().UTC(),
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		count, err := s.users.Count(txCtx)
		if err != nil {
			return err
		}

		switch {
		case count == 0:
			company := &entity.Company{
				ID:              uuid.NewString(),
				Name:            s.bootstrapName,
				DefaultCurrency: s.currency,
				CreatedAt:       user.CreatedAt,
			}
			if err := s.companies.Create(txCtx, company); err != nil {
				return err
			}
			user.CompanyID = company.ID
			user.Role = entity.RoleAdmin

		case actorID != "":
			admin, err := loadActor(txCtx, s.users, actorID, policy.ManageUsers)
			if err != nil {
				return err
			}
			user.CompanyID = admin.CompanyID
			if req.Role != "" {
				if !entity.IsValidRole(req.Role) {
					return fmt.Errorf("%w: unknown role %q", ErrValidation, req.Role)
				}
				user.Role = req.Role
			}
			if req.ManagerID != "" {
				if _, err := s.checkManager(txCtx, user, req.ManagerID); err != nil {
					return err
				}
				user.ManagerID = req.ManagerID
			}

		default:
			if req.CompanyID == "" {
				return fmt.Errorf("%w: company_id is required", ErrValidation)
			}
			company, err := s.companies.GetByID(txCtx, req.CompanyID)
			if err != nil {
				return err
			}
			if company == nil {
				return fmt.Errorf("%w: company %s", approval.ErrNotFound, req.CompanyID)
			}
			user.CompanyID = company.ID
		}

		return s.users.Create(txCtx, user)
	})
	if err != nil {
		s.logger.Error("Signup failed", "error", err, "email", email)
		return nil, err
	}

	s.logger.Info("User registered",
		"user_id", user.ID,
		"company_id", user.CompanyID,
		"role", user.Role,
	)
	return user, nil
}

// Get returns a member of the caller's company
func (s *userServiceImpl) Get(ctx context.Context, actorID, userID string) (*entity.User, error) {
	actor, err := loadActor(ctx, s.users, actorID, policy.ViewOwnExpenses)
	if err != nil {
		return nil, err
	}
	if actor.ID == userID {
		return actor, nil
	}
	if err := policy.Require(actor.Role, policy.ManageUsers); err != nil {
		return nil, err
	}
	return s.companyMember(ctx, actor, userID)
}

// List returns the users of the admin's company
func (s *userServiceImpl) List(ctx context.Context, actorID string) ([]*entity.User, error) {
	admin, err := loadActor(ctx, s.users, actorID, policy.ManageUsers)
	if err != nil {
		return nil, err
	}
	return s.users.ListByCompany(ctx, admin.CompanyID)
}

// UpdateRole changes a member's role
func (s *userServiceImpl) UpdateRole(ctx context.Context, actorID, userID, role string) (*entity.User, error) {
	admin, err := loadActor(ctx, s.users, actorID, policy.ManageUsers)
	if err != nil {
		return nil, err
	}
	if !entity.IsValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	if admin.ID == userID && role != entity.RoleAdmin {
		return nil, fmt.Errorf("%w: admins cannot demote themselves", ErrValidation)
	}

	user, err := s.companyMember(ctx, admin, userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateRole(ctx, user.ID, role); err != nil {
		return nil, err
	}
	user.Role = role

	s.logger.Info("User role changed", "user_id", user.ID, "role", role, "changed_by", admin.ID)
	return user, nil
}

// AssignManager sets or, with an empty managerID, clears the direct manager of a member
func (s *userServiceImpl) AssignManager(ctx context.Context, actorID, userID, managerID string) (*entity.User, error) {
	admin, err := loadActor(ctx, s.users, actorID, policy.ManageUsers)
	if err != nil {
		return nil, err
	}

	user, err := s.companyMember(ctx, admin, userID)
	if err != nil {
		return nil, err
	}
	if managerID != "" {
		if _, err := s.checkManager(ctx, user, managerID); err != nil {
			return nil, err
		}
	}

	if err := s.users.UpdateManager(ctx, user.ID, managerID); err != nil {
		return nil, err
	}
	user.ManagerID = managerID

	s.logger.Info("Manager assigned", "user_id", user.ID, "manager_id", managerID, "changed_by", admin.ID)
	return user, nil
}

func (s *userServiceImpl) companyMember(ctx context.Context, actor *entity.User, userID string) (*entity.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil || user.CompanyID != actor.CompanyID {
		return nil, fmt.Errorf("%w: user %s", approval.ErrNotFound, userID)
	}
	return user, nil
}

// checkManager requires an approver of the same company other than the user
func (s *userServiceImpl) checkManager(ctx context.Context, user *entity.User, managerID string) (*entity.User, error) {
	if managerID == user.ID {
		return nil, fmt.Errorf("%w: a user cannot manage themself", ErrValidation)
	}
	manager, err := s.users.GetByID(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("load manager: %w", err)
	}
	if manager == nil || manager.CompanyID != user.CompanyID {
		return nil, fmt.Errorf("%w: manager %s is not a member of the company", ErrValidation, managerID)
	}
	if !manager.CanApprove() {
		return nil, fmt.Errorf("%w: manager %s has role %s", ErrValidation, managerID, manager.Role)
	}
	return manager, nil
}
