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
	"github.com/google/uuid"
)

// CreateFlowRequest describes a new approval flow.
// Steps without a SequenceOrder are numbered 1..n in the given order.
type CreateFlowRequest struct {
	Name                   string
	IsManagerApproverFirst bool
	Steps                  []entity.FlowStep
	RuleType               entity.RuleType
	ApprovalPercentage     *int
	CriticalApproverID     string
}

// FlowService manages the approval flows of a company
type FlowService interface {
	Create(ctx context.Context, actorID string, req CreateFlowRequest) (*entity.FlowDefinition, error)
	Get(ctx context.Context, actorID, flowID string) (*entity.FlowDefinition, error)
	List(ctx context.Context, actorID string) ([]*entity.FlowDefinition, error)
}

type flowServiceImpl struct {
	flows     port.FlowRepository
	users     port.UserRepository
	txManager port.TransactionManager
	logger    Logger
}

// NewFlowService creates a new FlowService
func NewFlowService(flows port.FlowRepository, users port.UserRepository, txManager port.TransactionManager, logger Logger) FlowService {
	return &flowServiceImpl{
		flows:     flows,
		users:     users,
		txManager: txManager,
		logger:    logger,
	}
}

// Create validates and stores a flow for the admin's company
func (s *flowServiceImpl) Create(ctx context.Context, actorID string, req CreateFlowRequest) (*entity.FlowDefinition, error) {
	admin, err := loadActor(ctx, s.users, actorID, policy.ManageFlows)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	flow := &entity.FlowDefinition{
		ID:                     uuid.NewString(),
		Name:                   name,
		CompanyID:              admin.CompanyID,
		IsManagerApproverFirst: req.IsManagerApproverFirst,
		Steps:                  numberSteps(req.Steps),
		RuleType:               req.RuleType.Normalize(),
		ApprovalPercentage:     req.ApprovalPercentage,
		CriticalApproverID:     req.CriticalApproverID,
		CreatedAt:              time.Now().UTC(),
	}

	if err := approval.ValidateFlow(flow); err != nil {
		return nil, err
	}
	if err := s.checkApprovers(ctx, flow); err != nil {
		return nil, err
	}

	flow.Steps = approval.SortedSteps(flow.Steps)

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.flows.Create(txCtx, flow)
	})
	if err != nil {
		s.logger.Error("Failed to create flow", "error", err, "company_id", flow.CompanyID)
		return nil, err
	}

	s.logger.Info("Flow created",
		"flow_id", flow.ID,
		"company_id", flow.CompanyID,
		"steps", len(flow.Steps),
		"rule_type", flow.RuleType,
	)
	return flow, nil
}

// Get returns a flow of the caller's company
func (s *flowServiceImpl) Get(ctx context.Context, actorID, flowID string) (*entity.FlowDefinition, error) {
	actor, err := loadActor(ctx, s.users, actorID, policy.SubmitExpense)
	if err != nil {
		return nil, err
	}

	flow, err := s.flows.GetByID(ctx, flowID)
	if err != nil {
		return nil, fmt.Errorf("load flow: %w", err)
	}
	if flow == nil || flow.CompanyID != actor.CompanyID {
		return nil, fmt.Errorf("%w: flow %s", approval.ErrNotFound, flowID)
	}
	return flow, nil
}

// List returns the flows of the caller's company; every member may read them to submit expenses
func (s *flowServiceImpl) List(ctx context.Context, actorID string) ([]*entity.FlowDefinition, error) {
	actor, err := loadActor(ctx, s.users, actorID, policy.SubmitExpense)
	if err != nil {
		return nil, err
	}
	return s.flows.ListByCompany(ctx, actor.CompanyID)
}

// checkApprovers requires every step approver and the critical approver to be approvers of the flow's company
func (s *flowServiceImpl) checkApprovers(ctx context.Context, flow *entity.FlowDefinition) error {
	ids := make([]string, 0, len(flow.Steps)+1)
	for _, step := range flow.Steps {
		ids = append(ids, step.ApproverID)
	}
	if flow.RuleType.UsesCriticalApprover() {
		ids = append(ids, flow.CriticalApproverID)
	}

	for _, id := range ids {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load approver: %w", err)
		}
		if user == nil || user.CompanyID != flow.CompanyID {
			return fmt.Errorf("%w: approver %s is not a member of the company", ErrValidation, id)
		}
		if !user.CanApprove() {
			return fmt.Errorf("%w: approver %s has role %s", ErrValidation, id, user.Role)
		}
	}
	return nil
}

// numberSteps fills in SequenceOrder 1..n when the request omitted every order
func numberSteps(steps []entity.FlowStep) []entity.FlowStep {
	out := make([]entity.FlowStep, len(steps))
	copy(out, steps)
	for _, step := range out {
		if step.SequenceOrder != 0 {
			return out
		}
	}
	for i := range out {
		out[i].SequenceOrder = i + 1
	}
	return out
}
