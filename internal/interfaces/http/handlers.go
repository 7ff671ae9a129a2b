package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/application/service"
	"github.com/garyjia/expense-approval/internal/domain/approval"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/domain/policy"
)

// UserIDHeader identifies the caller. Authentication happens in front of this service.
const UserIDHeader = "X-User-ID"

const dateLayout = "2006-01-02"

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SignupRequest is the body of POST /api/users
type SignupRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required"`
	CompanyID string `json:"company_id"`
	Role      string `json:"role" binding:"omitempty,oneof=Admin Manager Employee"`
	ManagerID string `json:"manager_id"`
}

// UpdateRoleRequest is the body of PATCH /api/users/:id/role
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=Admin Manager Employee"`
}

// AssignManagerRequest is the body of PUT /api/users/:id/manager
type AssignManagerRequest struct {
	ManagerID string `json:"manager_id" binding:"required"`
}

// FlowStepRequest is one approver step of a new flow
type FlowStepRequest struct {
	SequenceOrder int    `json:"sequence_order" binding:"gte=0"`
	ApproverID    string `json:"approver_id" binding:"required"`
}

// CreateFlowRequest is the body of POST /api/flows
type CreateFlowRequest struct {
	Name                   string            `json:"name" binding:"required"`
	IsManagerApproverFirst bool              `json:"is_manager_approver_first"`
	Steps                  []FlowStepRequest `json:"steps" binding:"dive"`
	RuleType               string            `json:"rule_type"`
	ApprovalPercentage     *int              `json:"approval_percentage"`
	CriticalApproverID     string            `json:"critical_approver_id"`
}

// SubmitExpenseRequest is the body of POST /api/expenses.
// Amount accepts a JSON number or a numeric string.
type SubmitExpenseRequest struct {
	FlowID      string      `json:"flow_id" binding:"required"`
	Amount      json.Number `json:"amount" binding:"required"`
	Currency    string      `json:"currency"`
	Category    string      `json:"category" binding:"required"`
	Description string      `json:"description"`
	ExpenseDate string      `json:"expense_date" binding:"required"`
}

// DecisionRequest is the body of POST /api/approvals/:id/decision
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=Approved Rejected"`
	Comments string `json:"comments"`
}

// ListExpensesRequest represents query parameters for listing expenses
type ListExpensesRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// SubmitExpenseResponse is returned after a successful submission
type SubmitExpenseResponse struct {
	Expense       *entity.Expense        `json:"expense"`
	FirstApproval *entity.ApprovalRecord `json:"first_approval"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// Signup handles POST /api/users
func (h *Handlers) Signup(c *gin.Context) {
	var req SignupRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.services.Users.Signup(c.Request.Context(), callerID(c), service.SignupRequest{
		Name:      req.Name,
		Email:     req.Email,
		CompanyID: req.CompanyID,
		Role:      req.Role,
		ManagerID: req.ManagerID,
	})
	if err != nil {
		h.fail(c, "Signup failed", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: user})
}

// ListUsers handles GET /api/users
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.services.Users.List(c.Request.Context(), callerID(c))
	if err != nil {
		h.fail(c, "Failed to list users", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: users})
}

// GetUser handles GET /api/users/:id
func (h *Handlers) GetUser(c *gin.Context) {
	user, err := h.services.Users.Get(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to get user", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: user})
}

// UpdateRole handles PATCH /api/users/:id/role
func (h *Handlers) UpdateRole(c *gin.Context) {
	var req UpdateRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.services.Users.UpdateRole(c.Request.Context(), callerID(c), c.Param("id"), req.Role)
	if err != nil {
		h.fail(c, "Failed to update role", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: user})
}

// AssignManager handles PUT /api/users/:id/manager
func (h *Handlers) AssignManager(c *gin.Context) {
	var req AssignManagerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.services.Users.AssignManager(c.Request.Context(), callerID(c), c.Param("id"), req.ManagerID)
	if err != nil {
		h.fail(c, "Failed to assign manager", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: user})
}

// CreateFlow handles POST /api/flows
func (h *Handlers) CreateFlow(c *gin.Context) {
	var req CreateFlowRequest
	if !h.bindJSON(c, &req) {
		return
	}

	steps := make([]entity.FlowStep, 0, len(req.Steps))
	for _, step := range req.Steps {
		steps = append(steps, entity.FlowStep{
			SequenceOrder: step.SequenceOrder,
			ApproverID:    step.ApproverID,
		})
	}

	flow, err := h.services.Flows.Create(c.Request.Context(), callerID(c), service.CreateFlowRequest{
		Name:                   req.Name,
		IsManagerApproverFirst: req.IsManagerApproverFirst,
		Steps:                  steps,
		RuleType:               entity.RuleType(req.RuleType),
		ApprovalPercentage:     req.ApprovalPercentage,
		CriticalApproverID:     req.CriticalApproverID,
	})
	if err != nil {
		h.fail(c, "Failed to create flow", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: flow})
}

// ListFlows handles GET /api/flows
func (h *Handlers) ListFlows(c *gin.Context) {
	flows, err := h.services.Flows.List(c.Request.Context(), callerID(c))
	if err != nil {
		h.fail(c, "Failed to list flows", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: flows})
}

// GetFlow handles GET /api/flows/:id
func (h *Handlers) GetFlow(c *gin.Context) {
	flow, err := h.services.Flows.Get(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to get flow", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: flow})
}

// SubmitExpense handles POST /api/expenses
func (h *Handlers) SubmitExpense(c *gin.Context) {
	var req SubmitExpenseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		h.badRequest(c, "invalid amount")
		return
	}
	expenseDate, err := parseDate(req.ExpenseDate)
	if err != nil {
		h.badRequest(c, "invalid expense_date, expected YYYY-MM-DD")
		return
	}

	expense, first, err := h.services.Expenses.Submit(c.Request.Context(), callerID(c), service.SubmitExpenseRequest{
		FlowID:      req.FlowID,
		Amount:      amount,
		Currency:    req.Currency,
		Category:    req.Category,
		Description: req.Description,
		ExpenseDate: expenseDate,
	})
	if err != nil {
		h.fail(c, "Failed to submit expense", err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    SubmitExpenseResponse{Expense: expense, FirstApproval: first},
	})
}

// ListMyExpenses handles GET /api/expenses
func (h *Handlers) ListMyExpenses(c *gin.Context) {
	var req ListExpensesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		h.badRequest(c, "invalid query parameters")
		return
	}

	expenses, err := h.services.Expenses.ListMine(c.Request.Context(), callerID(c), req.Limit, req.Offset)
	if err != nil {
		h.fail(c, "Failed to list expenses", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: expenses})
}

// GetExpense handles GET /api/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	expense, err := h.services.Expenses.Get(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to get expense", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: expense})
}

// GetLedger handles GET /api/expenses/:id/approvals
func (h *Handlers) GetLedger(c *gin.Context) {
	ledger, err := h.services.Expenses.Ledger(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to get approval history", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ledger})
}

// ListPending handles GET /api/approvals/pending
func (h *Handlers) ListPending(c *gin.Context) {
	pending, err := h.services.Approvals.PendingFor(c.Request.Context(), callerID(c))
	if err != nil {
		h.fail(c, "Failed to list pending approvals", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: pending})
}

// Decide handles POST /api/approvals/:id/decision
func (h *Handlers) Decide(c *gin.Context) {
	var req DecisionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	outcome, err := h.services.Approvals.Decide(c.Request.Context(), callerID(c), c.Param("id"), service.DecisionRequest{
		Decision: req.Decision,
		Comments: req.Comments,
	})
	if err != nil {
		h.fail(c, "Failed to record decision", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: outcome})
}

func (h *Handlers) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.logger.Error("Invalid request body", "path", c.FullPath(), "error", err)
		h.badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   msg,
	})
}

// fail maps a service error onto its HTTP status. Internal errors are logged and hidden.
func (h *Handlers) fail(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, "error", err, "path", c.FullPath())
		c.JSON(status, Response{Success: false, Error: "internal server error"})
		return
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, approval.ErrInvalidConfiguration),
		errors.Is(err, approval.ErrInvalidDecision):
		return http.StatusBadRequest
	case errors.Is(err, policy.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, approval.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, approval.ErrInvalidState),
		errors.Is(err, port.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func callerID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(UserIDHeader))
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
