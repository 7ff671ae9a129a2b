package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// FlowRepository implements port.FlowRepository.
// Steps live in approval_steps and are always loaded with their flow.
type FlowRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewFlowRepository creates a new flow repository
func NewFlowRepository(db *sql.DB, logger *zap.Logger) port.FlowRepository {
	return &FlowRepository{
		db:     db,
		logger: logger,
	}
}

const flowColumns = `id, name, company_id, is_manager_approver_first, rule_type,
	approval_percentage, critical_approver_id, created_at`

// Create inserts the flow and its steps. Callers wanting atomicity run it inside WithTransaction.
func (r *FlowRepository) Create(ctx context.Context, flow *entity.FlowDefinition) error {
	exec := sqlite.Conn(ctx, r.db)

	var percentage sql.NullInt64
	if flow.ApprovalPercentage != nil {
		percentage = sql.NullInt64{Int64: int64(*flow.ApprovalPercentage), Valid: true}
	}

	query := `INSERT INTO approval_flows (` + flowColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := exec.ExecContext(ctx, query,
		flow.ID,
		flow.Name,
		flow.CompanyID,
		flow.IsManagerApproverFirst,
		string(flow.RuleType.Normalize()),
		percentage,
		nullString(flow.CriticalApproverID),
		flow.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create flow",
			zap.String("flow_id", flow.ID),
			zap.Error(err))
		return fmt.Errorf("failed to create flow: %w", err)
	}

	stepQuery := `INSERT INTO approval_steps (flow_id, sequence_order, approver_id) VALUES (?, ?, ?)`
	for _, step := range flow.Steps {
		if _, err := exec.ExecContext(ctx, stepQuery, flow.ID, step.SequenceOrder, step.ApproverID); err != nil {
			r.logger.Error("Failed to create flow step",
				zap.String("flow_id", flow.ID),
				zap.Int("sequence_order", step.SequenceOrder),
				zap.Error(err))
			return fmt.Errorf("failed to create flow step: %w", err)
		}
	}

	return nil
}

// GetByID retrieves a flow with its steps
func (r *FlowRepository) GetByID(ctx context.Context, id string) (*entity.FlowDefinition, error) {
	query := `SELECT ` + flowColumns + ` FROM approval_flows WHERE id = ?`

	flow, err := scanFlow(sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flow: %w", err)
	}

	if flow.Steps, err = r.loadSteps(ctx, flow.ID); err != nil {
		return nil, err
	}
	return flow, nil
}

// ListByCompany lists the flows of a company with their steps
func (r *FlowRepository) ListByCompany(ctx context.Context, companyID string) ([]*entity.FlowDefinition, error) {
	query := `SELECT ` + flowColumns + ` FROM approval_flows WHERE company_id = ? ORDER BY created_at, id`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	var flows []*entity.FlowDefinition
	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}
		flows = append(flows, flow)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// steps are loaded after the cursor is released; a tx-bound executor serves one query at a time
	for _, flow := range flows {
		if flow.Steps, err = r.loadSteps(ctx, flow.ID); err != nil {
			return nil, err
		}
	}
	return flows, nil
}

func (r *FlowRepository) loadSteps(ctx context.Context, flowID string) ([]entity.FlowStep, error) {
	query := `SELECT sequence_order, approver_id FROM approval_steps WHERE flow_id = ? ORDER BY sequence_order`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load flow steps: %w", err)
	}
	defer rows.Close()

	steps := []entity.FlowStep{}
	for rows.Next() {
		var step entity.FlowStep
		if err := rows.Scan(&step.SequenceOrder, &step.ApproverID); err != nil {
			return nil, fmt.Errorf("failed to scan flow step: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func scanFlow(row rowScanner) (*entity.FlowDefinition, error) {
	var flow entity.FlowDefinition
	var ruleType string
	var percentage sql.NullInt64
	var critical sql.NullString
	if err := row.Scan(
		&flow.ID,
		&flow.Name,
		&flow.CompanyID,
		&flow.IsManagerApproverFirst,
		&ruleType,
		&percentage,
		&critical,
		&flow.CreatedAt,
	); err != nil {
		return nil, err
	}
	flow.RuleType = entity.RuleType(ruleType)
	if percentage.Valid {
		p := int(percentage.Int64)
		flow.ApprovalPercentage = &p
	}
	flow.CriticalApproverID = critical.String
	return &flow, nil
}

// Verify interface compliance
var _ port.FlowRepository = (*FlowRepository)(nil)
