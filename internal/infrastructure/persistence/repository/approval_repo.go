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

// ApprovalRepository implements port.ApprovalRepository on the expense_approvals table.
// The partial unique index idx_expense_approvals_one_pending keeps one Pending record per expense.
type ApprovalRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApprovalRepository creates a new approval ledger repository
func NewApprovalRepository(db *sql.DB, logger *zap.Logger) port.ApprovalRepository {
	return &ApprovalRepository{
		db:     db,
		logger: logger,
	}
}

const approvalColumns = `id, expense_id, approver_id, status, comments, created_at, decided_at`

// Create appends a record to the expense's ledger
func (r *ApprovalRepository) Create(ctx context.Context, record *entity.ApprovalRecord) error {
	query := `
		INSERT INTO expense_approvals (` + approvalColumns + `, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM expense_approvals WHERE expense_id = ?))
	`

	var decidedAt sql.NullTime
	if record.DecidedAt != nil {
		decidedAt = sql.NullTime{Time: *record.DecidedAt, Valid: true}
	}

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		record.ID,
		record.ExpenseID,
		record.ApproverID,
		record.Status,
		record.Comments,
		record.CreatedAt,
		decidedAt,
		record.ExpenseID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("expense %s already has an active approval: %w", record.ExpenseID, port.ErrConflict)
		}
		r.logger.Error("Failed to create approval record",
			zap.String("expense_id", record.ExpenseID),
			zap.String("approver_id", record.ApproverID),
			zap.Error(err))
		return fmt.Errorf("failed to create approval record: %w", err)
	}
	return nil
}

// GetByID retrieves an approval record by ID
func (r *ApprovalRepository) GetByID(ctx context.Context, id string) (*entity.ApprovalRecord, error) {
	query := `SELECT ` + approvalColumns + ` FROM expense_approvals WHERE id = ?`

	record, err := scanApproval(sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval record: %w", err)
	}
	return record, nil
}

// GetLedger returns the expense's records in creation order
func (r *ApprovalRepository) GetLedger(ctx context.Context, expenseID string) (entity.Ledger, error) {
	query := `SELECT ` + approvalColumns + ` FROM expense_approvals WHERE expense_id = ? ORDER BY seq`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval ledger: %w", err)
	}
	defer rows.Close()

	ledger := entity.Ledger{}
	for rows.Next() {
		record, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval record: %w", err)
		}
		ledger = append(ledger, *record)
	}
	return ledger, rows.Err()
}

// ListPendingByApprover returns the records awaiting the given approver, oldest first
func (r *ApprovalRepository) ListPendingByApprover(ctx context.Context, approverID string) ([]*entity.ApprovalRecord, error) {
	query := `SELECT ` + approvalColumns + ` FROM expense_approvals
		WHERE approver_id = ? AND status = ?
		ORDER BY created_at, id`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, approverID, entity.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending approvals: %w", err)
	}
	defer rows.Close()

	var records []*entity.ApprovalRecord
	for rows.Next() {
		record, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Resolve writes the decision only while the stored record is still Pending
func (r *ApprovalRepository) Resolve(ctx context.Context, record *entity.ApprovalRecord) error {
	query := `
		UPDATE expense_approvals
		SET status = ?, comments = ?, decided_at = ?
		WHERE id = ? AND status = ?
	`

	var decidedAt sql.NullTime
	if record.DecidedAt != nil {
		decidedAt = sql.NullTime{Time: *record.DecidedAt, Valid: true}
	}

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		record.Status,
		record.Comments,
		decidedAt,
		record.ID,
		entity.StatusPending,
	)
	if err != nil {
		r.logger.Error("Failed to resolve approval record",
			zap.String("record_id", record.ID),
			zap.String("status", record.Status),
			zap.Error(err))
		return fmt.Errorf("failed to resolve approval record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("approval %s already decided: %w", record.ID, port.ErrConflict)
	}
	return nil
}

func scanApproval(row rowScanner) (*entity.ApprovalRecord, error) {
	var record entity.ApprovalRecord
	var decidedAt sql.NullTime
	if err := row.Scan(
		&record.ID,
		&record.ExpenseID,
		&record.ApproverID,
		&record.Status,
		&record.Comments,
		&record.CreatedAt,
		&decidedAt,
	); err != nil {
		return nil, err
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		record.DecidedAt = &t
	}
	return &record, nil
}

// Verify interface compliance
var _ port.ApprovalRepository = (*ApprovalRepository)(nil)
