package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "test.db"), MaxOpenConns: 1}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrator_Up(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, zap.NewNop())

	version, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)

	require.NoError(t, m.Up())

	version, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	for _, table := range []string{"companies", "users", "approval_flows", "approval_steps", "expenses", "expense_approvals"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestMigrator_UpIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, zap.NewNop())

	require.NoError(t, m.Up())
	require.NoError(t, m.Up())
}

func TestMigrator_OnePendingRecordPerExpense(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrator(db, zap.NewNop()).Up())

	stmts := []string{
		`INSERT INTO companies (id, name) VALUES ('c1', 'Acme')`,
		`INSERT INTO approval_flows (id, name, company_id) VALUES ('f1', 'Default', 'c1')`,
		`INSERT INTO expenses (id, employee_id, company_id, amount, currency, category, expense_date, flow_id, status, created_at, updated_at)
		 VALUES ('e1', 'u1', 'c1', '10.00', 'USD', 'Travel', CURRENT_TIMESTAMP, 'f1', 'Pending', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		`INSERT INTO expense_approvals (id, expense_id, approver_id, status, seq, created_at) VALUES ('a1', 'e1', 'm1', 'Pending', 1, CURRENT_TIMESTAMP)`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	_, err := db.Exec(`INSERT INTO expense_approvals (id, expense_id, approver_id, status, seq, created_at) VALUES ('a2', 'e1', 'm2', 'Pending', 2, CURRENT_TIMESTAMP)`)
	assert.Error(t, err)

	_, err = db.Exec(`INSERT INTO expense_approvals (id, expense_id, approver_id, status, seq, created_at) VALUES ('a3', 'e1', 'm3', 'Approved', 3, CURRENT_TIMESTAMP)`)
	assert.NoError(t, err)
}
