package entity

import "time"

// ApprovalRecord is one entry in the approval ledger of an expense.
// At most one record per expense may be Pending at any time.
type ApprovalRecord struct {
	ID         string     `json:"id"`
	ExpenseID  string     `json:"expense_id"`
	ApproverID string     `json:"approver_id"`
	Status     string     `json:"status"`
	Comments   string     `json:"comments,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	DecidedAt  *time.Time `json:"decided_at,omitempty"`
}

// IsPending returns true while the record awaits a decision
func (r *ApprovalRecord) IsPending() bool {
	return r.Status == StatusPending
}

// Ledger is the chronological approval history of one expense
type Ledger []ApprovalRecord

// Find returns the record with the given id, or nil
func (l Ledger) Find(id string) *ApprovalRecord {
	if i := l.IndexOf(id); i >= 0 {
		return &l[i]
	}
	return nil
}

// PendingRecords returns every record still awaiting a decision
func (l Ledger) PendingRecords() []ApprovalRecord {
	var pending []ApprovalRecord
	for _, r := range l {
		if r.IsPending() {
			pending = append(pending, r)
		}
	}
	return pending
}

// ApprovedCount counts records with status Approved
func (l Ledger) ApprovedCount() int {
	count := 0
	for _, r := range l {
		if r.Status == StatusApproved {
			count++
		}
	}
	return count
}

// IndexOf returns the position of the record with the given id, or -1
func (l Ledger) IndexOf(id string) int {
	for i := range l {
		if l[i].ID == id {
			return i
		}
	}
	return -1
}
