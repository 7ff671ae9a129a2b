// Package approval decides what happens to an expense when an approver acts on it.
//
// Everything here is a pure function over a snapshot (expense, flow definition,
// approval ledger). Nothing is read or written; callers persist the returned
// WorkflowOutcome atomically and retry with a fresh snapshot on conflict.
package approval
