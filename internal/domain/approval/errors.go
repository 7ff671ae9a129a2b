package approval

import "errors"

var (
	// ErrInvalidConfiguration is returned when a flow violates its rule or step invariants
	ErrInvalidConfiguration = errors.New("invalid flow configuration")

	// ErrInvalidState is returned for decisions against a terminal expense or without a matching active record
	ErrInvalidState = errors.New("invalid expense state")

	// ErrNotFound is returned when the snapshot is missing the referenced expense or flow
	ErrNotFound = errors.New("not found")

	// ErrInvalidDecision is returned when the decision is neither Approved nor Rejected
	ErrInvalidDecision = errors.New("invalid decision")
)
