package dispatcher

import (
	"context"

	"github.com/garyjia/expense-approval/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Handler     Handler
	Description string
}

// NewAuditLogHandler writes one structured line per committed workflow event
func NewAuditLogHandler(logger Logger) Handler {
	return func(ctx context.Context, evt *event.Event) error {
		logger.Info("Workflow event",
			"event_type", evt.Type,
			"event_id", evt.ID,
			"expense_id", evt.ExpenseID,
			"approver_id", evt.GetPayloadString(event.KeyApproverID),
			"record_id", evt.GetPayloadString(event.KeyRecordID),
			"decision", evt.GetPayloadString(event.KeyDecision),
			"reason", evt.GetPayloadString(event.KeyReason),
			"correlation_id", evt.CorrelationID,
		)
		return nil
	}
}
