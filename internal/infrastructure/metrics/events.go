package metrics

import (
	"context"
	"strconv"

	"github.com/garyjia/expense-approval/internal/domain/event"
)

// EventHandler feeds the workflow collectors from committed domain events.
// Its signature matches dispatcher.Handler.
func EventHandler(ctx context.Context, evt *event.Event) error {
	EventsDispatchedTotal.WithLabelValues(evt.Type.String()).Inc()

	switch evt.Type {
	case event.TypeExpenseSubmitted:
		ExpensesSubmittedTotal.Inc()
	case event.TypeApprovalDecided:
		DecisionsTotal.WithLabelValues(
			evt.GetPayloadString(event.KeyDecision),
			evt.GetPayloadString(event.KeyReason),
		).Inc()
	}

	if evt.Type.IsTerminal() {
		status := "Rejected"
		if evt.Type == event.TypeExpenseApproved {
			status = "Approved"
		}
		ExpensesFinalizedTotal.WithLabelValues(
			status,
			strconv.FormatBool(evt.GetPayloadBool(event.KeyAutoApproved)),
		).Inc()
	}
	return nil
}
