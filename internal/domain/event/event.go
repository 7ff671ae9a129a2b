package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys used by the approval events
const (
	KeyApproverID   = "approver_id"
	KeyRecordID     = "record_id"
	KeyDecision     = "decision"
	KeyEmployeeID   = "employee_id"
	KeyAutoApproved = "auto_approved"
	KeyReason       = "reason"
)

// Event represents a domain event raised after an outcome has been committed
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	ExpenseID     string                 `json:"expense_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with a generated ID and timestamp
func NewEvent(eventType Type, expenseID string, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, expenseID, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to a correlation chain,
// so all events of one committed outcome can be grouped
func NewEventWithCorrelation(eventType Type, expenseID string, payload map[string]interface{}, correlationID string) *Event {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		ExpenseID:     expenseID,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
	}
}

// WithPayload returns a copy of the event with an added payload key
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	clone := *e
	clone.Payload = newPayload
	return &clone
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadBool retrieves a bool value from the payload
func (e *Event) GetPayloadBool(key string) bool {
	if val, ok := e.Payload[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}
