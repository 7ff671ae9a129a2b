package workflow

// Trigger represents a decision that can cause a state transition
type Trigger string

const (
	TriggerApprove     Trigger = "APPROVE"
	TriggerAutoApprove Trigger = "AUTO_APPROVE"
	TriggerReject      Trigger = "REJECT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
