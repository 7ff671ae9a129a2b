package entity

import "time"

// RuleType selects the conditional auto-approval rule of a flow
type RuleType string

const (
	RuleNone             RuleType = "None"
	RulePercentage       RuleType = "Percentage"
	RuleSpecificApprover RuleType = "SpecificApprover"
	RuleHybrid           RuleType = "Hybrid"
)

// String returns the string representation of the rule type
func (r RuleType) String() string {
	return string(r)
}

// Normalize maps the empty rule type to RuleNone
func (r RuleType) Normalize() RuleType {
	if r == "" {
		return RuleNone
	}
	return r
}

// IsValid returns true if the rule type is one of the defined constants
func (r RuleType) IsValid() bool {
	switch r.Normalize() {
	case RuleNone, RulePercentage, RuleSpecificApprover, RuleHybrid:
		return true
	default:
		return false
	}
}

// UsesPercentage reports whether the rule needs ApprovalPercentage
func (r RuleType) UsesPercentage() bool {
	return r == RulePercentage || r == RuleHybrid
}

// UsesCriticalApprover reports whether the rule needs CriticalApproverID
func (r RuleType) UsesCriticalApprover() bool {
	return r == RuleSpecificApprover || r == RuleHybrid
}

// FlowStep is one ordered position in a flow, bound to a specific approver
type FlowStep struct {
	SequenceOrder int    `json:"sequence_order"`
	ApproverID    string `json:"approver_id"`
}

// FlowDefinition describes how approvals of an expense must proceed
type FlowDefinition struct {
	ID                     string     `json:"id"`
	Name                   string     `json:"name"`
	CompanyID              string     `json:"company_id,omitempty"`
	IsManagerApproverFirst bool       `json:"is_manager_approver_first"`
	Steps                  []FlowStep `json:"steps"`
	RuleType               RuleType   `json:"rule_type"`
	ApprovalPercentage     *int       `json:"approval_percentage,omitempty"`
	CriticalApproverID     string     `json:"critical_approver_id,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
}
