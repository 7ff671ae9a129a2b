package approval

import "github.com/garyjia/expense-approval/internal/domain/entity"

// AutoApprovalResult reports whether a conditional rule fired and the counts it used
type AutoApprovalResult struct {
	AutoApproved  bool
	Rule          entity.RuleType
	ApprovedCount int
	TotalSteps    int
}

// Evaluate runs the flow's conditional rule against the ledger plus the in-flight decision.
// A rejection never auto-approves.
func Evaluate(flow *entity.FlowDefinition, ledger entity.Ledger, approverID, decision string) AutoApprovalResult {
	rule := flow.RuleType.Normalize()

	approvedCount := ledger.ApprovedCount()
	if decision == entity.StatusApproved {
		approvedCount++
	}

	totalSteps := len(flow.Steps)
	if totalSteps == 0 {
		totalSteps = 1
	}

	result := AutoApprovalResult{
		Rule:          rule,
		ApprovedCount: approvedCount,
		TotalSteps:    totalSteps,
	}

	if decision != entity.StatusApproved {
		return result
	}

	critical := flow.CriticalApproverID != "" && approverID == flow.CriticalApproverID
	percentage := flow.ApprovalPercentage != nil &&
		approvedCount*100 >= *flow.ApprovalPercentage*totalSteps

	switch rule {
	case entity.RuleSpecificApprover:
		result.AutoApproved = critical
	case entity.RulePercentage:
		result.AutoApproved = percentage
	case entity.RuleHybrid:
		result.AutoApproved = critical || percentage
	}

	return result
}
