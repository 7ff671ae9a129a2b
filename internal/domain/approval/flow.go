package approval

import (
	"fmt"
	"sort"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// ValidateFlow checks the invariants of a flow definition
func ValidateFlow(flow *entity.FlowDefinition) error {
	if flow == nil {
		return fmt.Errorf("%w: flow is nil", ErrNotFound)
	}

	rule := flow.RuleType.Normalize()
	if !rule.IsValid() {
		return fmt.Errorf("%w: unknown rule type %q", ErrInvalidConfiguration, flow.RuleType)
	}

	if rule.UsesPercentage() {
		if flow.ApprovalPercentage == nil {
			return fmt.Errorf("%w: rule %s requires approval_percentage", ErrInvalidConfiguration, rule)
		}
		if p := *flow.ApprovalPercentage; p < 0 || p > 100 {
			return fmt.Errorf("%w: approval_percentage %d outside 0-100", ErrInvalidConfiguration, p)
		}
	}

	if rule.UsesCriticalApprover() && flow.CriticalApproverID == "" {
		return fmt.Errorf("%w: rule %s requires critical_approver_id", ErrInvalidConfiguration, rule)
	}

	if len(flow.Steps) == 0 && !flow.IsManagerApproverFirst {
		return fmt.Errorf("%w: flow %s has no steps and no manager-first approval", ErrInvalidConfiguration, flow.ID)
	}

	seen := make(map[int]bool, len(flow.Steps))
	approvers := make(map[string]bool, len(flow.Steps))
	for _, step := range flow.Steps {
		if step.SequenceOrder <= 0 {
			return fmt.Errorf("%w: sequence_order must be positive, got %d", ErrInvalidConfiguration, step.SequenceOrder)
		}
		if seen[step.SequenceOrder] {
			return fmt.Errorf("%w: duplicate sequence_order %d", ErrInvalidConfiguration, step.SequenceOrder)
		}
		if step.ApproverID == "" {
			return fmt.Errorf("%w: step %d has no approver", ErrInvalidConfiguration, step.SequenceOrder)
		}
		// NextStep locates the decider by first match, so [A, B, A] would hand A's second approval back to B
		if approvers[step.ApproverID] {
			return fmt.Errorf("%w: approver %s appears in more than one step", ErrInvalidConfiguration, step.ApproverID)
		}
		seen[step.SequenceOrder] = true
		approvers[step.ApproverID] = true
	}

	return nil
}

// SortedSteps returns a copy of the steps ordered by ascending sequence order
func SortedSteps(steps []entity.FlowStep) []entity.FlowStep {
	sorted := append([]entity.FlowStep(nil), steps...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SequenceOrder < sorted[j].SequenceOrder
	})
	return sorted
}
