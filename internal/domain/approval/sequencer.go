package approval

import "github.com/garyjia/expense-approval/internal/domain/entity"

// StepResult describes the position after the deciding approver acts
type StepResult struct {
	HasNext        bool
	NextApproverID string
	IsLastStep     bool
}

// NextStep locates the deciding approver in the ordered steps and returns who comes next.
// The ledger is the snapshot before the current decision is recorded.
func NextStep(flow *entity.FlowDefinition, ledger entity.Ledger, decidingApproverID string) StepResult {
	steps := SortedSteps(flow.Steps)

	if len(steps) == 0 {
		// only a manager-first approval (or nothing at all) remains
		return StepResult{IsLastStep: true}
	}

	if isManagerPhase(flow, steps, ledger, decidingApproverID) {
		return StepResult{HasNext: true, NextApproverID: steps[0].ApproverID}
	}

	index := -1
	for i, step := range steps {
		if step.ApproverID == decidingApproverID {
			index = i
			break
		}
	}

	switch {
	case index < 0:
		return StepResult{HasNext: true, NextApproverID: steps[0].ApproverID}
	case index == len(steps)-1:
		return StepResult{IsLastStep: true}
	default:
		return StepResult{HasNext: true, NextApproverID: steps[index+1].ApproverID}
	}
}

// isManagerPhase reports whether the decision is the manager-first approval that precedes steps[0].
// That is the case while nothing has been decided yet and the approver is not steps[0] itself,
// which happens when the manager could not be resolved at submission.
func isManagerPhase(flow *entity.FlowDefinition, steps []entity.FlowStep, ledger entity.Ledger, decidingApproverID string) bool {
	if !flow.IsManagerApproverFirst {
		return false
	}
	if len(ledger) != len(ledger.PendingRecords()) {
		return false
	}
	return steps[0].ApproverID != decidingApproverID
}
