// Package policy maps user roles to the operations they may perform.
// It is consulted by the HTTP layer and services, never by the approval engine.
package policy

import (
	"errors"
	"fmt"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// ErrForbidden is returned when a role lacks a capability
var ErrForbidden = errors.New("forbidden")

// Capability names an operation guarded by role
type Capability string

const (
	SubmitExpense   Capability = "submit_expense"
	ViewOwnExpenses Capability = "view_own_expenses"
	DecideApproval  Capability = "decide_approval"
	ManageUsers     Capability = "manage_users"
	ManageFlows     Capability = "manage_flows"
)

var capabilities = map[string]map[Capability]bool{
	entity.RoleAdmin: {
		SubmitExpense:   true,
		ViewOwnExpenses: true,
		DecideApproval:  true,
		ManageUsers:     true,
		ManageFlows:     true,
	},
	entity.RoleManager: {
		SubmitExpense:   true,
		ViewOwnExpenses: true,
		DecideApproval:  true,
	},
	entity.RoleEmployee: {
		SubmitExpense:   true,
		ViewOwnExpenses: true,
	},
}

// Allowed reports whether role holds capability
func Allowed(role string, capability Capability) bool {
	return capabilities[role][capability]
}

// Require returns ErrForbidden unless role holds capability
func Require(role string, capability Capability) error {
	if !Allowed(role, capability) {
		return fmt.Errorf("%w: role %q cannot %s", ErrForbidden, role, capability)
	}
	return nil
}

// Capabilities lists every capability of a role
func Capabilities(role string) []Capability {
	var out []Capability
	for _, c := range []Capability{SubmitExpense, ViewOwnExpenses, DecideApproval, ManageUsers, ManageFlows} {
		if capabilities[role][c] {
			out = append(out, c)
		}
	}
	return out
}
