package entity

import "time"

// Company is the tenant that owns users and flows
type Company struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	DefaultCurrency string    `json:"default_currency"`
	CreatedAt       time.Time `json:"created_at"`
}

// User is an employee, manager or admin of a company
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CompanyID string    `json:"company_id"`
	ManagerID string    `json:"manager_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CanApprove reports whether the user's role may act as a manager-first approver
func (u *User) CanApprove() bool {
	return u.Role == RoleManager || u.Role == RoleAdmin
}
