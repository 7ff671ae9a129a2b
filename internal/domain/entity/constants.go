package entity

// Status constants shared by Expense and ApprovalRecord
const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// Role constants for User
const (
	RoleAdmin    = "Admin"
	RoleManager  = "Manager"
	RoleEmployee = "Employee"
)

// Expense category constants offered by the submission form
const (
	CategoryTravel        = "Travel"
	CategoryMeals         = "Meals"
	CategoryAccommodation = "Accommodation"
	CategoryEquipment     = "Equipment"
	CategoryTransport     = "Transportation"
	CategoryOther         = "Other"
)

// IsTerminalStatus reports whether an expense status allows no further decisions
func IsTerminalStatus(status string) bool {
	return status == StatusApproved || status == StatusRejected
}

// IsValidRole reports whether role is one of the known user roles
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	default:
		return false
	}
}
