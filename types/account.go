package types

import "time"

// Role values accepted for an account.
const (
	RoleStudent     = "student"
	RoleInterviewer = "interviewer"
	RoleAdmin       = "admin"
)

// Roles lists every valid account role.
var Roles = []string{RoleStudent, RoleInterviewer, RoleAdmin}

// Account represents a registered user of the platform.
// It contains identity, role, profile and audit metadata.
type Account struct {
	// ID is the opaque identifier of the account.
	ID string `json:"id" db:"id"`

	// Name is the account's display name.
	Name string `json:"name" db:"name"`

	// Email is unique across all accounts and used to log in.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the account's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Role is one of student, interviewer or admin. Only admins may change it.
	Role string `json:"role" db:"role"`

	// IsActive is false once the account has been deactivated.
	// Deactivated accounts are kept, never hard-deleted.
	IsActive bool `json:"isActive" db:"is_active"`

	Contact        string     `json:"contact,omitempty" db:"contact"`
	DOB            *time.Time `json:"dob,omitempty" db:"dob"`
	ProfilePicture string     `json:"profilePicture,omitempty" db:"profile_picture"`

	// CreatedAt is the timestamp when the account was registered.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// HasRole reports whether the account's role is one of roles.
func (a Account) HasRole(roles ...string) bool {
	for _, role := range roles {
		if a.Role == role {
			return true
		}
	}
	return false
}

// AccountFilter narrows account listings.
type AccountFilter struct {
	Role     string
	IsActive *bool
}

// AccountStats summarizes an account's interview history.
type AccountStats struct {
	TotalInterviews     int      `json:"totalInterviews"`
	CompletedInterviews int      `json:"completedInterviews"`
	AverageScore        *float64 `json:"averageScore"`
}
