package models

// Role represents user roles in the system
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Claims represents JWT claims
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Exp      int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}

// IsPrivileged reports whether the actor may act regardless of ownership or
// booking status.
func (c *Claims) IsPrivileged() bool {
	return c != nil && c.Role == RoleAdmin
}

// Owns reports whether the actor is the given user.
func (c *Claims) Owns(userID string) bool {
	return c != nil && c.UserID != "" && c.UserID == userID
}
