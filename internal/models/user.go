// internal/models/user.go
package models

// Role is an authenticated identity's role.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
)

// User represents a portal user. TotalEarnings, MainDeals and
// ReferenceDeals are mutated only by the rules engine on case approval
// and by administrative edits.
type User struct {
	ID             string `json:"id,omitempty"`
	MongoID        string `json:"_id,omitempty"`
	Name           string `json:"name"`
	Email          string `json:"email,omitempty"`
	Role           Role   `json:"role"`
	TotalEarnings  int    `json:"totalEarnings"`
	MainDeals      int    `json:"mainDeals"`
	ReferenceDeals int    `json:"referenceDeals"`

	// Token is only present on the login response payload.
	Token string `json:"token,omitempty"`
}

// Key returns the canonical record identifier.
func (u User) Key() string {
	if u.ID != "" {
		return u.ID
	}
	return u.MongoID
}

// IsAdmin reports whether the user holds the administrative role.
// The backend emits both "admin" and "Admin".
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == "Admin"
}
