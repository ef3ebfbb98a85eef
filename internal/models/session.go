// internal/models/session.go
package models

import "time"

// CredentialTTL is how long a persisted bearer credential stays valid
// before the user must authenticate again.
const CredentialTTL = 7 * 24 * time.Hour

// Session is the current authenticated identity plus its bearer
// credential. Created on login, mutated on profile refresh, destroyed
// on logout.
type Session struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
	Credential  string `json:"credential"`
}

// LoginHistoryEntry is an audit record of a session establishment.
// At most one entry exists per user per calendar day.
type LoginHistoryEntry struct {
	UserID     string `json:"userId"`
	UserName   string `json:"userName,omitempty"`
	Date       string `json:"date"`
	LoginAt    string `json:"loginAt"`
	DeviceType string `json:"deviceType,omitempty"`
}
