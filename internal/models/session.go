package models

import (
	"time"
)

// SessionInfo is the externally visible view of one login session.
type SessionInfo struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Authenticated bool       `json:"authenticated"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}
