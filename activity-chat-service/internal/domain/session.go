package domain

import "time"

// Session is the identity attached to one live connection, fixed at
// upgrade time.
type Session struct {
	ID          string
	UserID      string
	DisplayName string
	CreatedAt   time.Time
}

func NewSession(id string, identity Identity) *Session {
	return &Session{
		ID:          id,
		UserID:      identity.UserID,
		DisplayName: identity.DisplayName,
		CreatedAt:   time.Now(),
	}
}
