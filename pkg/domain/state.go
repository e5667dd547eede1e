package domain

import "time"

// DialogState is the position of a user inside the conversation.
type DialogState string

const (
	StateIdle           DialogState = "idle"            // Choosing from the main menu
	StateSearching      DialogState = "searching"       // Every free-text message is a search term
	StateChangingDevice DialogState = "changing_device" // Every free-text message is a change request
)

// Valid reports whether s is one of the known dialog states.
func (s DialogState) Valid() bool {
	switch s {
	case StateIdle, StateSearching, StateChangingDevice:
		return true
	}
	return false
}

// Session is the conversation state tracked for one user id.
type Session struct {
	UserID    string      `json:"user_id"`
	State     DialogState `json:"state"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`

	// Turns counts the events this session has processed.
	Turns int `json:"turns"`
}

// NewSession creates a session in the initial Idle state.
func NewSession(userID string, now time.Time) *Session {
	return &Session{
		UserID:    userID,
		State:     StateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Snapshot returns a copy of the session that can be mutated independently.
func (s *Session) Snapshot() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
