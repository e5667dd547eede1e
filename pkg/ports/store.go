package ports

import (
	"context"

	"github.com/aretw0/fieldbot/pkg/domain"
)

// SessionStore defines the interface for keeping per-user sessions.
// Sessions are never deleted during the process lifetime.
type SessionStore interface {
	// Save stores the session under its user id, replacing any previous value.
	Save(ctx context.Context, session *domain.Session) error

	// Load retrieves the session for a given user id.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, userID string) (*domain.Session, error)

	// List returns the user ids of all known sessions.
	List(ctx context.Context) ([]string, error)
}
