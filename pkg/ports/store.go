package ports

import (
	"context"

	"github.com/acquirelab/threedsflow/pkg/domain"
)

// SessionStore persists transaction sessions between operator actions.
// Implementations must return deep copies so callers cannot mutate stored
// state through a shared pointer.
type SessionStore interface {
	// Save persists the session under its ID.
	Save(ctx context.Context, session *domain.Session) error

	// Load retrieves a session by ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Session, error)

	// Delete removes the session.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of known sessions.
	List(ctx context.Context) ([]string, error)
}
