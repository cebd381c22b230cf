// Package session issues, validates, refreshes and expires the session
// tokens owned by the customer service.
package session

import (
	"context"
	"errors"
	"time"

	"minimart/internal/model"
)

// DefaultTimeout is the sliding inactivity window after which a session
// expires.
const DefaultTimeout = 5 * time.Minute

var (
	// ErrNotFound indicates the token is absent (never issued, logged
	// out, or long gone).
	ErrNotFound = errors.New("session not found")

	// ErrExpired indicates the session existed but its sliding window
	// elapsed; the lookup that observed this removed the session.
	ErrExpired = errors.New("session expired")
)

// Store manages session tokens. A session has exactly two states: active,
// or absent after logout/timeout.
type Store interface {
	// Create issues a brand-new session for an account. Existing
	// sessions for the same account are never invalidated.
	Create(ctx context.Context, role string, userID int64) (string, error)

	// Get validates a token. An active session has its last-active time
	// refreshed to now (sliding expiration) and is returned; a stale one
	// is removed and ErrExpired returned; an absent one yields
	// ErrNotFound.
	Get(ctx context.Context, token string) (*model.Session, error)

	// Delete removes a session. Deleting an absent token is not an
	// error.
	Delete(ctx context.Context, token string) error

	// Close releases backing resources.
	Close() error
}
