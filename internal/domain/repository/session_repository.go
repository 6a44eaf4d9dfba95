package repository

import (
	"context"
	"errors"

	"gatekeeper/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when no live session matches the lookup.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository defines session persistence. Expired sessions are treated
// as absent by every lookup.
type SessionRepository interface {
	// Create persists a new session.
	Create(ctx context.Context, session *entity.Session) error

	// FindByToken retrieves the live session bearing the given token.
	FindByToken(ctx context.Context, token string) (*entity.Session, error)

	// FindByUserID retrieves all live sessions for a user, newest first.
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Session, error)

	// DeleteByToken removes the session bearing the given token.
	// Returns ErrSessionNotFound when no live session matches.
	DeleteByToken(ctx context.Context, token string) error

	// DeleteByUserID removes every session for a user and reports how many existed.
	DeleteByUserID(ctx context.Context, userID uuid.UUID) (int, error)

	// DeleteExpired evicts expired sessions. Intended for periodic cleanup.
	DeleteExpired(ctx context.Context) error
}
