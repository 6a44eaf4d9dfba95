package usecase

import (
	"context"

	"github.com/google/uuid"

	"gatekeeper/internal/domain/entity"
)

// SessionUsecase defines the server-side session management operations.
type SessionUsecase interface {
	// Logout revokes the session holding the given bearer token. Revoking a
	// token with no live session is not an error.
	Logout(ctx context.Context, token string) error

	// LogoutAll revokes every session for the user and reports how many were revoked.
	LogoutAll(ctx context.Context, userID uuid.UUID) (int, error)

	// ListSessions returns the user's active sessions, newest first.
	ListSessions(ctx context.Context, userID uuid.UUID) ([]*entity.Session, error)
}
