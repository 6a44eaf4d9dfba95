package repository

import (
	"context"
	"errors"

	"gatekeeper/internal/domain/entity"

	"github.com/google/uuid"
)

// Domain-specific sentinel errors for social connection persistence.
var (
	// ErrConnectionNotFound is returned when no social connection matches the lookup.
	ErrConnectionNotFound = errors.New("social connection not found")
	// ErrConnectionExists is returned when an insert violates either of the
	// compound uniqueness constraints (userID, provider) / (provider, providerUserID).
	ErrConnectionExists = errors.New("social connection already exists")
)

// SocialConnectionRepository defines persistence for provider links.
type SocialConnectionRepository interface {
	// FindByUserAndProvider retrieves the connection linking a user to a provider.
	FindByUserAndProvider(ctx context.Context, userID uuid.UUID, provider entity.SocialProvider) (*entity.SocialConnection, error)

	// FindByProviderUserID retrieves the connection for an external identity.
	FindByProviderUserID(ctx context.Context, provider entity.SocialProvider, providerUserID string) (*entity.SocialConnection, error)

	// FindByUserID retrieves all connections for a user.
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.SocialConnection, error)

	// Create persists a new connection.
	Create(ctx context.Context, conn *entity.SocialConnection) error

	// Delete removes a connection by its ID (unlink).
	Delete(ctx context.Context, id uuid.UUID) error
}
