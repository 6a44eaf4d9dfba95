// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"gatekeeper/internal/domain/entity"

	"github.com/google/uuid"
)

// Domain-specific sentinel errors for user persistence. Callers use these to
// tell a legitimate negative result apart from an infrastructure failure.
var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists is returned when an insert or update violates email uniqueness.
	ErrEmailExists = errors.New("email already exists")
	// ErrUsernameExists is returned when an insert or update violates username uniqueness.
	ErrUsernameExists = errors.New("username already exists")
)

// UserRepository defines the standard operations for user persistence.
// Email and username lookups are case-insensitive. The implementation, not
// the caller, is the source of truth for uniqueness: concurrent inserts with
// the same email or username must reject the loser atomically.
type UserRepository interface {
	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByEmail retrieves a single user by email, case-insensitively.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// FindByUsername retrieves a single user by username, case-insensitively.
	FindByUsername(ctx context.Context, username string) (*entity.User, error)

	// FindByVerificationToken retrieves the user holding the given email
	// verification token, regardless of expiry. Expiry is the caller's check
	// so an expired token can produce a precise error.
	FindByVerificationToken(ctx context.Context, token string) (*entity.User, error)

	// FindByResetToken retrieves the user holding the given password reset
	// token, excluding expired tokens.
	FindByResetToken(ctx context.Context, token string) (*entity.User, error)

	// Create persists a new user entity to the storage.
	Create(ctx context.Context, user *entity.User) error

	// Update persists the full current state of an existing user entity.
	Update(ctx context.Context, user *entity.User) error
}
