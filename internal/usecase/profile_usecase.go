package usecase

import (
	"context"

	"github.com/google/uuid"

	"gatekeeper/internal/domain/entity"
)

// UpdateProfileInput carries a partial profile patch. Nil fields are left
// untouched.
type UpdateProfileInput struct {
	Username       *string
	FirstName      *string
	LastName       *string
	ProfilePicture *string
}

// ChangeEmailInput requires the current password as proof of possession.
type ChangeEmailInput struct {
	NewEmail string
	Password string
}

// ChangePasswordInput requires the current password as proof of possession.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// ProfileOutput bundles the user with their linked external identities.
type ProfileOutput struct {
	User              *entity.User
	SocialConnections []*entity.SocialConnection
}

// ProfileUsecase defines the account self-management operations.
type ProfileUsecase interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileOutput, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input *UpdateProfileInput) (*entity.User, error)

	// ChangeEmail swaps the address and demotes the account to unverified,
	// issuing a fresh verification token for the new address.
	ChangeEmail(ctx context.Context, userID uuid.UUID, input *ChangeEmailInput) error
	ChangePassword(ctx context.Context, userID uuid.UUID, input *ChangePasswordInput) error
}
