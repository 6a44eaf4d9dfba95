// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"gatekeeper/internal/domain/entity"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a new account.
type RegisterInput struct {
	Email     string
	Username  string
	Password  string
	FirstName *string
	LastName  *string
}

// LoginInput defines the data required for a password login.
type LoginInput struct {
	Email    string
	Password string
	Client   entity.ClientInfo
}

// ValidateTwoFactorInput completes a pending two-factor login. UserID comes
// from the verified temp token, never from the request body.
type ValidateTwoFactorInput struct {
	UserID uuid.UUID
	Code   string
	Client entity.ClientInfo
}

// ResetPasswordInput defines the data required to consume a reset token.
type ResetPasswordInput struct {
	Token    string
	Password string
}

// SocialLoginInput carries the profile asserted by an external identity
// provider after its own verification step.
type SocialLoginInput struct {
	Provider       entity.SocialProvider
	ProviderUserID string
	Email          string
	FirstName      *string
	LastName       *string
	ProfilePicture *string
	ProfileData    json.RawMessage
	Client         entity.ClientInfo
}

// --- Output DTOs ---

// RegisterOutput returns the newly created account.
type RegisterOutput struct {
	User *entity.User
}

// LoginOutput is the result of any login path. Either Token is set (full
// session established) or RequiresTwoFactor is true and TempToken carries the
// short-lived pending-2FA credential.
type LoginOutput struct {
	Token             string
	User              *entity.User
	RequiresTwoFactor bool
	TempToken         string
}

// TwoFactorSetupOutput returns the provisioning material for an authenticator app.
type TwoFactorSetupOutput struct {
	Secret     string
	OtpauthURL string
	QRCodeURL  string
}

// AuthUsecase defines the authentication business operations.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AuthUsecase interface {
	Register(ctx context.Context, input *RegisterInput) (*RegisterOutput, error)
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)
	ValidateTwoFactor(ctx context.Context, input *ValidateTwoFactorInput) (*LoginOutput, error)
	VerifyEmail(ctx context.Context, token string) (*entity.User, error)

	// RequestPasswordReset never reveals whether the email belongs to an
	// account: an unknown address returns nil exactly like a known one.
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, input *ResetPasswordInput) error

	SetupTwoFactor(ctx context.Context, userID uuid.UUID) (*TwoFactorSetupOutput, error)
	VerifyAndEnableTwoFactor(ctx context.Context, userID uuid.UUID, code string) error
	DisableTwoFactor(ctx context.Context, userID uuid.UUID, code string) error

	SocialLogin(ctx context.Context, input *SocialLoginInput) (*LoginOutput, error)
}
