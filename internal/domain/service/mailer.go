package service

import (
	"context"

	"gatekeeper/internal/domain/entity"
)

// Mailer defines the interface for outbound transactional email.
// Implementations own delivery timeouts; callers decide whether a delivery
// failure is fatal for the enclosing operation (login notifications are not).
type Mailer interface {
	// SendVerificationEmail delivers the email-verification link for the token.
	SendVerificationEmail(ctx context.Context, to, token string) error

	// SendPasswordResetEmail delivers the password-reset link for the token.
	SendPasswordResetEmail(ctx context.Context, to, token string) error

	// SendWelcomeEmail greets a freshly verified or social-signup user.
	SendWelcomeEmail(ctx context.Context, to, name string) error

	// SendLoginNotification informs the user of a new login with the
	// captured client metadata.
	SendLoginNotification(ctx context.Context, to string, client entity.ClientInfo) error
}
