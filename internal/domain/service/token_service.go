package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims defines the custom claims embedded in every bearer token.
type Claims struct {
	UserID uuid.UUID
	// PendingTwoFactor marks a temp token minted after a correct password but
	// before the TOTP code. Such a token is proof of partial authentication
	// only: every full-auth surface must reject it.
	PendingTwoFactor bool
	jwt.RegisteredClaims
}

// TokenService defines the interface for issuing and verifying signed bearer
// tokens. The signing key is injected at construction; rotating it invalidates
// all outstanding tokens, which is an accepted operational tradeoff.
type TokenService interface {
	// IssueSessionToken mints a full-session token for the user.
	IssueSessionToken(userID uuid.UUID) (string, error)

	// IssueTempToken mints a short-lived token carrying the pending-2FA claim.
	IssueTempToken(userID uuid.UUID) (string, error)

	// Verify parses and validates a token. Any signature mismatch, malformed
	// token or expiry yields a nil Claims and an error; callers treat every
	// error as "unauthenticated".
	Verify(token string) (*Claims, error)

	// SessionTTL returns the configured lifetime of full-session tokens.
	SessionTTL() time.Duration
}
