package middleware

import (
	"strings"

	"gatekeeper/internal/domain/entity"
	domainerrors "gatekeeper/internal/domain/errors"
	"gatekeeper/internal/domain/repository"
	"gatekeeper/internal/domain/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Context keys set by Authenticate for downstream handlers.
const (
	ContextKeyUserID           = "userID"
	ContextKeyToken            = "sessionToken"
	ContextKeyPendingTwoFactor = "pendingTwoFactor"
)

// AuthMiddleware validates bearer tokens and enforces the two-step 2FA flow.
type AuthMiddleware struct {
	tokenSvc service.TokenService
	sessions repository.SessionRepository
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tokenSvc service.TokenService, sessions repository.SessionRepository) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc, sessions: sessions}
}

// Authenticate validates the Authorization header and loads the token claims
// onto the echo context. Full-session tokens must also match a live session
// record so that logout revokes them server-side; pending-2FA temp tokens are
// admitted here but carry the pending flag for RequireFullAuth to reject.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return domainerrors.ErrUnauthorized
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			return domainerrors.ErrUnauthorized
		}

		claims, err := m.tokenSvc.Verify(tokenString)
		if err != nil {
			return domainerrors.ErrUnauthorized
		}

		if !claims.PendingTwoFactor {
			if _, err := m.sessions.FindByToken(c.Request().Context(), tokenString); err != nil {
				return domainerrors.ErrSessionInvalid
			}
		}

		// Set auth info on the context for handlers to use
		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyToken, tokenString)
		c.Set(ContextKeyPendingTwoFactor, claims.PendingTwoFactor)

		return next(c)
	}
}

// RequireFullAuth rejects pending-2FA temp tokens. It must be used AFTER the
// Authenticate middleware.
func (m *AuthMiddleware) RequireFullAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		pending, ok := c.Get(ContextKeyPendingTwoFactor).(bool)
		if !ok {
			return domainerrors.ErrUnauthorized
		}
		if pending {
			return domainerrors.ErrTwoFactorRequired
		}

		return next(c)
	}
}

// RequirePendingTwoFactor admits only the temp token minted by the password
// step of a two-factor login. A full session token completing the code
// exchange again would mint extra sessions, so it is rejected outright. It
// must be used AFTER the Authenticate middleware.
func (m *AuthMiddleware) RequirePendingTwoFactor(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		pending, ok := c.Get(ContextKeyPendingTwoFactor).(bool)
		if !ok || !pending {
			return domainerrors.ErrUnauthorized
		}

		return next(c)
	}
}

// UserID extracts the authenticated user ID set by Authenticate.
func UserID(c echo.Context) (uuid.UUID, error) {
	userID, ok := c.Get(ContextKeyUserID).(uuid.UUID)
	if !ok {
		return uuid.Nil, domainerrors.ErrUnauthorized
	}

	return userID, nil
}

// Token extracts the raw bearer token set by Authenticate.
func Token(c echo.Context) (string, error) {
	token, ok := c.Get(ContextKeyToken).(string)
	if !ok || token == "" {
		return "", domainerrors.ErrUnauthorized
	}

	return token, nil
}

// CaptureClientInfo collects best-effort request metadata for session records
// and login notification emails. Location and timezone come from optional
// client-supplied headers.
func CaptureClientInfo(c echo.Context) entity.ClientInfo {
	return entity.ClientInfo{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		Location:  c.Request().Header.Get("X-Location"),
		Timezone:  c.Request().Header.Get("X-Timezone"),
	}
}
