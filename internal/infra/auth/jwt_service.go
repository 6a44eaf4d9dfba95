package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"gatekeeper/config"
	"gatekeeper/internal/domain/service"
)

// pendingTwoFactorClaim is the private claim marking a temp token minted
// between password check and TOTP verification.
const pendingTwoFactorClaim = "pending_2fa"

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	secret     []byte
	sessionTTL time.Duration
	tempTTL    time.Duration
}

// NewJWTService is the constructor for jwtService.
// The signing key comes from configuration, loaded once at startup.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	if cfg.JWT == nil || cfg.JWT.Secret == "" {
		return nil, errors.New("jwt secret must be provided")
	}

	return &jwtService{
		secret:     []byte(cfg.JWT.Secret),
		sessionTTL: cfg.JWT.SessionTTL,
		tempTTL:    cfg.JWT.TempTTL,
	}, nil
}

// IssueSessionToken creates a full-session token for the given user.
func (s *jwtService) IssueSessionToken(userID uuid.UUID) (string, error) {
	return s.issue(userID, false, s.sessionTTL)
}

// IssueTempToken creates a short-lived token carrying the pending-2FA claim.
// It is the only proof of partial authentication during a 2FA login.
func (s *jwtService) IssueTempToken(userID uuid.UUID) (string, error) {
	return s.issue(userID, true, s.tempTTL)
}

// Verify parses and validates a token string against the process signing key.
func (s *jwtService) Verify(tokenString string) (*service.Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return s.secret, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse token")
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("failed to parse token claims")
	}

	sub, ok := mapClaims["sub"].(string)
	if !ok {
		return nil, errors.New("subject missing from token")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, errors.Wrap(err, "invalid subject in token")
	}

	pending, _ := mapClaims[pendingTwoFactorClaim].(bool)

	return &service.Claims{
		UserID:           userID,
		PendingTwoFactor: pending,
	}, nil
}

// SessionTTL returns the configured lifetime of full-session tokens.
func (s *jwtService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// issue is a private helper to create a JWT with specific claims.
func (s *jwtService) issue(userID uuid.UUID, pendingTwoFactor bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"jti": uuid.NewString(), // Uniqueness: two logins in the same second must not collide.
	}
	if pendingTwoFactor {
		claims[pendingTwoFactorClaim] = true
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(s.secret)
}
