package handler

import (
	"time"

	"gatekeeper/internal/domain/entity"
	"gatekeeper/internal/usecase"

	"github.com/google/uuid"
)

// userResponse is the public projection of a user. Credential material and
// pending tokens never leave the service.
type userResponse struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	Username         string    `json:"username"`
	FirstName        *string   `json:"firstName,omitempty"`
	LastName         *string   `json:"lastName,omitempty"`
	IsVerified       bool      `json:"isVerified"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	ProfilePicture   *string   `json:"profilePicture,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

func newUserResponse(u *entity.User) *userResponse {
	if u == nil {
		return nil
	}

	return &userResponse{
		ID:               u.ID,
		Email:            u.Email,
		Username:         u.Username,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		IsVerified:       u.IsVerified,
		TwoFactorEnabled: u.TwoFactorEnabled,
		ProfilePicture:   u.ProfilePicture,
		CreatedAt:        u.CreatedAt,
	}
}

// loginResponse covers both login outcomes: a full session token, or a
// pending-2FA challenge with a short-lived temp token.
type loginResponse struct {
	Token             string        `json:"token,omitempty"`
	User              *userResponse `json:"user,omitempty"`
	RequiresTwoFactor bool          `json:"requiresTwoFactor,omitempty"`
	TempToken         string        `json:"tempToken,omitempty"`
}

func newLoginResponse(output *usecase.LoginOutput) *loginResponse {
	if output.RequiresTwoFactor {
		return &loginResponse{
			RequiresTwoFactor: true,
			TempToken:         output.TempToken,
		}
	}

	return &loginResponse{
		Token: output.Token,
		User:  newUserResponse(output.User),
	}
}

type sessionResponse struct {
	ID        uuid.UUID `json:"id"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	Location  string    `json:"location,omitempty"`
	Timezone  string    `json:"timezone,omitempty"`
	Current   bool      `json:"current"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// newSessionResponses marks the session matching the caller's own bearer
// token as current.
func newSessionResponses(sessions []*entity.Session, currentToken string) []*sessionResponse {
	out := make([]*sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, &sessionResponse{
			ID:        s.ID,
			IPAddress: s.Client.IPAddress,
			UserAgent: s.Client.UserAgent,
			Location:  s.Client.Location,
			Timezone:  s.Client.Timezone,
			Current:   s.Token == currentToken,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
		})
	}

	return out
}

type socialConnectionResponse struct {
	ID             uuid.UUID `json:"id"`
	Provider       string    `json:"provider"`
	ProviderUserID string    `json:"providerUserId"`
	CreatedAt      time.Time `json:"createdAt"`
}

func newSocialConnectionResponses(connections []*entity.SocialConnection) []*socialConnectionResponse {
	out := make([]*socialConnectionResponse, 0, len(connections))
	for _, conn := range connections {
		out = append(out, &socialConnectionResponse{
			ID:             conn.ID,
			Provider:       string(conn.Provider),
			ProviderUserID: conn.ProviderUserID,
			CreatedAt:      conn.CreatedAt,
		})
	}

	return out
}
