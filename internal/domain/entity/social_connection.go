package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SocialProvider enumerates the supported external identity providers.
type SocialProvider string

const (
	ProviderGoogle    SocialProvider = "google"
	ProviderGitHub    SocialProvider = "github"
	ProviderMicrosoft SocialProvider = "microsoft"
	ProviderLinkedIn  SocialProvider = "linkedin"
	ProviderFacebook  SocialProvider = "facebook"
	ProviderApple     SocialProvider = "apple"
)

// Valid reports whether the provider is one of the supported values.
func (p SocialProvider) Valid() bool {
	switch p {
	case ProviderGoogle, ProviderGitHub, ProviderMicrosoft, ProviderLinkedIn, ProviderFacebook, ProviderApple:
		return true
	}

	return false
}

// SocialConnection links a User to one external identity. (UserID, Provider)
// and (Provider, ProviderUserID) are both unique: a local account links a
// given provider at most once, and an external identity maps to exactly one
// local user.
type SocialConnection struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Provider       SocialProvider
	ProviderUserID string          // The user's unique ID as assigned by the provider.
	ProfileData    json.RawMessage // Opaque provider payload; shape varies per provider.
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
