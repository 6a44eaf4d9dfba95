package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SocialConnectionModel mirrors the 'social_connections' table. A provider
// account links to at most one user, and a user holds at most one link per provider.
type SocialConnectionModel struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_social_user_provider"`
	Provider       string         `gorm:"type:varchar(50);not null;uniqueIndex:idx_social_user_provider;uniqueIndex:idx_social_provider_account"`
	ProviderUserID string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_social_provider_account"`
	ProfileData    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName explicitly sets the table name for GORM.
func (SocialConnectionModel) TableName() string {
	return "social_connections"
}
