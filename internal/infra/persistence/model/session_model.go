package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionModel mirrors the 'sessions' table. The bearer token is stored as
// issued so server-side revocation can match incoming requests exactly.
type SessionModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Token     string    `gorm:"type:text;unique;not null"`
	IPAddress string    `gorm:"type:varchar(64)"`
	UserAgent string    `gorm:"type:text"`
	Location  string    `gorm:"type:varchar(255)"`
	Timezone  string    `gorm:"type:varchar(64)"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (SessionModel) TableName() string {
	return "sessions"
}
