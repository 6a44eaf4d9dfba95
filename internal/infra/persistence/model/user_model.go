// Package model defines the GORM persistence models mirroring the database schema.
package model

import (
	"time"

	"github.com/google/uuid"
)

// UserModel mirrors the 'users' table. PostgreSQL generates UUIDs via uuid_generate_v7().
// It is an exported type so it can be used by the GORM Gen tool from other packages.
type UserModel struct {
	ID                  uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	Email               string    `gorm:"type:varchar(255);unique;not null"`
	Username            string    `gorm:"type:varchar(100);unique;not null"`
	PasswordHash        *string   `gorm:"type:varchar(255)"`
	FirstName           *string   `gorm:"type:varchar(100)"`
	LastName            *string   `gorm:"type:varchar(100)"`
	IsVerified          bool      `gorm:"not null;default:false"`
	VerificationToken   *string   `gorm:"type:varchar(255);index"`
	VerificationExpires *time.Time
	ResetToken          *string `gorm:"type:varchar(255);index"`
	ResetExpires        *time.Time
	TwoFactorEnabled    bool    `gorm:"not null;default:false"`
	TwoFactorSecret     *string `gorm:"type:varchar(255)"`
	TwoFactorLastStep   *int64
	ProfilePicture      *string `gorm:"type:text"`
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Sessions          []SessionModel          `gorm:"foreignKey:UserID"`
	SocialConnections []SocialConnectionModel `gorm:"foreignKey:UserID"`
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}
