// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the central identity record. A user moves from unverified to
// verified via the emailed verification token, and may additionally protect
// logins with TOTP two-factor authentication.
type User struct {
	ID           uuid.UUID // The Global Unique Identifier (GUID) for the user.
	Email        string    // The user's login email. Unique, compared case-insensitively.
	Username     string    // The user's public handle. Unique, compared case-insensitively.
	PasswordHash *string   // bcrypt hash of the password. Nil for social-only accounts.
	FirstName    *string
	LastName     *string

	IsVerified          bool       // Whether the email address has been confirmed.
	VerificationToken   *string    // Single-use token mailed out for email verification.
	VerificationExpires *time.Time // Hard deadline for VerificationToken.
	ResetToken          *string    // Single-use password reset token.
	ResetExpires        *time.Time // Hard deadline for ResetToken.

	TwoFactorEnabled  bool    // Whether TOTP is required to complete a login.
	TwoFactorSecret   *string // Base32 TOTP secret. Must be set whenever TwoFactorEnabled is true.
	TwoFactorLastStep *int64  // Last consumed TOTP time step, used to reject replayed codes.

	ProfilePicture *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FullAuthName returns the name used to address the user in emails,
// preferring the first name and falling back to the username.
func (u *User) FullAuthName() string {
	if u.FirstName != nil && *u.FirstName != "" {
		return *u.FirstName
	}

	return u.Username
}

// HasPassword reports whether the account carries a password credential.
// Social-only accounts have none until the user sets one via password reset.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
