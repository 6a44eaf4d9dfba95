package service

import "time"

// TOTPSecret is the result of provisioning a new two-factor secret.
type TOTPSecret struct {
	// Secret is the base32-encoded shared secret, shown to the user for
	// manual entry.
	Secret string
	// ProvisioningURI is the otpauth:// URI encoded into the setup QR code.
	ProvisioningURI string
}

// TOTPService defines the interface for time-based one-time password handling.
type TOTPService interface {
	// GenerateSecret creates a fresh secret with at least 20 bytes of entropy,
	// labeled with the given account name for authenticator apps.
	GenerateSecret(accountName string) (*TOTPSecret, error)

	// VerifyCode checks a code against the secret at the given instant,
	// tolerating the configured clock-drift skew. On success it returns the
	// matched time step so callers can reject replays of the same code.
	VerifyCode(secret, code string, at time.Time) (matchedStep int64, ok bool)
}
