package auth

import (
	"crypto/subtle"
	"time"

	"github.com/pkg/errors"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"gatekeeper/config"
	"gatekeeper/internal/domain/service"
)

// totpPeriod is the RFC 6238 time-step length in seconds.
const totpPeriod = 30

// totpSecretSize is the secret entropy in bytes.
const totpSecretSize = 20

// totpService is a concrete implementation of the TOTPService interface.
type totpService struct {
	issuer string
	skew   uint
}

// NewTOTPService is the constructor for totpService.
func NewTOTPService(cfg *config.Config) service.TOTPService {
	issuer := "Gatekeeper"
	var skew uint = 1
	if cfg.TOTP != nil {
		if cfg.TOTP.Issuer != "" {
			issuer = cfg.TOTP.Issuer
		}
		if cfg.TOTP.Skew > 0 {
			skew = cfg.TOTP.Skew
		}
	}

	return &totpService{issuer: issuer, skew: skew}
}

// GenerateSecret creates a fresh base32 secret and its otpauth provisioning URI.
func (s *totpService) GenerateSecret(accountName string) (*service.TOTPSecret, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: accountName,
		SecretSize:  totpSecretSize,
		Period:      totpPeriod,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate totp secret")
	}

	return &service.TOTPSecret{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
	}, nil
}

// VerifyCode checks the code against each time step inside the skew window and
// returns the step that matched. Returning the step lets the caller persist it
// and refuse a second use of the same code.
func (s *totpService) VerifyCode(secret, code string, at time.Time) (int64, bool) {
	currentStep := at.Unix() / totpPeriod

	for offset := -int64(s.skew); offset <= int64(s.skew); offset++ {
		step := currentStep + offset
		expected, err := totp.GenerateCodeCustom(secret, time.Unix(step*totpPeriod, 0), totp.ValidateOpts{
			Period:    totpPeriod,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		})
		if err != nil {
			return 0, false
		}

		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			return step, true
		}
	}

	return 0, false
}
