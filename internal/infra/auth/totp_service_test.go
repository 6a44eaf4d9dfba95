package auth

import (
	"strings"
	"testing"
	"time"

	"gatekeeper/config"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTOTPTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.TOTP = &config.TOTPConfig{Issuer: "GatekeeperTest", Skew: 1}

	return cfg
}

func generateCodeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()

	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    totpPeriod,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)

	return code
}

func TestTOTPService_GenerateSecret(t *testing.T) {
	svc := NewTOTPService(newTOTPTestConfig())

	secret, err := svc.GenerateSecret("alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, secret)

	assert.NotEmpty(t, secret.Secret)
	// 20 bytes of entropy encode to 32 base32 characters.
	assert.Len(t, secret.Secret, 32)
	assert.True(t, strings.HasPrefix(secret.ProvisioningURI, "otpauth://totp/"))
	assert.Contains(t, secret.ProvisioningURI, "GatekeeperTest")
	assert.Contains(t, secret.ProvisioningURI, "alice@example.com")
}

func TestTOTPService_GenerateSecret_Unique(t *testing.T) {
	svc := NewTOTPService(newTOTPTestConfig())

	first, err := svc.GenerateSecret("alice@example.com")
	require.NoError(t, err)
	second, err := svc.GenerateSecret("alice@example.com")
	require.NoError(t, err)

	assert.NotEqual(t, first.Secret, second.Secret)
}

func TestTOTPService_VerifyCode(t *testing.T) {
	svc := NewTOTPService(newTOTPTestConfig())

	secret, err := svc.GenerateSecret("alice@example.com")
	require.NoError(t, err)

	now := time.Now()
	code := generateCodeAt(t, secret.Secret, now)

	step, ok := svc.VerifyCode(secret.Secret, code, now)
	assert.True(t, ok)
	assert.Equal(t, now.Unix()/totpPeriod, step)

	_, ok = svc.VerifyCode(secret.Secret, "000000", now)
	assert.False(t, ok)
}

func TestTOTPService_VerifyCode_SkewTolerance(t *testing.T) {
	svc := NewTOTPService(newTOTPTestConfig())

	secret, err := svc.GenerateSecret("alice@example.com")
	require.NoError(t, err)

	now := time.Now()

	// A code from the previous step is still accepted within skew 1.
	previous := now.Add(-totpPeriod * time.Second)
	code := generateCodeAt(t, secret.Secret, previous)
	step, ok := svc.VerifyCode(secret.Secret, code, now)
	assert.True(t, ok)
	assert.Equal(t, previous.Unix()/totpPeriod, step)

	// A code from the next step is also accepted.
	next := now.Add(totpPeriod * time.Second)
	code = generateCodeAt(t, secret.Secret, next)
	_, ok = svc.VerifyCode(secret.Secret, code, now)
	assert.True(t, ok)

	// Two steps away is outside the window.
	far := now.Add(2 * totpPeriod * time.Second)
	code = generateCodeAt(t, secret.Secret, far)
	_, ok = svc.VerifyCode(secret.Secret, code, now)
	assert.False(t, ok)
}

func TestTOTPService_VerifyCode_BadSecret(t *testing.T) {
	svc := NewTOTPService(newTOTPTestConfig())

	_, ok := svc.VerifyCode("not-base32!!", "123456", time.Now())
	assert.False(t, ok)
}
