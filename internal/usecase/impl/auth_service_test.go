package impl

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "gatekeeper/internal/domain/errors"
	"gatekeeper/internal/usecase"
)

func TestRegisterVerifyLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	out, err := env.auth.Register(ctx, &usecase.RegisterInput{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	assert.False(t, out.User.IsVerified)
	assert.NotNil(t, out.User.VerificationToken)

	// Login before verification is refused.
	_, err = env.auth.Login(ctx, &usecase.LoginInput{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	assert.ErrorIs(t, err, domainerrors.ErrEmailNotVerified)

	sent := env.mailer.lastVerification(t)
	assert.Equal(t, "alice@example.com", sent.To)

	verified, err := env.auth.VerifyEmail(ctx, sent.Token)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
	assert.Nil(t, verified.VerificationToken)

	login := env.login(t, "alice@example.com", "correct horse battery")
	assert.Equal(t, verified.ID, login.User.ID)

	// The session is recorded server-side and carries the client info.
	sessions, err := env.sessions.ListSessions(ctx, verified.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, login.Token, sessions[0].Token)
	assert.Equal(t, "192.0.2.10", sessions[0].Client.IPAddress)
}

func TestRegisterConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, &usecase.RegisterInput{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "password123",
	})
	require.NoError(t, err)

	_, err = env.auth.Register(ctx, &usecase.RegisterInput{
		Email:    "ALICE@example.com",
		Username: "someoneelse",
		Password: "password123",
	})
	assert.ErrorIs(t, err, domainerrors.ErrEmailTaken)

	_, err = env.auth.Register(ctx, &usecase.RegisterInput{
		Email:    "bob@example.com",
		Username: "Alice",
		Password: "password123",
	})
	assert.ErrorIs(t, err, domainerrors.ErrUsernameTaken)
}

func TestRegisterConcurrentDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Two racing registrations for the same address: the check-and-insert is
	// atomic, so exactly one commits and the other gets the conflict.
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.auth.Register(ctx, &usecase.RegisterInput{
				Email:    "race@example.com",
				Username: fmt.Sprintf("racer%d", i),
				Password: "password123",
			})
		}()
	}
	wg.Wait()

	var conflicts int
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, domainerrors.ErrEmailTaken)
			conflicts++
		}
	}
	require.Equal(t, 1, conflicts)

	user, err := env.store.FindByEmail(ctx, "race@example.com")
	require.NoError(t, err)
	assert.Contains(t, []string{"racer0", "racer1"}, user.Username)
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t, "alice@example.com", "alice", "password123")

	_, err := env.auth.Login(context.Background(), &usecase.LoginInput{
		Email:    "alice@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	_, err = env.auth.Login(context.Background(), &usecase.LoginInput{
		Email:    "nobody@example.com",
		Password: "password123",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestVerifyEmail_BadAndExpiredTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.VerifyEmail(ctx, "no-such-token")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)

	_, err = env.auth.Register(ctx, &usecase.RegisterInput{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "password123",
	})
	require.NoError(t, err)
	token := env.mailer.lastVerification(t).Token

	// Age the token past its expiry directly in the store.
	user, err := env.store.FindByVerificationToken(ctx, token)
	require.NoError(t, err)
	stale := time.Now().Add(-time.Minute)
	user.VerificationExpires = &stale
	require.NoError(t, env.store.Update(ctx, user))

	_, err = env.auth.VerifyEmail(ctx, token)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "alice@example.com", "alice", "oldpassword")

	require.NoError(t, env.auth.RequestPasswordReset(ctx, "alice@example.com"))
	token := env.mailer.lastReset(t).Token

	require.NoError(t, env.auth.ResetPassword(ctx, &usecase.ResetPasswordInput{
		Token:    token,
		Password: "newpassword",
	}))

	_, err := env.auth.Login(ctx, &usecase.LoginInput{Email: "alice@example.com", Password: "oldpassword"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	env.login(t, "alice@example.com", "newpassword")

	// The token is single-use.
	err = env.auth.ResetPassword(ctx, &usecase.ResetPasswordInput{Token: token, Password: "again"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}

func TestRequestPasswordReset_UnknownEmailIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "alice@example.com", "alice", "password123")

	// Both the known and the unknown address produce a nil error; only the
	// known one produces mail.
	assert.NoError(t, env.auth.RequestPasswordReset(ctx, "alice@example.com"))
	assert.NoError(t, env.auth.RequestPasswordReset(ctx, "stranger@example.com"))
	assert.Equal(t, 1, env.mailer.resetCount())
}

func TestTwoFactorLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerVerified(t, "alice@example.com", "alice", "password123")

	setup, err := env.auth.SetupTwoFactor(ctx, user.ID)
	require.NoError(t, err)
	assert.Contains(t, setup.OtpauthURL, "otpauth://totp/")
	assert.Contains(t, setup.QRCodeURL, "data:image/png;base64,")

	// Secret pending: a plain login still succeeds without a code.
	env.login(t, "alice@example.com", "password123")

	// Enroll with the previous time step's code; it sits inside the skew
	// window and leaves the current step free for the login below.
	code, err := totp.GenerateCode(setup.Secret, time.Now().Add(-30*time.Second))
	require.NoError(t, err)
	require.NoError(t, env.auth.VerifyAndEnableTwoFactor(ctx, user.ID, code))

	// Now login pauses for the second factor.
	out, err := env.auth.Login(ctx, &usecase.LoginInput{
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.True(t, out.RequiresTwoFactor)
	assert.NotEmpty(t, out.TempToken)
	assert.Empty(t, out.Token)

	// A wrong code is rejected.
	_, err = env.auth.ValidateTwoFactor(ctx, &usecase.ValidateTwoFactorInput{
		UserID: user.ID,
		Code:   "000000",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCode)

	// The current step's code completes the login; enrollment consumed the
	// previous step only.
	code, err = totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)

	full, err := env.auth.ValidateTwoFactor(ctx, &usecase.ValidateTwoFactorInput{
		UserID: user.ID,
		Code:   code,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, full.Token)

	// Replaying the same code is rejected.
	_, err = env.auth.ValidateTwoFactor(ctx, &usecase.ValidateTwoFactorInput{
		UserID: user.ID,
		Code:   code,
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCode)
}

func TestDisableTwoFactor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerVerified(t, "alice@example.com", "alice", "password123")

	err := env.auth.DisableTwoFactor(ctx, user.ID, "123456")
	assert.ErrorIs(t, err, domainerrors.ErrTwoFactorNotEnabled)

	setup, err := env.auth.SetupTwoFactor(ctx, user.ID)
	require.NoError(t, err)

	code, err := totp.GenerateCode(setup.Secret, time.Now().Add(-30*time.Second))
	require.NoError(t, err)
	require.NoError(t, env.auth.VerifyAndEnableTwoFactor(ctx, user.ID, code))

	code, err = totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, env.auth.DisableTwoFactor(ctx, user.ID, code))

	// Back to plain password logins.
	env.login(t, "alice@example.com", "password123")
}

func TestSetupTwoFactor_AlreadyEnabled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerVerified(t, "alice@example.com", "alice", "password123")

	setup, err := env.auth.SetupTwoFactor(ctx, user.ID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, env.auth.VerifyAndEnableTwoFactor(ctx, user.ID, code))

	_, err = env.auth.SetupTwoFactor(ctx, user.ID)
	assert.Error(t, err)
}

func TestVerifyAndEnableTwoFactor_NotInitiated(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerVerified(t, "alice@example.com", "alice", "password123")

	err := env.auth.VerifyAndEnableTwoFactor(context.Background(), user.ID, "123456")
	assert.ErrorIs(t, err, domainerrors.ErrTwoFactorNotInitiated)
}
