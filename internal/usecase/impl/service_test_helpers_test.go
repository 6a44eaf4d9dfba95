package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gatekeeper/config"
	"gatekeeper/internal/domain/entity"
	"gatekeeper/internal/infra/auth"
	"gatekeeper/internal/infra/persistence/memory"
	"gatekeeper/internal/infra/qrcode"
	"gatekeeper/internal/usecase"
)

// recordingMailer captures outbound mail instead of delivering it.
type recordingMailer struct {
	mu            sync.Mutex
	verifications []sentToken
	resets        []sentToken
	welcomes      []string
	notifications []string
}

type sentToken struct {
	To    string
	Token string
}

func (m *recordingMailer) SendVerificationEmail(_ context.Context, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications = append(m.verifications, sentToken{To: to, Token: token})

	return nil
}

func (m *recordingMailer) SendPasswordResetEmail(_ context.Context, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, sentToken{To: to, Token: token})

	return nil
}

func (m *recordingMailer) SendWelcomeEmail(_ context.Context, to, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomes = append(m.welcomes, to)

	return nil
}

func (m *recordingMailer) SendLoginNotification(_ context.Context, to string, _ entity.ClientInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, to)

	return nil
}

func (m *recordingMailer) lastVerification(t *testing.T) sentToken {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.verifications, "expected a verification email")

	return m.verifications[len(m.verifications)-1]
}

func (m *recordingMailer) lastReset(t *testing.T) sentToken {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.resets, "expected a password reset email")

	return m.resets[len(m.resets)-1]
}

func (m *recordingMailer) resetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.resets)
}

// testEnv wires the real crypto services against the in-memory store.
type testEnv struct {
	store    *memory.Store
	mailer   *recordingMailer
	auth     usecase.AuthUsecase
	profiles usecase.ProfileUsecase
	sessions usecase.SessionUsecase
}

func newTestConfig() *config.Config {
	return &config.Config{
		JWT: &config.JWTConfig{
			Secret:     "unit-test-signing-key",
			SessionTTL: 30 * 24 * time.Hour,
			TempTTL:    5 * time.Minute,
		},
		Auth: &config.AuthConfig{
			BcryptCost:      bcrypt.MinCost,
			VerificationTTL: 24 * time.Hour,
			ResetTTL:        time.Hour,
		},
		TOTP: &config.TOTPConfig{
			Issuer: "Gatekeeper",
			Skew:   1,
		},
		QRCode: &config.QRCodeConfig{
			Size:                 256,
			ErrorCorrectionLevel: "M",
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := newTestConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.NewStore()
	mailer := &recordingMailer{}

	tokenService, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	hasher := auth.NewBcryptHasher(cfg)
	totpService := auth.NewTOTPService(cfg)
	qrService := qrcode.NewQRCodeService(cfg)

	authUsecase := NewAuthService(AuthServiceParams{
		TxManager:     memory.NewTransactionManager(store),
		UserRepo:      memory.NewUserRepository(store),
		SessionRepo:   memory.NewSessionRepository(store),
		SocialRepo:    memory.NewSocialConnectionRepository(store),
		Hasher:        hasher,
		TokenService:  tokenService,
		TOTPService:   totpService,
		QRCodeService: qrService,
		Mailer:        mailer,
		Config:        cfg,
		Logger:        logger,
	})

	profileUsecase := NewProfileService(ProfileServiceParams{
		UserRepo:   memory.NewUserRepository(store),
		SocialRepo: memory.NewSocialConnectionRepository(store),
		Hasher:     hasher,
		Mailer:     mailer,
		Config:     cfg,
		Logger:     logger,
	})

	sessionUsecase := NewSessionService(SessionServiceParams{
		SessionRepo: memory.NewSessionRepository(store),
		Logger:      logger,
	})

	return &testEnv{
		store:    store,
		mailer:   mailer,
		auth:     authUsecase,
		profiles: profileUsecase,
		sessions: sessionUsecase,
	}
}

// registerVerified registers an account and walks it through email verification.
func (env *testEnv) registerVerified(t *testing.T, email, username, password string) *entity.User {
	t.Helper()
	ctx := context.Background()

	out, err := env.auth.Register(ctx, &usecase.RegisterInput{
		Email:    email,
		Username: username,
		Password: password,
	})
	require.NoError(t, err)

	verified, err := env.auth.VerifyEmail(ctx, env.mailer.lastVerification(t).Token)
	require.NoError(t, err)
	require.Equal(t, out.User.ID, verified.ID)

	return verified
}

// login performs a password login that is expected to succeed outright.
func (env *testEnv) login(t *testing.T, email, password string) *usecase.LoginOutput {
	t.Helper()

	out, err := env.auth.Login(context.Background(), &usecase.LoginInput{
		Email:    email,
		Password: password,
		Client:   entity.ClientInfo{IPAddress: "192.0.2.10", UserAgent: "go-test"},
	})
	require.NoError(t, err)
	require.False(t, out.RequiresTwoFactor)
	require.NotEmpty(t, out.Token)

	return out
}
