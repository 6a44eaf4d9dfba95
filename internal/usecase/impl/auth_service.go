// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"

	"gatekeeper/config"
	deliverycontext "gatekeeper/internal/delivery/context"
	"gatekeeper/internal/domain/entity"
	domainerrors "gatekeeper/internal/domain/errors"
	"gatekeeper/internal/domain/repository"
	"gatekeeper/internal/domain/service"
	"gatekeeper/internal/usecase"
)

const (
	tokenBytes          = 32
	maxUsernameAttempts = 1000
)

// authService implements the AuthUsecase interface.
type authService struct {
	txManager       repository.TransactionManager
	userRepo        repository.UserRepository
	sessionRepo     repository.SessionRepository
	socialRepo      repository.SocialConnectionRepository
	hasher          service.PasswordHasher
	tokenService    service.TokenService
	totpService     service.TOTPService
	qrCodeService   service.QRCodeService
	mailer          service.Mailer
	verificationTTL time.Duration
	resetTTL        time.Duration
	logger          *slog.Logger
}

// AuthServiceParams holds dependencies for authService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager     repository.TransactionManager
	UserRepo      repository.UserRepository
	SessionRepo   repository.SessionRepository
	SocialRepo    repository.SocialConnectionRepository
	Hasher        service.PasswordHasher
	TokenService  service.TokenService
	TOTPService   service.TOTPService
	QRCodeService service.QRCodeService
	Mailer        service.Mailer
	Config        *config.Config
	Logger        *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	verificationTTL := 24 * time.Hour
	resetTTL := time.Hour
	if params.Config != nil && params.Config.Auth != nil {
		if params.Config.Auth.VerificationTTL > 0 {
			verificationTTL = params.Config.Auth.VerificationTTL
		}
		if params.Config.Auth.ResetTTL > 0 {
			resetTTL = params.Config.Auth.ResetTTL
		}
	}

	return &authService{
		txManager:       params.TxManager,
		userRepo:        params.UserRepo,
		sessionRepo:     params.SessionRepo,
		socialRepo:      params.SocialRepo,
		hasher:          params.Hasher,
		tokenService:    params.TokenService,
		totpService:     params.TOTPService,
		qrCodeService:   params.QRCodeService,
		mailer:          params.Mailer,
		verificationTTL: verificationTTL,
		resetTTL:        resetTTL,
		logger:          params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// newRandomToken mints an opaque single-purpose token with 256 bits of entropy.
func newRandomToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to read random bytes for token")
	}

	return hex.EncodeToString(buf), nil
}

// Register orchestrates the complete account registration process.
func (srv *authService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.RegisterOutput, error) {
	srv.log(ctx).Info("Starting registration", slog.String("email", input.Email))

	hashedPassword, err := srv.hasher.Hash(input.Password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password during registration")
	}

	verificationToken, err := newRandomToken()
	if err != nil {
		return nil, err
	}
	verificationExpires := time.Now().Add(srv.verificationTTL)

	newUser := &entity.User{
		Email:               input.Email,
		Username:            input.Username,
		PasswordHash:        &hashedPassword,
		FirstName:           input.FirstName,
		LastName:            input.LastName,
		VerificationToken:   &verificationToken,
		VerificationExpires: &verificationExpires,
	}

	// The existence pre-checks and the insert must commit atomically so a
	// concurrent registration with the same email or username loses cleanly.
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		if _, err := userRepo.FindByEmail(ctx, input.Email); err == nil {
			return domainerrors.ErrEmailTaken
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return errors.Wrap(err, "failed to check email availability")
		}

		if _, err := userRepo.FindByUsername(ctx, input.Username); err == nil {
			return domainerrors.ErrUsernameTaken
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return errors.Wrap(err, "failed to check username availability")
		}

		if err := userRepo.Create(ctx, newUser); err != nil {
			return mapUserPersistenceError(err)
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Registration failed", slog.String("email", input.Email), slog.Any("error", err))

		return nil, err
	}

	// The account is committed; a failed delivery must not undo it.
	if err := srv.mailer.SendVerificationEmail(ctx, newUser.Email, verificationToken); err != nil {
		srv.log(ctx).Error("Failed to send verification email", slog.Any("userID", newUser.ID), slog.Any("error", err))
	}

	srv.log(ctx).Debug("Registration completed", slog.Any("userID", newUser.ID))

	return &usecase.RegisterOutput{User: newUser}, nil
}

// Login orchestrates a password login, splitting into the two-factor path when
// the account has TOTP enabled.
func (srv *authService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	srv.log(ctx).Debug("Starting login", slog.String("email", input.Email))

	user, err := srv.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrInvalidCredentials
		}

		return nil, errors.Wrap(err, "failed to load user for login")
	}

	// Social-only accounts carry no password; they fail exactly like a wrong one.
	if !user.HasPassword() || !srv.hasher.Check(input.Password, *user.PasswordHash) {
		srv.log(ctx).Warn("Login failed", slog.String("email", input.Email))

		return nil, domainerrors.ErrInvalidCredentials
	}

	if !user.IsVerified {
		return nil, domainerrors.ErrEmailNotVerified
	}

	if user.TwoFactorEnabled {
		tempToken, err := srv.tokenService.IssueTempToken(user.ID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to issue temp token")
		}

		srv.log(ctx).Debug("Login pending two-factor", slog.Any("userID", user.ID))

		return &usecase.LoginOutput{RequiresTwoFactor: true, TempToken: tempToken}, nil
	}

	return srv.establishSession(ctx, user, input.Client)
}

// ValidateTwoFactor completes a login that was paused for a TOTP code.
func (srv *authService) ValidateTwoFactor(ctx context.Context, input *usecase.ValidateTwoFactorInput) (*usecase.LoginOutput, error) {
	user, err := srv.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrUnauthorized
		}

		return nil, errors.Wrap(err, "failed to load user for two-factor validation")
	}

	if !user.TwoFactorEnabled || user.TwoFactorSecret == nil {
		return nil, domainerrors.ErrTwoFactorNotEnabled
	}

	if err := srv.consumeTOTPCode(ctx, user, input.Code); err != nil {
		return nil, err
	}

	return srv.establishSession(ctx, user, input.Client)
}

// consumeTOTPCode verifies the code and burns its time step so the same code
// cannot authenticate twice within the skew window.
func (srv *authService) consumeTOTPCode(ctx context.Context, user *entity.User, code string) error {
	matchedStep, ok := srv.totpService.VerifyCode(*user.TwoFactorSecret, code, time.Now())
	if !ok {
		srv.log(ctx).Warn("Two-factor code rejected", slog.Any("userID", user.ID))

		return domainerrors.ErrInvalidCode
	}

	if user.TwoFactorLastStep != nil && *user.TwoFactorLastStep >= matchedStep {
		srv.log(ctx).Warn("Two-factor code replay rejected", slog.Any("userID", user.ID))

		return domainerrors.ErrInvalidCode
	}

	user.TwoFactorLastStep = &matchedStep
	if err := srv.userRepo.Update(ctx, user); err != nil {
		return errors.Wrap(err, "failed to record consumed two-factor step")
	}

	return nil
}

// establishSession issues a session token, records the server-side session and
// fires the login notification.
func (srv *authService) establishSession(ctx context.Context, user *entity.User, client entity.ClientInfo) (*usecase.LoginOutput, error) {
	token, err := srv.tokenService.IssueSessionToken(user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue session token")
	}

	session := &entity.Session{
		UserID:    user.ID,
		Token:     token,
		Client:    client,
		ExpiresAt: time.Now().Add(srv.tokenService.SessionTTL()),
	}
	if err := srv.sessionRepo.Create(ctx, session); err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}

	if err := srv.mailer.SendLoginNotification(ctx, user.Email, client); err != nil {
		srv.log(ctx).Error("Failed to send login notification", slog.Any("userID", user.ID), slog.Any("error", err))
	}

	srv.log(ctx).Info("Session established", slog.Any("userID", user.ID))

	return &usecase.LoginOutput{Token: token, User: user}, nil
}

// VerifyEmail consumes a verification token and marks the account verified.
func (srv *authService) VerifyEmail(ctx context.Context, token string) (*entity.User, error) {
	user, err := srv.userRepo.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrInvalidToken
		}

		return nil, errors.Wrap(err, "failed to load user by verification token")
	}

	if user.VerificationExpires == nil || user.VerificationExpires.Before(time.Now()) {
		return nil, domainerrors.ErrInvalidToken.WrapMessage("Verification token has expired")
	}

	user.IsVerified = true
	user.VerificationToken = nil
	user.VerificationExpires = nil

	if err := srv.userRepo.Update(ctx, user); err != nil {
		return nil, errors.Wrap(err, "failed to mark user verified")
	}

	if err := srv.mailer.SendWelcomeEmail(ctx, user.Email, user.FullAuthName()); err != nil {
		srv.log(ctx).Error("Failed to send welcome email", slog.Any("userID", user.ID), slog.Any("error", err))
	}

	srv.log(ctx).Info("Email verified", slog.Any("userID", user.ID))

	return user, nil
}

// RequestPasswordReset issues a reset token for a known address, and does
// nothing observable for an unknown one.
func (srv *authService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := srv.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			srv.log(ctx).Debug("Password reset requested for unknown email")

			return nil
		}

		return errors.Wrap(err, "failed to load user for password reset")
	}

	resetToken, err := newRandomToken()
	if err != nil {
		return err
	}
	resetExpires := time.Now().Add(srv.resetTTL)

	user.ResetToken = &resetToken
	user.ResetExpires = &resetExpires

	if err := srv.userRepo.Update(ctx, user); err != nil {
		return errors.Wrap(err, "failed to store reset token")
	}

	if err := srv.mailer.SendPasswordResetEmail(ctx, user.Email, resetToken); err != nil {
		srv.log(ctx).Error("Failed to send password reset email", slog.Any("userID", user.ID), slog.Any("error", err))
	}

	srv.log(ctx).Info("Password reset issued", slog.Any("userID", user.ID))

	return nil
}

// ResetPassword consumes a live reset token and installs the new password.
func (srv *authService) ResetPassword(ctx context.Context, input *usecase.ResetPasswordInput) error {
	user, err := srv.userRepo.FindByResetToken(ctx, input.Token)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domainerrors.ErrInvalidToken
		}

		return errors.Wrap(err, "failed to load user by reset token")
	}

	hashedPassword, err := srv.hasher.Hash(input.Password)
	if err != nil {
		return errors.Wrap(err, "failed to hash new password")
	}

	user.PasswordHash = &hashedPassword
	user.ResetToken = nil
	user.ResetExpires = nil

	if err := srv.userRepo.Update(ctx, user); err != nil {
		return errors.Wrap(err, "failed to store new password")
	}

	srv.log(ctx).Info("Password reset completed", slog.Any("userID", user.ID))

	return nil
}

// SetupTwoFactor provisions a fresh TOTP secret. The secret stays pending
// until a code proves the authenticator was enrolled.
func (srv *authService) SetupTwoFactor(ctx context.Context, userID uuid.UUID) (*usecase.TwoFactorSetupOutput, error) {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user for two-factor setup")
	}

	if user.TwoFactorEnabled {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("Two-factor authentication is already enabled")
	}

	secret, err := srv.totpService.GenerateSecret(user.Email)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate two-factor secret")
	}

	user.TwoFactorSecret = &secret.Secret
	user.TwoFactorLastStep = nil
	if err := srv.userRepo.Update(ctx, user); err != nil {
		return nil, errors.Wrap(err, "failed to store pending two-factor secret")
	}

	qrCodeURL, err := srv.qrCodeService.GenerateDataURL(secret.ProvisioningURI)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render provisioning QR code")
	}

	srv.log(ctx).Info("Two-factor setup initiated", slog.Any("userID", userID))

	return &usecase.TwoFactorSetupOutput{
		Secret:     secret.Secret,
		OtpauthURL: secret.ProvisioningURI,
		QRCodeURL:  qrCodeURL,
	}, nil
}

// VerifyAndEnableTwoFactor turns the pending secret into an active one.
func (srv *authService) VerifyAndEnableTwoFactor(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "failed to load user for two-factor enable")
	}

	if user.TwoFactorSecret == nil {
		return domainerrors.ErrTwoFactorNotInitiated
	}

	if err := srv.consumeTOTPCode(ctx, user, code); err != nil {
		return err
	}

	user.TwoFactorEnabled = true
	if err := srv.userRepo.Update(ctx, user); err != nil {
		return errors.Wrap(err, "failed to enable two-factor authentication")
	}

	srv.log(ctx).Info("Two-factor enabled", slog.Any("userID", userID))

	return nil
}

// DisableTwoFactor removes TOTP from the account after a final code check.
func (srv *authService) DisableTwoFactor(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "failed to load user for two-factor disable")
	}

	if !user.TwoFactorEnabled || user.TwoFactorSecret == nil {
		return domainerrors.ErrTwoFactorNotEnabled
	}

	if err := srv.consumeTOTPCode(ctx, user, code); err != nil {
		return err
	}

	user.TwoFactorEnabled = false
	user.TwoFactorSecret = nil
	user.TwoFactorLastStep = nil
	if err := srv.userRepo.Update(ctx, user); err != nil {
		return errors.Wrap(err, "failed to disable two-factor authentication")
	}

	srv.log(ctx).Info("Two-factor disabled", slog.Any("userID", userID))

	return nil
}

// SocialLogin resolves an externally verified identity into a local session.
// Resolution is three-way: known connection, known email, or a brand new account.
func (srv *authService) SocialLogin(ctx context.Context, input *usecase.SocialLoginInput) (*usecase.LoginOutput, error) {
	if !input.Provider.Valid() {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("Unknown social provider")
	}

	var user *entity.User
	var isNewUser bool

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()
		socialRepo := repoFactory.SocialRepo()

		conn, err := socialRepo.FindByProviderUserID(ctx, input.Provider, input.ProviderUserID)
		if err == nil {
			user, err = userRepo.FindByID(ctx, conn.UserID)

			return errors.Wrap(err, "failed to load user for known social connection")
		}
		if !errors.Is(err, repository.ErrConnectionNotFound) {
			return errors.Wrap(err, "failed to look up social connection")
		}

		existing, err := userRepo.FindByEmail(ctx, input.Email)
		if err == nil {
			// Known email: link the provider account to the existing user.
			user = existing

			return srv.createConnection(ctx, socialRepo, user.ID, input)
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return errors.Wrap(err, "failed to look up user by social email")
		}

		user, err = srv.createSocialUser(ctx, userRepo, input)
		if err != nil {
			return err
		}
		isNewUser = true

		return srv.createConnection(ctx, socialRepo, user.ID, input)
	})
	if err != nil {
		srv.log(ctx).Warn("Social login failed", slog.String("provider", string(input.Provider)), slog.Any("error", err))

		return nil, err
	}

	if isNewUser {
		if err := srv.mailer.SendWelcomeEmail(ctx, user.Email, user.FullAuthName()); err != nil {
			srv.log(ctx).Error("Failed to send welcome email", slog.Any("userID", user.ID), slog.Any("error", err))
		}
	}

	return srv.establishSession(ctx, user, input.Client)
}

func (srv *authService) createConnection(ctx context.Context, socialRepo repository.SocialConnectionRepository, userID uuid.UUID, input *usecase.SocialLoginInput) error {
	conn := &entity.SocialConnection{
		UserID:         userID,
		Provider:       input.Provider,
		ProviderUserID: input.ProviderUserID,
		ProfileData:    input.ProfileData,
	}

	if err := socialRepo.Create(ctx, conn); err != nil {
		return errors.Wrap(err, "failed to create social connection")
	}

	return nil
}

// createSocialUser registers a new account from provider-asserted profile
// data. The provider already verified the email, so the account starts verified.
func (srv *authService) createSocialUser(ctx context.Context, userRepo repository.UserRepository, input *usecase.SocialLoginInput) (*entity.User, error) {
	username, err := srv.generateUniqueUsername(ctx, userRepo, input.Email)
	if err != nil {
		return nil, err
	}

	newUser := &entity.User{
		Email:          input.Email,
		Username:       username,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		ProfilePicture: input.ProfilePicture,
		IsVerified:     true,
	}

	if err := userRepo.Create(ctx, newUser); err != nil {
		return nil, mapUserPersistenceError(err)
	}

	srv.log(ctx).Info("Created account from social login",
		slog.Any("userID", newUser.ID),
		slog.String("provider", string(input.Provider)))

	return newUser, nil
}

// generateUniqueUsername derives a username from the email local part and
// suffixes a counter until it is free.
func (srv *authService) generateUniqueUsername(ctx context.Context, userRepo repository.UserRepository, email string) (string, error) {
	base := strings.ToLower(strings.SplitN(email, "@", 2)[0])
	if base == "" {
		base = "user"
	}

	candidate := base
	for i := 1; i <= maxUsernameAttempts; i++ {
		_, err := userRepo.FindByUsername(ctx, candidate)
		if errors.Is(err, repository.ErrUserNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", errors.Wrap(err, "failed to check username availability")
		}

		candidate = fmt.Sprintf("%s%d", base, i)
	}

	return "", errors.New("exhausted username candidates")
}

// mapUserPersistenceError converts repository uniqueness sentinels into their
// client-facing domain errors.
func mapUserPersistenceError(err error) error {
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return domainerrors.ErrEmailTaken
	case errors.Is(err, repository.ErrUsernameExists):
		return domainerrors.ErrUsernameTaken
	default:
		return err
	}
}
