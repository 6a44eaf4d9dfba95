package impl

import (
	"context"
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

// profileService implements the ProfileUsecase interface.
type profileService struct {
	userRepo        repository.UserRepository
	socialRepo      repository.SocialConnectionRepository
	hasher          service.PasswordHasher
	mailer          service.Mailer
	verificationTTL time.Duration
	logger          *slog.Logger
}

// ProfileServiceParams holds dependencies for profileService, injected by Fx.
type ProfileServiceParams struct {
	fx.In

	UserRepo   repository.UserRepository
	SocialRepo repository.SocialConnectionRepository
	Hasher     service.PasswordHasher
	Mailer     service.Mailer
	Config     *config.Config
	Logger     *slog.Logger
}

// NewProfileService is the constructor for profileService.
func NewProfileService(params ProfileServiceParams) usecase.ProfileUsecase {
	verificationTTL := 24 * time.Hour
	if params.Config != nil && params.Config.Auth != nil && params.Config.Auth.VerificationTTL > 0 {
		verificationTTL = params.Config.Auth.VerificationTTL
	}

	return &profileService{
		userRepo:        params.UserRepo,
		socialRepo:      params.SocialRepo,
		hasher:          params.Hasher,
		mailer:          params.Mailer,
		verificationTTL: verificationTTL,
		logger:          params.Logger,
	}
}

func (srv *profileService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// GetProfile returns the user together with their linked external identities.
func (srv *profileService) GetProfile(ctx context.Context, userID uuid.UUID) (*usecase.ProfileOutput, error) {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to load user profile")
	}

	connections, err := srv.socialRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load social connections")
	}

	return &usecase.ProfileOutput{User: user, SocialConnections: connections}, nil
}

// UpdateProfile applies a partial patch to the user's profile fields.
func (srv *profileService) UpdateProfile(ctx context.Context, userID uuid.UUID, input *usecase.UpdateProfileInput) (*entity.User, error) {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to load user for profile update")
	}

	if input.Username != nil && !strings.EqualFold(*input.Username, user.Username) {
		if err := srv.checkUsernameFree(ctx, *input.Username, userID); err != nil {
			return nil, err
		}
		user.Username = *input.Username
	}
	if input.FirstName != nil {
		user.FirstName = input.FirstName
	}
	if input.LastName != nil {
		user.LastName = input.LastName
	}
	if input.ProfilePicture != nil {
		user.ProfilePicture = input.ProfilePicture
	}

	if err := srv.userRepo.Update(ctx, user); err != nil {
		return nil, mapUserPersistenceError(err)
	}

	srv.log(ctx).Info("Profile updated", slog.Any("userID", userID))

	return user, nil
}

func (srv *profileService) checkUsernameFree(ctx context.Context, username string, selfID uuid.UUID) error {
	existing, err := srv.userRepo.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to check username availability")
	}
	if existing.ID != selfID {
		return domainerrors.ErrUsernameTaken
	}

	return nil
}

// ChangeEmail swaps the address and demotes the account to unverified.
func (srv *profileService) ChangeEmail(ctx context.Context, userID uuid.UUID, input *usecase.ChangeEmailInput) error {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domainerrors.ErrUserNotFound
		}

		return errors.Wrap(err, "failed to load user for email change")
	}

	if !user.HasPassword() || !srv.hasher.Check(input.Password, *user.PasswordHash) {
		return domainerrors.ErrInvalidCredentials
	}

	existing, err := srv.userRepo.FindByEmail(ctx, input.NewEmail)
	if err == nil && existing.ID != userID {
		return domainerrors.ErrEmailTaken
	}
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return errors.Wrap(err, "failed to check email availability")
	}

	verificationToken, err := newRandomToken()
	if err != nil {
		return err
	}
	verificationExpires := time.Now().Add(srv.verificationTTL)

	user.Email = input.NewEmail
	user.IsVerified = false
	user.VerificationToken = &verificationToken
	user.VerificationExpires = &verificationExpires

	if err := srv.userRepo.Update(ctx, user); err != nil {
		return mapUserPersistenceError(err)
	}

	if err := srv.mailer.SendVerificationEmail(ctx, user.Email, verificationToken); err != nil {
		srv.log(ctx).Error("Failed to send verification email", slog.Any("userID", userID), slog.Any("error", err))
	}

	srv.log(ctx).Info("Email changed, verification pending", slog.Any("userID", userID))

	return nil
}

// ChangePassword installs a new password after re-proving the current one.
// Existing sessions stay valid.
func (srv *profileService) ChangePassword(ctx context.Context, userID uuid.UUID, input *usecase.ChangePasswordInput) error {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domainerrors.ErrUserNotFound
		}

		return errors.Wrap(err, "failed to load user for password change")
	}

	if !user.HasPassword() || !srv.hasher.Check(input.CurrentPassword, *user.PasswordHash) {
		return domainerrors.ErrInvalidCredentials
	}

	hashedPassword, err := srv.hasher.Hash(input.NewPassword)
	if err != nil {
		return errors.Wrap(err, "failed to hash new password")
	}

	user.PasswordHash = &hashedPassword
	if err := srv.userRepo.Update(ctx, user); err != nil {
		return errors.Wrap(err, "failed to store new password")
	}

	srv.log(ctx).Info("Password changed", slog.Any("userID", userID))

	return nil
}
