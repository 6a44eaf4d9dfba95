package impl

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"

	deliverycontext "gatekeeper/internal/delivery/context"
	"gatekeeper/internal/domain/entity"
	"gatekeeper/internal/domain/repository"
	"gatekeeper/internal/usecase"
)

// sessionService implements the SessionUsecase interface.
type sessionService struct {
	sessionRepo repository.SessionRepository
	logger      *slog.Logger
}

// SessionServiceParams holds dependencies for sessionService, injected by Fx.
type SessionServiceParams struct {
	fx.In

	SessionRepo repository.SessionRepository
	Logger      *slog.Logger
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(params SessionServiceParams) usecase.SessionUsecase {
	return &sessionService{
		sessionRepo: params.SessionRepo,
		logger:      params.Logger,
	}
}

func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Logout revokes the session holding the given bearer token. Revoking an
// already-revoked token succeeds silently.
func (srv *sessionService) Logout(ctx context.Context, token string) error {
	if err := srv.sessionRepo.DeleteByToken(ctx, token); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			srv.log(ctx).Debug("Logout for unknown session")

			return nil
		}

		return errors.Wrap(err, "failed to delete session")
	}

	srv.log(ctx).Info("Logged out")

	return nil
}

// LogoutAll revokes every session the user holds.
func (srv *sessionService) LogoutAll(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := srv.sessionRepo.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete user sessions")
	}

	srv.log(ctx).Info("Logged out everywhere", slog.Any("userID", userID), slog.Int("sessions", count))

	return count, nil
}

// ListSessions returns the user's active sessions, newest first.
func (srv *sessionService) ListSessions(ctx context.Context, userID uuid.UUID) ([]*entity.Session, error) {
	sessions, err := srv.sessionRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sessions")
	}

	return sessions, nil
}
