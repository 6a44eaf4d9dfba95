package handler

import (
	"log/slog"
	"net/http"

	"gatekeeper/internal/delivery/http/middleware"
	"gatekeeper/internal/delivery/http/response"
	"gatekeeper/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// SessionHandler holds dependencies for session management handlers.
type SessionHandler struct {
	uc     usecase.SessionUsecase
	logger *slog.Logger
}

// NewSessionHandler is the constructor for SessionHandler, injected by Fx.
func NewSessionHandler(uc usecase.SessionUsecase, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		uc:     uc,
		logger: logger,
	}
}

// Logout revokes the session behind the presented bearer token. Logging out
// an already revoked token still succeeds.
func (h *SessionHandler) Logout(c echo.Context) error {
	token, err := middleware.Token(c)
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.uc.Logout(c.Request().Context(), token); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Logged out")
}

// LogoutAll revokes every session belonging to the authenticated user,
// including the one making this request.
func (h *SessionHandler) LogoutAll(c echo.Context) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return errors.WithStack(err)
	}

	count, err := h.uc.LogoutAll(c.Request().Context(), userID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]int{"revoked": count}, "All sessions revoked")
}

// ListSessions returns the user's active sessions, newest first, flagging the
// one behind this request.
func (h *SessionHandler) ListSessions(c echo.Context) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return errors.WithStack(err)
	}

	token, err := middleware.Token(c)
	if err != nil {
		return errors.WithStack(err)
	}

	sessions, err := h.uc.ListSessions(c.Request().Context(), userID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newSessionResponses(sessions, token), "")
}
