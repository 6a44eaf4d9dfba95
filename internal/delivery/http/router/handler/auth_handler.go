// Package handler contains the HTTP handlers for the application.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"gatekeeper/internal/delivery/http/middleware"
	"gatekeeper/internal/delivery/http/response"
	"gatekeeper/internal/domain/entity"
	domainerrors "gatekeeper/internal/domain/errors"
	"gatekeeper/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// AuthHandler holds dependencies for authentication handlers.
type AuthHandler struct {
	uc     usecase.AuthUsecase
	logger *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler, injected by Fx.
func NewAuthHandler(uc usecase.AuthUsecase, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		uc:     uc,
		logger: logger,
	}
}

type registerRequest struct {
	Email           string  `json:"email" validate:"required,email"`
	Username        string  `json:"username" validate:"required,min=3,max=30"`
	Password        string  `json:"password" validate:"required,min=8"`
	ConfirmPassword string  `json:"confirmPassword" validate:"required,eqfield=Password"`
	FirstName       *string `json:"firstName"`
	LastName        *string `json:"lastName"`
}

// Register handles the account registration request.
func (h *AuthHandler) Register(c echo.Context) error {
	var input *registerRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid registration input")
	}
	if err := c.Validate(input); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.Register(c.Request().Context(), &usecase.RegisterInput{
		Email:     input.Email,
		Username:  input.Username,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, newUserResponse(output.User),
		"Registration successful. Please check your email to verify your account.")
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles the password login request. Accounts with two-factor enabled
// receive a temp token instead of a session token.
func (h *AuthHandler) Login(c echo.Context) error {
	var input *loginRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid login input")
	}
	if err := c.Validate(input); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.Login(c.Request().Context(), &usecase.LoginInput{
		Email:    input.Email,
		Password: input.Password,
		Client:   middleware.CaptureClientInfo(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if output.RequiresTwoFactor {
		return response.Success(c, http.StatusOK, newLoginResponse(output), "Two-factor code required")
	}

	return response.Success(c, http.StatusOK, newLoginResponse(output), "Login successful")
}

// VerifyEmail consumes the verification token from the emailed link.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return response.BadRequest(c, "INVALID_INPUT", "Verification token is required")
	}

	user, err := h.uc.VerifyEmail(c.Request().Context(), token)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newUserResponse(user), "Email verified successfully")
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword requests a password reset email. The response is identical
// whether or not the address belongs to an account.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var input *forgotPasswordRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid input")
	}
	if err := c.Validate(input); err != nil {
		return errors.WithStack(err)
	}

	if err := h.uc.RequestPasswordReset(c.Request().Context(), input.Email); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil,
		"If an account with that email exists, a password reset link has been sent.")
}

type resetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// ResetPassword consumes a reset token and sets a new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var input *resetPasswordRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid input")
	}
	if err := c.Validate(input); err != nil {
		return errors.WithStack(err)
	}

	if err := h.uc.ResetPassword(c.Request().Context(), &usecase.ResetPasswordInput{
		Token:    input.Token,
		Password: input.Password,
	}); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Password has been reset successfully")
}

// SetupTwoFactor starts two-factor enrollment for the authenticated user.
func (h *AuthHandler) SetupTwoFactor(c echo.Context) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.SetupTwoFactor(c.Request().Context(), userID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{
		"secret":     output.Secret,
		"otpauthUrl": output.OtpauthURL,
		"qrCodeUrl":  output.QRCodeURL,
	}, "Scan the QR code with your authenticator app, then verify a code to enable")
}

type twoFactorCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// VerifyTwoFactor confirms enrollment by consuming the first valid code.
func (h *AuthHandler) VerifyTwoFactor(c echo.Context) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return errors.WithStack(err)
	}

	var input *twoFactorCodeRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid input")
	}
	if err := c.Validate(input); err != nil {
		return errors.WithStack(err)
	}

	if err := h.uc.VerifyAndEnableTwoFactor(c.Request().Context(), userID, input.Code); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Two-factor authentication enabled")
}

// DisableTwoFactor turns two-factor off after a final valid code.
func (h *AuthHandler) DisableTwoFactor(c echo.Context) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return errors.WithStack(err)
	}

	var input *twoFactorCodeRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid input")
	}
	if err := c.Validate(input); err != nil {
		return errors.WithStack(err)
	}

	if err := h.uc.DisableTwoFactor(c.Request().Context(), userID, input.Code); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Two-factor authentication disabled")
}

// ValidateTwoFactor completes a pending login. The caller authenticates with
// the temp token from the password step; the user ID comes from its claims.
func (h *AuthHandler) ValidateTwoFactor(c echo.Context) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return errors.WithStack(err)
	}

	var input *twoFactorCodeRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid input")
	}
	if err := c.Validate(input); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.ValidateTwoFactor(c.Request().Context(), &usecase.ValidateTwoFactorInput{
		UserID: userID,
		Code:   input.Code,
		Client: middleware.CaptureClientInfo(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newLoginResponse(output), "Login successful")
}

// SocialProviderRedirect stands in for the server-side OAuth redirect flow.
// Providers are integrated through the token-based social login endpoint; the
// browser redirect flow is not offered.
func (h *AuthHandler) SocialProviderRedirect(c echo.Context) error {
	provider := entity.SocialProvider(c.Param("provider"))
	if !provider.Valid() {
		return response.NotFound(c, "UNKNOWN_PROVIDER", "Unknown social provider")
	}

	return errors.WithStack(domainerrors.ErrNotImplemented)
}

type socialLoginRequest struct {
	Provider       string          `json:"provider" validate:"required"`
	ProviderUserID string          `json:"providerUserId" validate:"required"`
	Email          string          `json:"email" validate:"required,email"`
	FirstName      *string         `json:"firstName"`
	LastName       *string         `json:"lastName"`
	ProfilePicture *string         `json:"profilePicture"`
	ProfileData    json.RawMessage `json:"profileData"`
}

// SocialLogin signs in with a profile asserted by an external provider,
// creating or linking the local account as needed.
func (h *AuthHandler) SocialLogin(c echo.Context) error {
	var input *socialLoginRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid input")
	}
	if err := c.Validate(input); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.SocialLogin(c.Request().Context(), &usecase.SocialLoginInput{
		Provider:       entity.SocialProvider(input.Provider),
		ProviderUserID: input.ProviderUserID,
		Email:          input.Email,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		ProfilePicture: input.ProfilePicture,
		ProfileData:    input.ProfileData,
		Client:         middleware.CaptureClientInfo(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newLoginResponse(output), "Login successful")
}
