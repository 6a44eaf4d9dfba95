package router

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gatekeeper/config"
	httpmiddleware "gatekeeper/internal/delivery/http/middleware"
	"gatekeeper/internal/delivery/http/response"
	"gatekeeper/internal/delivery/http/router/handler"
	"gatekeeper/internal/delivery/http/validator"
	"gatekeeper/internal/domain/service"
	"gatekeeper/internal/infra/auth"
	"gatekeeper/internal/infra/mail"
	"gatekeeper/internal/infra/persistence/memory"
	"gatekeeper/internal/infra/qrcode"
	"gatekeeper/internal/usecase/impl"
)

// apiEnv spins up the full echo stack against the in-memory store, the same
// wiring main performs minus the fx container.
type apiEnv struct {
	echo     *echo.Echo
	store    *memory.Store
	tokenSvc service.TokenService
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	cfg := &config.Config{
		JWT: &config.JWTConfig{
			Secret:     "router-test-signing-key",
			SessionTTL: 30 * 24 * time.Hour,
			TempTTL:    5 * time.Minute,
		},
		Auth: &config.AuthConfig{
			BcryptCost:      bcrypt.MinCost,
			VerificationTTL: 24 * time.Hour,
			ResetTTL:        time.Hour,
		},
		TOTP:   &config.TOTPConfig{Issuer: "Gatekeeper", Skew: 1},
		QRCode: &config.QRCodeConfig{Size: 256, ErrorCorrectionLevel: "M"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.NewStore()
	mailer := mail.NewLogMailer(logger)

	tokenSvc, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	authUsecase := impl.NewAuthService(impl.AuthServiceParams{
		TxManager:     memory.NewTransactionManager(store),
		UserRepo:      memory.NewUserRepository(store),
		SessionRepo:   memory.NewSessionRepository(store),
		SocialRepo:    memory.NewSocialConnectionRepository(store),
		Hasher:        auth.NewBcryptHasher(cfg),
		TokenService:  tokenSvc,
		TOTPService:   auth.NewTOTPService(cfg),
		QRCodeService: qrcode.NewQRCodeService(cfg),
		Mailer:        mailer,
		Config:        cfg,
		Logger:        logger,
	})
	profileUsecase := impl.NewProfileService(impl.ProfileServiceParams{
		UserRepo:   memory.NewUserRepository(store),
		SocialRepo: memory.NewSocialConnectionRepository(store),
		Hasher:     auth.NewBcryptHasher(cfg),
		Mailer:     mailer,
		Config:     cfg,
		Logger:     logger,
	})
	sessionUsecase := impl.NewSessionService(impl.SessionServiceParams{
		SessionRepo: memory.NewSessionRepository(store),
		Logger:      logger,
	})

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()
	e.HTTPErrorHandler = httpmiddleware.NewErrorMiddleware(logger).HandleHTTPError

	r := NewRouter(RouterParams{
		AuthHandler:    handler.NewAuthHandler(authUsecase, logger),
		UserHandler:    handler.NewUserHandler(profileUsecase, logger),
		SessionHandler: handler.NewSessionHandler(sessionUsecase, logger),
		AuthMiddleware: httpmiddleware.NewAuthMiddleware(tokenSvc, memory.NewSessionRepository(store)),
	})
	r.RegisterRoutes(e)

	return &apiEnv{echo: e, store: store, tokenSvc: tokenSvc}
}

func (env *apiEnv) do(method, path, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (response.Response, map[string]any) {
	t.Helper()

	var envelope response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))

	data, _ := envelope.Data.(map[string]any)

	return envelope, data
}

// verificationToken digs the pending token out of the store, standing in for
// reading the verification email.
func (env *apiEnv) verificationToken(t *testing.T, email string) string {
	t.Helper()

	user, err := env.store.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	require.NotNil(t, user.VerificationToken)

	return *user.VerificationToken
}

func TestHealthCheck(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterLoginProfileFlow(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/register",
		`{"email":"alice@example.com","username":"alice","password":"s3cretpass","confirmPassword":"s3cretpass"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	envelope, data := decodeEnvelope(t, rec)
	assert.True(t, envelope.Success)
	assert.Equal(t, "alice", data["username"])
	assert.Equal(t, false, data["isVerified"])

	// Login is blocked until the email is verified.
	login := `{"email":"alice@example.com","password":"s3cretpass"}`
	rec = env.do(http.MethodPost, "/api/auth/login", login, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	envelope, _ = decodeEnvelope(t, rec)
	assert.Equal(t, "EMAIL_NOT_VERIFIED", envelope.Error.Code)

	rec = env.do(http.MethodGet, "/api/auth/verify-email?token="+env.verificationToken(t, "alice@example.com"), "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/login", login, "")
	require.Equal(t, http.StatusOK, rec.Code)
	_, data = decodeEnvelope(t, rec)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)

	rec = env.do(http.MethodGet, "/api/user/profile", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	_, data = decodeEnvelope(t, rec)
	user, _ := data["user"].(map[string]any)
	assert.Equal(t, "alice@example.com", user["email"])

	// Logout revokes the session server-side.
	rec = env.do(http.MethodPost, "/api/auth/logout", "", token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/user/profile", "", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	envelope, _ = decodeEnvelope(t, rec)
	assert.Equal(t, "SESSION_INVALID", envelope.Error.Code)
}

func TestRegisterValidation(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/register",
		`{"email":"bob@example.com","username":"bob-the-builder","password":"s3cretpass","confirmPassword":"different"}`, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envelope, _ := decodeEnvelope(t, rec)
	assert.False(t, envelope.Success)
	assert.Equal(t, "VALIDATION_FAILED", envelope.Error.Code)
}

func TestFullAuthSurfacesRejectTempTokens(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/register",
		`{"email":"carol@example.com","username":"carol","password":"s3cretpass","confirmPassword":"s3cretpass"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	user, err := env.store.FindByEmail(context.Background(), "carol@example.com")
	require.NoError(t, err)

	tempToken, err := env.tokenSvc.IssueTempToken(user.ID)
	require.NoError(t, err)

	for _, path := range []string{"/api/user/profile", "/api/user/sessions"} {
		rec = env.do(http.MethodGet, path, "", tempToken)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
		envelope, _ := decodeEnvelope(t, rec)
		assert.Equal(t, "TWO_FACTOR_REQUIRED", envelope.Error.Code, path)
	}

	// Logout takes any bearer token; a temp token simply has no session to revoke.
	rec = env.do(http.MethodPost, "/api/auth/logout", "", tempToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Garbage tokens never get past Authenticate.
	rec = env.do(http.MethodGet, "/api/user/profile", "", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidateTwoFactorRejectsFullTokens(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/register",
		`{"email":"erin@example.com","username":"erin","password":"s3cretpass","confirmPassword":"s3cretpass"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(http.MethodGet, "/api/auth/verify-email?token="+env.verificationToken(t, "erin@example.com"), "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	login := `{"email":"erin@example.com","password":"s3cretpass"}`
	rec = env.do(http.MethodPost, "/api/auth/login", login, "")
	require.Equal(t, http.StatusOK, rec.Code)
	_, data := decodeEnvelope(t, rec)
	fullToken, _ := data["token"].(string)
	require.NotEmpty(t, fullToken)

	rec = env.do(http.MethodPost, "/api/auth/2fa/setup", "", fullToken)
	require.Equal(t, http.StatusOK, rec.Code)
	_, data = decodeEnvelope(t, rec)
	secret, _ := data["secret"].(string)
	require.NotEmpty(t, secret)

	// Enroll with the previous step's code so the current one stays fresh.
	enrollCode, err := totp.GenerateCode(secret, time.Now().Add(-30*time.Second))
	require.NoError(t, err)
	rec = env.do(http.MethodPost, "/api/auth/2fa/verify", `{"code":"`+enrollCode+`"}`, fullToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/login", login, "")
	require.Equal(t, http.StatusOK, rec.Code)
	_, data = decodeEnvelope(t, rec)
	require.Equal(t, true, data["requiresTwoFactor"])
	tempToken, _ := data["tempToken"].(string)
	require.NotEmpty(t, tempToken)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	rec = env.do(http.MethodPost, "/api/auth/2fa/validate", `{"code":"`+code+`"}`, tempToken)
	require.Equal(t, http.StatusOK, rec.Code)
	_, data = decodeEnvelope(t, rec)
	require.NotEmpty(t, data["token"])

	// A full session token must not complete the code exchange, valid code or not.
	rec = env.do(http.MethodPost, "/api/auth/2fa/validate", `{"code":"`+code+`"}`, fullToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	envelope, _ := decodeEnvelope(t, rec)
	assert.Equal(t, "UNAUTHORIZED", envelope.Error.Code)
}

func TestSocialLoginEndpoint(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/social",
		`{"provider":"google","providerUserId":"g-123","email":"dora@example.com","firstName":"Dora"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	_, data := decodeEnvelope(t, rec)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)
	user, _ := data["user"].(map[string]any)
	assert.Equal(t, "dora", user["username"])
	assert.Equal(t, true, user["isVerified"])

	rec = env.do(http.MethodPost, "/api/auth/social",
		`{"provider":"myspace","providerUserId":"m-1","email":"dora@example.com"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSocialRedirectStubs(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(http.MethodGet, "/api/auth/google", "", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = env.do(http.MethodGet, "/api/auth/github/callback", "", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = env.do(http.MethodGet, "/api/auth/myspace", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
