// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"gatekeeper/internal/delivery/http/middleware"
	"gatekeeper/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	UserHandler    *handler.UserHandler
	SessionHandler *handler.SessionHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler    *handler.AuthHandler
	userHandler    *handler.UserHandler
	sessionHandler *handler.SessionHandler
	authMiddleware *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:    params.AuthHandler,
		userHandler:    params.UserHandler,
		sessionHandler: params.SessionHandler,
		authMiddleware: params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	api := e.Group("/api")

	// Auth routes
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", r.authHandler.Register)
		authGroup.POST("/login", r.authHandler.Login)
		authGroup.GET("/verify-email", r.authHandler.VerifyEmail)
		authGroup.POST("/forgot-password", r.authHandler.ForgotPassword)
		authGroup.POST("/reset-password", r.authHandler.ResetPassword)

		// Token-based social sign-in; the provider access token is verified
		// upstream and the asserted profile posted here.
		authGroup.POST("/social", r.authHandler.SocialLogin)

		// Browser OAuth redirect flow placeholders.
		authGroup.GET("/:provider", r.authHandler.SocialProviderRedirect)
		authGroup.GET("/:provider/callback", r.authHandler.SocialProviderRedirect)

		// Completing a pending two-factor login takes exactly the temp token.
		authGroup.POST("/2fa/validate", r.authHandler.ValidateTwoFactor,
			r.authMiddleware.Authenticate, r.authMiddleware.RequirePendingTwoFactor)

		// Managing two-factor settings requires a full session.
		authGroup.POST("/2fa/setup", r.authHandler.SetupTwoFactor,
			r.authMiddleware.Authenticate, r.authMiddleware.RequireFullAuth)
		authGroup.POST("/2fa/verify", r.authHandler.VerifyTwoFactor,
			r.authMiddleware.Authenticate, r.authMiddleware.RequireFullAuth)
		authGroup.POST("/2fa/disable", r.authHandler.DisableTwoFactor,
			r.authMiddleware.Authenticate, r.authMiddleware.RequireFullAuth)

		// Logout needs only a bearer token; revoking nothing is still success.
		authGroup.POST("/logout", r.sessionHandler.Logout, r.authMiddleware.Authenticate)
		authGroup.POST("/logout-all", r.sessionHandler.LogoutAll,
			r.authMiddleware.Authenticate, r.authMiddleware.RequireFullAuth)
	}

	// User routes that require full authentication
	userGroup := api.Group("/user")
	userGroup.Use(r.authMiddleware.Authenticate)
	userGroup.Use(r.authMiddleware.RequireFullAuth)
	{
		userGroup.GET("/profile", r.userHandler.GetProfile)
		userGroup.PATCH("/profile", r.userHandler.UpdateProfile)
		userGroup.POST("/email", r.userHandler.ChangeEmail)
		userGroup.POST("/password", r.userHandler.ChangePassword)
		userGroup.GET("/sessions", r.sessionHandler.ListSessions)
	}
}
