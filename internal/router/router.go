// Package router wires HTTP routes to handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/conference-management/internal/config"
	"github.com/iliyamo/conference-management/internal/handler"
	"github.com/iliyamo/conference-management/internal/middleware"
	"github.com/iliyamo/conference-management/internal/model"
)

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the /v1/auth group and the authenticated account
// endpoints.  The unauthenticated group carries the Redis token-bucket
// rate limiter so that login and password-recovery cannot be brute
// forced; when rdb is nil the limiter is skipped.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, rdb *redis.Client) {
	g := e.Group("/v1/auth")
	if rdb != nil {
		g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	}
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/forgot-password/init", a.RecoveryInit)
	g.POST("/forgot-password/reset", a.RecoveryReset)
	g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
	g.PUT("/change-password", a.ChangePassword, middleware.JWTAuth(jwtSecret))
}

// RegisterPapers registers the submission lifecycle under /v1/papers.
// Every route requires a valid access token; decisions are chair only.
func RegisterPapers(e *echo.Echo, p *handler.PaperHandler, jwtSecret string) {
	g := e.Group("/v1/papers")
	g.Use(middleware.JWTAuth(jwtSecret))

	g.POST("", p.Submit, middleware.RequireRole(model.RoleAuthor, model.RoleChair, model.RoleAdmin))
	g.GET("/mine", p.ListMine)
	g.GET("/:id", p.Get)
	g.PATCH("/:id", p.Edit)
	g.PATCH("/:id/submit", p.SubmitDraft)
	g.PATCH("/:id/withdraw", p.Withdraw)
	g.PATCH("/:id/decision", p.Decide, middleware.RequireRole(model.RoleChair, model.RoleAdmin))
}

// RegisterReviews registers assignment management and review submission.
// Assignment creation is chair only; the reviewer-facing routes accept
// reviewers and chairs acting as reviewers.
func RegisterReviews(e *echo.Echo, r *handler.ReviewHandler, jwtSecret string) {
	assignments := e.Group("/v1/assignments")
	assignments.Use(middleware.JWTAuth(jwtSecret))
	assignments.POST("", r.Assign, middleware.RequireRole(model.RoleChair, model.RoleAdmin))
	assignments.PATCH("/:id/start", r.Start, middleware.RequireRole(model.RoleReviewer, model.RoleChair))
	assignments.PATCH("/:id/decline", r.Decline, middleware.RequireRole(model.RoleReviewer, model.RoleChair))

	reviews := e.Group("/v1/reviews")
	reviews.Use(middleware.JWTAuth(jwtSecret))
	reviews.GET("/my", r.ListMine, middleware.RequireRole(model.RoleReviewer, model.RoleChair))
	reviews.POST("/submit", r.Submit, middleware.RequireRole(model.RoleReviewer, model.RoleChair))
}
