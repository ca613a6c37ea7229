package api

import (
	"github.com/gin-gonic/gin"
	"github.com/motivohq/motivo-server/internal/activity"
	"github.com/motivohq/motivo-server/internal/config"
	"github.com/motivohq/motivo-server/internal/http/api/handlers"
	"github.com/motivohq/motivo-server/internal/http/middleware"
	"github.com/motivohq/motivo-server/internal/idp"
	"github.com/motivohq/motivo-server/internal/models"
	"github.com/motivohq/motivo-server/internal/ratelimit"
	"gorm.io/gorm"
)

// RegisterRoutes wires middleware, routes, and handlers onto the engine.
//
// Tiers: public quote retrieval is rate limited by client IP before any auth.
// Authenticated routes run a pre-auth limiter first, so traffic that fails
// verification is throttled by client IP at the anonymous threshold, then the
// auth middleware, then the role-threshold limiter keyed by user ID; admin
// routes add the role gate.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, verifier idp.Verifier, manager *ratelimit.Manager, recorder *activity.Recorder, cfg config.AppConfig) {
	if r == nil || db == nil {
		return
	}

	r.Use(middleware.CORS(cfg.Server.CORSOrigins))

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	limited := middleware.RateLimit(manager, cfg.RateLimit)
	preAuth := middleware.RateLimitUnauthenticated(manager, cfg.RateLimit)
	authed := middleware.Authenticate(db, verifier, recorder)

	quoteHandler := handlers.NewQuoteHandler(db, recorder)
	public := r.Group("/api", limited)
	public.GET("/quotes", quoteHandler.List)
	public.GET("/quotes/random", quoteHandler.Random)
	public.GET("/quotes/tag/:tag", quoteHandler.ByTag)
	public.GET("/quotes/:id", quoteHandler.Get)

	user := r.Group("/api", preAuth, authed, limited)

	authHandler := handlers.NewAuthHandler(db, recorder)
	user.POST("/auth/verify", authHandler.Verify)
	user.GET("/auth/me", authHandler.Me)
	user.POST("/auth/logout", authHandler.Logout)

	userHandler := handlers.NewUserHandler(db, recorder)
	user.GET("/users/profile", userHandler.Profile)
	user.PUT("/users/profile", userHandler.UpdateProfile)
	user.GET("/users/favorites", userHandler.Favorites)
	user.POST("/users/favorites/:quoteId", userHandler.AddFavorite)
	user.DELETE("/users/favorites/:quoteId", userHandler.RemoveFavorite)
	user.GET("/users/history", userHandler.History)
	user.POST("/users/history/:quoteId", userHandler.RecordHistory)
	user.GET("/users/activity", userHandler.Activity)

	admin := r.Group("/api", preAuth, authed, limited, middleware.RequireRole(models.RoleAdmin))
	admin.POST("/quotes", quoteHandler.Create)
	admin.PUT("/quotes/:id", quoteHandler.Update)
	admin.DELETE("/quotes/:id", quoteHandler.Delete)

	adminHandler := handlers.NewAdminHandler(db, recorder)
	admin.GET("/admin/users", adminHandler.ListUsers)
	admin.GET("/admin/users/:id", adminHandler.GetUser)
	admin.PUT("/admin/users/:id", adminHandler.UpdateUser)
	admin.DELETE("/admin/users/:id", adminHandler.DeleteUser)
	admin.GET("/admin/stats", adminHandler.Stats)
	admin.GET("/admin/activity", adminHandler.Activity)
	admin.GET("/admin/quotes/export", adminHandler.ExportQuotes)
	admin.POST("/admin/quotes/import", adminHandler.ImportQuotes)
}
