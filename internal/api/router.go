package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/airwaves-fm/stationsearch/internal/api/handlers"
	"github.com/airwaves-fm/stationsearch/internal/api/middleware"
	"github.com/airwaves-fm/stationsearch/internal/auth"
	"github.com/airwaves-fm/stationsearch/internal/config"
	"github.com/airwaves-fm/stationsearch/pkg/logger"
)

// Router sets up the HTTP router with all routes and middleware
type Router struct {
	engine        *gin.Engine
	searchHandler *handlers.SearchHandler
	liveHandler   *handlers.LiveHandler
	adminHandler  *handlers.AdminHandler
	healthHandler *handlers.HealthHandler
	jwtManager    *auth.JWTManager
	cfg           *config.Config
	logger        *logger.Logger
}

// NewRouter creates a new router
func NewRouter(
	searchHandler *handlers.SearchHandler,
	liveHandler *handlers.LiveHandler,
	adminHandler *handlers.AdminHandler,
	healthHandler *handlers.HealthHandler,
	jwtManager *auth.JWTManager,
	cfg *config.Config,
	logger *logger.Logger,
) *Router {
	return &Router{
		searchHandler: searchHandler,
		liveHandler:   liveHandler,
		adminHandler:  adminHandler,
		healthHandler: healthHandler,
		jwtManager:    jwtManager,
		cfg:           cfg,
		logger:        logger,
	}
}

// Setup configures all routes and middleware. Background work started by
// the middleware stops when ctx is done.
func (r *Router) Setup(ctx context.Context) *gin.Engine {
	gin.SetMode(r.cfg.Server.Mode)

	r.engine = gin.New()

	// Recovery middleware (global)
	r.engine.Use(gin.Recovery())

	// CORS middleware (global)
	r.engine.Use(middleware.CORSMiddleware(r.cfg.CORS.AllowedOrigins))

	// Logger middleware (global)
	r.engine.Use(middleware.LoggerMiddleware(r.logger))

	// Health check endpoints (no rate limiting, no auth)
	r.engine.GET("/health", r.healthHandler.Health)
	r.engine.GET("/health/ready", r.healthHandler.Readiness)
	r.engine.GET("/health/live", r.healthHandler.Liveness)

	// API v1 routes (with rate limiting)
	v1 := r.engine.Group("/api/v1")
	v1.Use(middleware.RateLimitMiddleware(
		ctx,
		r.cfg.RateLimit.RequestsPerMinute,
		r.cfg.RateLimit.Burst,
	))
	{
		// Search routes (public)
		v1.GET("/content", r.searchHandler.Content)
		v1.GET("/search", r.searchHandler.Search)
		v1.GET("/search/live", r.liveHandler.Serve)
		v1.GET("/filters", r.searchHandler.Filters)
		v1.GET("/suggest", r.searchHandler.Suggest)
		v1.GET("/items/:type/:slug", r.searchHandler.Item)

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(r.jwtManager, auth.RoleAdmin))
		{
			admin.GET("/stats", r.adminHandler.Stats)
			admin.POST("/cache/clear", r.adminHandler.ClearCache)
			admin.POST("/refresh", r.adminHandler.Refresh)
		}
	}

	return r.engine
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine(ctx context.Context) *gin.Engine {
	if r.engine == nil {
		return r.Setup(ctx)
	}
	return r.engine
}
