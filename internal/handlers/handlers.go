package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/X-spec7/book-review-backend/internal/config"
	"github.com/X-spec7/book-review-backend/internal/middleware"
	"github.com/X-spec7/book-review-backend/internal/models"
	"github.com/X-spec7/book-review-backend/internal/ratelimit"
	"github.com/X-spec7/book-review-backend/internal/repository"
	"github.com/X-spec7/book-review-backend/internal/service"
)

type HandlerSet struct {
	log     zerolog.Logger
	cfg     *config.AppConfig
	auth    *service.AuthService
	limiter *ratelimit.Limiter
	db      *pgxpool.Pool
	cache   *redis.Client
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	auth := service.NewAuthService(userRepo, tokenRepo, cfg, log)
	limiter := ratelimit.New(cache, cfg.RateLimit, log)

	return HandlerSet{
		log:     log,
		cfg:     cfg,
		auth:    auth,
		limiter: limiter,
		db:      db,
		cache:   cache,
	}
}

func (h HandlerSet) Routes(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)

		protected := v1.Group("/auth")
		protected.Use(middleware.Auth(h.cfg))
		protected.GET("/me", h.Me)

		admin := v1.Group("/admin")
		admin.Use(
			middleware.Auth(h.cfg),
			middleware.RequireRoles(models.UserRoleAdmin),
		)
		admin.DELETE("/tokens/:id", h.RevokeToken)
	}
}
