package router // route registration for the consultation booking API

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/consultation-booking/internal/config"
	"github.com/iliyamo/consultation-booking/internal/handler"
	"github.com/iliyamo/consultation-booking/internal/middleware"
	"github.com/iliyamo/consultation-booking/internal/model"
)

// Handlers bundles everything the route table needs.
type Handlers struct {
	Auth      *handler.AuthHandler
	Timetable *handler.TimetableHandler
	Chat      *handler.ChatHandler
	Reviews   *handler.ReviewHandler
	Credits   *handler.CreditHandler
	Metrics   http.Handler
}

// Register wires the full route table: public health/metrics and auth
// endpoints, then the protected /v1 group behind JWT, role enforcement
// and the Redis token-bucket limiter. The response cache covers only the
// read-heavy listing routes.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)
	if h.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.Metrics))
	}

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Unauthenticated token operations.
	authGrp := e.Group("/v1/auth", limiter)
	authGrp.POST("/register", h.Auth.Register)
	authGrp.POST("/login", h.Auth.Login)
	authGrp.POST("/refresh", h.Auth.Refresh)
	authGrp.POST("/logout", h.Auth.Logout)

	// Everything below requires a valid access token.
	v1 := e.Group("/v1", limiter, middleware.JWTAuth(cfg.JWTSecret))
	all := middleware.RequireRole(model.RoleAdmin, model.RoleConsultant, model.RoleUser)
	userOnly := middleware.RequireRole(model.RoleUser)
	adminOnly := middleware.RequireRole(model.RoleAdmin)
	chatParties := middleware.RequireRole(model.RoleUser, model.RoleConsultant)

	v1.GET("/me", h.Auth.Me, all)

	v1.GET("/consultants", h.Timetable.ListConsultants, all, cache)
	v1.POST("/consultants/:id/reserve", h.Timetable.Reserve, userOnly)
	v1.POST("/consultants/:id/cancel", h.Timetable.Cancel, userOnly)

	v1.GET("/chat", h.Chat.Enter, chatParties)
	v1.GET("/chat/:id/active", h.Chat.Active, chatParties)
	v1.POST("/chat/:id/messages", h.Chat.PostMessage, chatParties)
	v1.GET("/chat/:id/messages", h.Chat.Poll, chatParties)
	v1.POST("/chat/:id/leave", h.Chat.Leave, chatParties)

	v1.POST("/consultants/:id/reviews", h.Reviews.Submit, userOnly)
	v1.GET("/reviews", h.Reviews.List, all, cache)

	v1.POST("/users/:id/credits", h.Credits.TopUp, adminOnly)
}
