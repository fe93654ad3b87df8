package router

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/webseries-catalog/internal/config"
	"github.com/iliyamo/webseries-catalog/internal/handler"
	"github.com/iliyamo/webseries-catalog/internal/middleware"
	"github.com/iliyamo/webseries-catalog/internal/model"
	"github.com/iliyamo/webseries-catalog/internal/service"
)

// Deps is everything the HTTP layer needs. Redis and DB may be nil: the
// limiter and cache then pass through and /api/health reports the
// database as down.
type Deps struct {
	Config  config.Config
	Log     logrus.FieldLogger
	Redis   *redis.Client
	DB      handler.Pinger
	Gate    *service.Gate
	Auth    *service.AuthService
	Catalog *service.CatalogService
	Engage  *service.EngagementService
}

// access bundles the per-route middleware shared by the route files.
type access struct {
	token  echo.MiddlewareFunc
	staff  echo.MiddlewareFunc
	admin  echo.MiddlewareFunc
	cached echo.MiddlewareFunc
}

// New builds the echo instance with the error handler, validator, global
// middleware and every /api route.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)
	e.Validator = handler.NewRequestValidator()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomw.Secure())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: d.Config.CORSOrigins}))
	if d.Config.BodyLimit != "" {
		e.Use(echomw.BodyLimit(d.Config.BodyLimit))
	}

	api := e.Group("/api",
		middleware.Identify(d.Config.Auth.JWTSecret),
		middleware.NewTokenBucket(d.Config.RateLimit, d.Redis, d.Log),
		middleware.PurgeCacheOnWrite(d.Config.Cache, d.Redis, d.Log),
	)
	api.GET("/health", handler.Health(d.DB))

	acc := access{
		token:  middleware.JWTAuth(d.Config.Auth.JWTSecret),
		staff:  middleware.RequireRole(d.Gate, model.StaffRoles),
		admin:  middleware.RequireRole(d.Gate, model.AdminRoles),
		cached: middleware.NewRedisCache(d.Config.Cache, d.Redis, d.Log),
	}
	authLimit := middleware.NewTokenBucket(d.Config.AuthLimit, d.Redis, d.Log)

	registerAuth(api, handler.NewAuthHandler(d.Auth), acc, authLimit)
	registerSeries(api, handler.NewSeriesHandler(d.Catalog), acc)
	registerEpisodes(api, handler.NewEpisodeHandler(d.Catalog, d.Engage), acc)
	registerFeedback(api, handler.NewFeedbackHandler(d.Engage), acc)
	return e
}
