package app

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/kidpech/users_api/internal/app/diagnostics"
	"github.com/kidpech/users_api/internal/app/middleware"
	"github.com/kidpech/users_api/internal/config"
	"github.com/kidpech/users_api/internal/domain/user"
	"github.com/kidpech/users_api/internal/infrastructure/ratelimit"
	"github.com/kidpech/users_api/pkg/response"
)

// RouterDeps aggregates HTTP dependencies.
type RouterDeps struct {
	Config      *config.Config
	UserHandler *user.Handler
	Diagnostics *diagnostics.Handler
	Sessions    middleware.SessionResolver
	Logger      *zap.Logger
	LogBuffer   *diagnostics.LogBuffer
	Limiter     ratelimit.Limiter
}

// NewRouter builds the gin engine.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	verbose := cfg.App.IsDevelopment()

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger, deps.LogBuffer))
	r.Use(middleware.Recovery(verbose))
	r.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	r.Use(middleware.SecurityHeaders(cfg.App.IsProduction()))
	r.Use(middleware.CORS(cfg.Cors, verbose))

	deps.Diagnostics.RegisterRoot(r)
	if cfg.Monitoring.PrometheusEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	authMW := middleware.RequireSession(deps.Sessions, verbose)

	api := r.Group("/api")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(deps.Limiter, deps.Logger, "/api/health"))
	}
	deps.Diagnostics.RegisterPublic(api)
	deps.UserHandler.RegisterRoutes(api, authMW)
	if cfg.Diagnostics.EnableDebugLogs {
		deps.Diagnostics.RegisterProtected(api, authMW)
	}

	r.NoRoute(response.RouteNotFound)
	return r
}
