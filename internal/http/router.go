package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/qcheck-dev/qcheck/internal/auth"
	"github.com/qcheck-dev/qcheck/internal/config"
	"github.com/qcheck-dev/qcheck/internal/http/handlers"
	"github.com/qcheck-dev/qcheck/internal/http/middlewares"
	"github.com/qcheck-dev/qcheck/internal/notifications"
	"github.com/qcheck-dev/qcheck/internal/observability"
	"github.com/qcheck-dev/qcheck/internal/repo/postgres"
	"github.com/qcheck-dev/qcheck/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	Log     *slog.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	JWT     *auth.Manager
	Tracker *session.Tracker
	Prom    *observability.Prom
	PromReg *prometheus.Registry
	Cfg     config.Config
}

// NewRouter wires repositories, handlers and middleware. All collaborators
// come in through deps, nothing reaches for process-wide state.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(deps.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(deps.Cfg.CORSOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(1 << 20))

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	// health
	ping := func() error {
		if deps.Pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return deps.Pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.PromReg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.PromReg, promhttp.HandlerOpts{})))
	}

	// wire up repositories
	recordsRepo := postgres.NewRecordsRepo(deps.Pool, deps.Prom)
	usersRepo := postgres.NewUsersRepo(deps.Pool)
	refreshRepo := postgres.NewRefreshTokensRepo(deps.Pool)

	notifier := notifications.NewLogNotifier(deps.Log)

	// handlers
	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, deps.JWT, refreshRepo, deps.Tracker, deps.Prom, deps.Cfg)
	recordsHandler := handlers.NewRecordsHandler(recordsRepo, notifier, deps.Log, deps.Prom)
	dashboardHandler := handlers.NewDashboardHandler(recordsRepo, deps.Log)
	settingsHandler := handlers.NewSettingsHandler(usersRepo)

	authMW := middlewares.NewAuthMiddleware(deps.JWT)

	// credential endpoints share a fixed-window limiter keyed by client IP
	rateLimit := func(c *gin.Context) { c.Next() }

	if deps.Redis != nil {
		limiter := middlewares.NewRedisLimiter(deps.Redis, deps.Cfg.AuthRateLimit, deps.Cfg.AuthRateWindow)

		rateLimit = middlewares.AuthRateLimiter(limiter, func(c *gin.Context) {
			handlers.RespondTooManyRequests(c, "Too many attempts. Try again later.")
		})
	}

	r.POST("/auth/register", rateLimit, authHandler.Register)
	r.POST("/auth/login", rateLimit, authHandler.Login)
	r.POST("/auth/refresh", authHandler.Refresh)
	r.POST("/auth/logout", authHandler.Logout)

	// everything below needs a signed-in user
	sec := r.Group("/", authMW.RequireAuth())

	sec.POST("/auth/logout-all", authHandler.LogoutAll)

	sec.GET("/me", settingsHandler.Me)
	sec.PUT("/me", settingsHandler.UpdateMe)

	sec.POST("/records", recordsHandler.CreateRecord)
	sec.GET("/records", recordsHandler.ListRecords)
	sec.GET("/records/export", recordsHandler.ExportRecords)
	sec.GET("/records/:id", recordsHandler.GetRecordByID)
	sec.PATCH("/records/:id", recordsHandler.UpdateRecord)
	sec.DELETE("/records/:id", recordsHandler.DeleteRecord)
	sec.GET("/records/:id/export", recordsHandler.ExportRecord)

	sec.GET("/dashboard/summary", dashboardHandler.Summary)
	sec.GET("/rpn/preview", recordsHandler.RPNPreview)

	// administrative view
	admin := r.Group("/admin", authMW.RequireAuth(), authMW.RequireRole("admin"))
	admin.GET("/records", recordsHandler.ListAllRecords)

	return r
}
