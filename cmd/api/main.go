package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qcheck-dev/qcheck/internal/auth"
	"github.com/qcheck-dev/qcheck/internal/config"
	"github.com/qcheck-dev/qcheck/internal/db"
	"github.com/qcheck-dev/qcheck/internal/domain/user"
	httpx "github.com/qcheck-dev/qcheck/internal/http"
	"github.com/qcheck-dev/qcheck/internal/observability"
	"github.com/qcheck-dev/qcheck/internal/redisclient"
	"github.com/qcheck-dev/qcheck/internal/session"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	// tracing (optional, off when no endpoint is configured)
	var shutdownTracer func(context.Context) error

	if cfg.OTLPEndpoint != "" {
		ctx, cancel := config.WithTimeout(5 * time.Second)

		var err error
		shutdownTracer, err = observability.InitTracer(ctx, "qcheck-api", cfg.OTLPEndpoint)
		cancel()

		if err != nil {
			log.Error("tracer init failed", "err", err)
		}
	}

	// database
	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("database connection failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	migrateCtx, cancel := config.WithTimeout(30 * time.Second)

	err = db.RunMigrations(migrateCtx, cfg.DBURL)
	cancel()

	if err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	seedCtx, cancel := config.WithTimeout(5 * time.Second)

	err = db.EnsureAdminUser(seedCtx, pool, cfg)
	cancel()

	if err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}

	// redis backs the auth rate limiter; the API runs without it
	rds := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	defer rds.Close()

	pingCtx, cancel := config.WithTimeout(2 * time.Second)
	redisUp := rds.Ping(pingCtx) == nil
	cancel()

	if !redisUp {
		log.Warn("redis unreachable, auth rate limiting disabled")
	}

	// metrics
	promReg := prometheus.NewRegistry()
	prom := observability.NewProm(promReg)

	// identity
	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	tracker := session.NewTracker()

	// audit log on every sign-in state transition
	unsubscribe := tracker.Subscribe(func(u *user.User) {
		if u != nil {
			log.Info("user signed in", "userId", u.ID, "email", u.Email)

			return
		}

		log.Info("user signed out")
	})

	defer unsubscribe()

	deps := httpx.RouterDeps{
		Log:     log,
		Pool:    pool,
		JWT:     jwtManager,
		Tracker: tracker,
		Prom:    prom,
		PromReg: promReg,
		Cfg:     cfg,
	}

	if redisUp {
		deps.Redis = rds.Raw()
	}

	router := httpx.NewRouter(deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}

		if shutdownTracer != nil {
			_ = shutdownTracer(ctx)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
