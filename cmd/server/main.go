package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/threadpulse/internal/adapter/httpserver"
	"github.com/pscheid92/threadpulse/internal/adapter/metrics"
	"github.com/pscheid92/threadpulse/internal/adapter/postgres"
	"github.com/pscheid92/threadpulse/internal/adapter/redis"
	"github.com/pscheid92/threadpulse/internal/app"
	"github.com/pscheid92/threadpulse/internal/platform/config"
	"github.com/pscheid92/threadpulse/internal/platform/logging"
	"github.com/pscheid92/threadpulse/internal/platform/version"
	goredis "github.com/redis/go-redis/v9"
)

const (
	sessionCacheTTL       = 10 * time.Second
	sessionEvictInterval  = time.Minute
	shutdownTimeout       = 10 * time.Second
	startupConnectTimeout = 10 * time.Second
)

func runGracefulShutdown(srv *httpserver.Server) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func setupConfig() *config.ServerConfig {
	cfg, err := config.LoadServer()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.ServerConfig, reg prometheus.Registerer) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), startupConnectTimeout)
	defer cancel()

	tracer := postgres.NewMetricsTracer(metrics.NewDBMetrics(reg))
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, tracer)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.ServerConfig, reg prometheus.Registerer) *goredis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), startupConnectTimeout)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL, metrics.NewRedisMetrics(reg))
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := metrics.NewRegistry()

	pool := setupDB(cfg, registry)
	defer pool.Close()

	redisClient := setupRedis(cfg, registry)
	defer func() { _ = redisClient.Close() }()

	sessions := redis.NewSessionStore(redisClient, clock, sessionCacheTTL, metrics.NewSessionMetrics(registry))
	stopEviction := sessions.StartEvictionTimer(sessionEvictInterval)
	defer stopEviction()
	go sessions.ListenForRevocations(ctx, redisClient)

	limiter := redis.NewVoteRateLimiter(redisClient, clock, cfg.VoteRateCapacity, cfg.VoteRatePerMinute)

	appSvc := app.NewService(app.Deps{
		Users:       postgres.NewUserRepo(pool),
		Threads:     postgres.NewThreadRepo(pool),
		Comments:    postgres.NewCommentRepo(pool),
		Votes:       postgres.NewVoteRepo(pool),
		Sessions:    sessions,
		Limiter:     limiter,
		VoteMetrics: metrics.NewVoteMetrics(registry),
		Clock:       clock,
	}, app.Config{
		SessionTTL:        cfg.SessionTTL,
		PasswordMinLength: cfg.PasswordMinLength,
	})

	healthChecks := []httpserver.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
		{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	}
	srv := httpserver.NewServer(cfg, appSvc, healthChecks, registry)

	done := runGracefulShutdown(srv)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
