// Package main is the entrypoint for the Bachelor Bari API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/bachelorbari/bachelorbari/internal/audit"
	"github.com/bachelorbari/bachelorbari/internal/auth"
	"github.com/bachelorbari/bachelorbari/internal/cache"
	"github.com/bachelorbari/bachelorbari/internal/config"
	"github.com/bachelorbari/bachelorbari/internal/handler"
	"github.com/bachelorbari/bachelorbari/internal/logging"
	"github.com/bachelorbari/bachelorbari/internal/metrics"
	"github.com/bachelorbari/bachelorbari/internal/middleware"
	"github.com/bachelorbari/bachelorbari/internal/migrations"
	"github.com/bachelorbari/bachelorbari/internal/repository"
	"github.com/bachelorbari/bachelorbari/internal/server"
	"github.com/bachelorbari/bachelorbari/internal/service"
)

// migrateTimeout bounds startup migrations.
const migrateTimeout = time.Minute

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return errors.New("database unavailable")
	}
	defer repo.Close()
	logger.Info("connected to database")

	if err := migrate(ctx, repo); err != nil {
		return err
	}
	logger.Info("migrations applied")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return errors.New("redis unavailable")
	}
	defer cacheClient.Close()
	cacheClient.WithAuthTTL(cfg.AuthCacheTTL)
	logger.Info("connected to Redis")

	var (
		recorder       metrics.Recorder = metrics.NewNoop()
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		prom := metrics.NewPrometheus()
		recorder = prom
		metricsHandler = prom.Handler()
	}

	hasher, err := auth.NewHasher(auth.HasherConfig{
		Driver:      cfg.HashDriver,
		BcryptCost:  cfg.BcryptCost,
		Concurrency: int64(cfg.HashConcurrency),
	})
	if err != nil {
		return err
	}
	issuer := auth.NewTokenIssuer(repo, hasher, auth.EnvForAppEnv(cfg.AppEnv))

	requestSink, closeSink, err := logging.NewRequestSink(cfg.RequestLogChannel, logging.DailyConfig{
		Dir:    cfg.RequestLogDir,
		MaxAge: cfg.RequestLogMaxAge,
	}, logger)
	if err != nil {
		return err
	}

	// Create server early so components can register shutdown hooks.
	srv := server.New(nil, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)
	srv.OnShutdown("request-log", func(context.Context) error { return closeSink() })

	activityLog := setupAudit(ctx, cfg, repo, cacheClient, srv, logger, recorder)

	// Initialize services and handlers
	authService := service.NewAuthService(repo, hasher, issuer, activityLog, logger, recorder)

	router := handler.NewRouter(handler.RouterConfig{
		Logger:         logger,
		Auth:           handler.NewAuthHandler(authService, logger),
		Health:         handler.NewHealthHandler(repo, cacheClient, logger),
		RequestSink:    requestSink,
		Metrics:        recorder,
		MetricsHandler: metricsHandler,
		Bearer: middleware.AuthConfig{
			Logger:      logger,
			Tokens:      issuer,
			Cache:       cacheClient,
			Metrics:     recorder,
			MinDuration: cfg.AuthMinDuration,
		},
		Security: middleware.SecurityConfig{
			IsDevelopment:      cfg.IsDevelopment(),
			MaxRequestBodySize: cfg.MaxRequestBodySize,
		},
		CORS:       corsConfig(cfg),
		DebugStack: cfg.IsDevelopment(),
	})
	srv.SetHandler(router)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"request_log_channel", cfg.RequestLogChannel,
		"audit_driver", cfg.AuditDriver,
		"hash_driver", hasher.Driver(),
	)

	return srv.Run(ctx)
}

func migrate(ctx context.Context, repo *repository.Repository) error {
	ctx, cancel := context.WithTimeout(ctx, migrateTimeout)
	defer cancel()

	db := repo.SQLDB()
	defer db.Close()

	return migrations.Up(ctx, db)
}

// setupAudit selects the activity log driver. The stream driver starts the
// consumer-group worker when enabled.
func setupAudit(
	ctx context.Context,
	cfg *config.Config,
	repo *repository.Repository,
	cacheClient *cache.Cache,
	srv *server.Server,
	logger *slog.Logger,
	recorder metrics.Recorder,
) audit.Logger {
	if cfg.AuditDriver == config.AuditDriverDatabase {
		return audit.NewStoreLogger(repo)
	}

	publisher := audit.NewPublisher(cacheClient.Client(), logger, recorder)
	if !cfg.AuditWorkerEnabled {
		return publisher
	}

	worker := audit.NewWorker(cacheClient.Client(), repo, logger, audit.ConsumerName(), recorder)
	srv.OnShutdown("audit-worker", worker.Shutdown)
	go func() {
		// Detached from the signal context so Shutdown can drain the batch.
		if err := worker.Run(context.WithoutCancel(ctx)); err != nil {
			logger.Error("audit worker stopped", "error", err)
		}
	}()
	return publisher
}

func corsConfig(cfg *config.Config) middleware.CORSConfig {
	c := middleware.DefaultCORSConfig()
	c.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	return c
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
