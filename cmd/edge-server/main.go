// cmd/edge-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"maritime-edge/internal/app"
	"maritime-edge/internal/common/aws"
	"maritime-edge/internal/common/config"
	"maritime-edge/internal/common/database"
	"maritime-edge/internal/common/edge"
	"maritime-edge/internal/common/logger"
	"maritime-edge/internal/common/observability"
	"maritime-edge/internal/common/repository"
	"maritime-edge/pkg/registry"

	iono "maritime-edge/internal/functions/gnss/ionosphere-processor"
	gar "maritime-edge/internal/functions/reporting/generate-report"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console", "stdout")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting edge server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
		zap.String("databaseDriver", cfg.Database.Driver),
	)

	obs := observability.New(observability.Options{
		ServiceName:    cfg.App.Name,
		TracingEnabled: cfg.Tracing.Enabled,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	defer obs.Shutdown()

	ctx := context.Background()
	checks := make(map[string]edge.Pinger)

	// --- Persistence ---
	var repo repository.Repository
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		repo = repository.NewPostgresRepository(pg.DB)
		checks["postgres"] = pg
		zapLog.Info("PostgreSQL connected successfully")
	case config.DriverMemory:
		repo = repository.NewMemoryRepository()
		zapLog.Warn("using in-memory persistence; data is lost on restart")
	default:
		rest := repository.NewPostgRESTRepository(cfg.Database.Supabase.URL, cfg.Database.Supabase.ServiceRoleKey,
			config.GetDuration(cfg.Database.Supabase.Timeout))
		repo = rest
		checks["supabase"] = rest
	}

	// --- Rate limit backend ---
	var redisClient *database.RedisClient
	if cfg.RateLimit.Backend == config.RateLimitBackendRedis {
		redisClient = database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		checks["redis"] = redisClient
		zapLog.Info("Redis connected successfully")
	}

	// --- Search index ---
	var indexer gar.Indexer
	if cfg.Database.Elasticsearch.Enabled() {
		esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			zapLog.Fatal("elasticsearch client failed", zap.Error(err))
		}
		indexer = esClient
		checks["elasticsearch"] = esClient
		zapLog.Info("Elasticsearch client initialized", zap.String("index", cfg.Reports.Index))
	}

	// --- Notifications ---
	var (
		mailer gar.Mailer
		alerts iono.AlertPublisher
	)
	if cfg.Notifications.Email.Enabled || cfg.Notifications.Alerts.Enabled {
		awsCfg, err := aws.LoadConfig(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws config load failed", zap.Error(err))
		}
		if cfg.Notifications.Email.Enabled {
			mailer = aws.NewSESMailer(awsCfg, cfg.Notifications.Email.FromEmail)
		}
		if cfg.Notifications.Alerts.Enabled {
			alerts = aws.NewSNSAlertPublisher(awsCfg, cfg.Notifications.Alerts.TopicARN)
		}
		zapLog.Info("AWS notification clients initialized",
			zap.Bool("email", mailer != nil),
			zap.Bool("alerts", alerts != nil),
		)
	}

	// --- Catalog docs ---
	var docs *registry.FunctionRegistry
	if cfg.App.RegistryPath != "" {
		docs, err = registry.LoadRegistry(cfg.App.RegistryPath)
		if err != nil {
			zapLog.Warn("function registry not loaded", zap.String("path", cfg.App.RegistryPath), zap.Error(err))
		}
	}

	// --- Functions ---
	deps := app.Deps{Repo: repo, Indexer: indexer, Mailer: mailer, Alerts: alerts, Docs: docs}
	if redisClient != nil {
		deps.Redis = redisClient.Client
	}
	mounts, catalog := app.Functions(cfg, deps, log)
	zapLog.Info("All functions registered", zap.Int("count", len(mounts)))

	// --- HTTP server ---
	proxies, err := edge.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		zapLog.Fatal("invalid rate_limit.trusted_proxies", zap.Error(err))
	}
	rt := edge.NewRuntime(log, obs, cfg.App.Version, cfg.Server.MaxBodyBytes, edge.WithTrustedProxies(proxies))
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      edge.NewRouter(rt, edge.RouterOptions{Mounts: mounts, Catalog: catalog, Checks: checks}),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	zapLog.Info("Shutting down edge server...", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("Edge server stopped")
}
