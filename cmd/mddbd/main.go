package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mddb/internal/config"
	"github.com/kailas-cloud/mddb/internal/db"
	"github.com/kailas-cloud/mddb/internal/db/bolt"
	dbRedis "github.com/kailas-cloud/mddb/internal/db/redis"
	"github.com/kailas-cloud/mddb/internal/db/sqlite"
	logpkg "github.com/kailas-cloud/mddb/internal/logger"
	"github.com/kailas-cloud/mddb/internal/metrics"
	"github.com/kailas-cloud/mddb/internal/repository/doccache"
	documentrepo "github.com/kailas-cloud/mddb/internal/repository/document"
	statsrepo "github.com/kailas-cloud/mddb/internal/repository/stats"
	chiTransport "github.com/kailas-cloud/mddb/internal/transport/chi"
	adminuc "github.com/kailas-cloud/mddb/internal/usecase/admin"
	batchuc "github.com/kailas-cloud/mddb/internal/usecase/batch"
	documentuc "github.com/kailas-cloud/mddb/internal/usecase/document"
	healthuc "github.com/kailas-cloud/mddb/internal/usecase/health"
	searchuc "github.com/kailas-cloud/mddb/internal/usecase/search"
	statsuc "github.com/kailas-cloud/mddb/internal/usecase/stats"
	"github.com/kailas-cloud/mddb/internal/version"
)

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("failed to load .env: " + err.Error())
	}

	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	mode := cfg.AccessMode()
	logger.Info("Starting mddb server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("db_path", cfg.Database.Path),
		zap.String("mode", mode.String()),
		zap.Bool("cache", cfg.Cache.Enabled),
	)

	apiKeys := cfg.Auth.Keys()
	if len(apiKeys) == 0 {
		logger.Warn("No API keys configured, /v1 is open to every client")
	}

	metrics.RegisterStoreMetrics()

	raw, err := openStore(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer func() {
		if err := raw.Close(); err != nil {
			logger.Error("Failed to close database", zap.Error(err))
		}
	}()
	store := db.Instrument(raw, metrics.StoreOperationDuration, logger)

	docRepo := documentrepo.New(store)

	docSvc := documentuc.New(docRepo).WithMode(mode)
	batchSvc := batchuc.New(docRepo).
		WithMode(mode).
		WithMaxBatchSize(cfg.Batch.MaxSize).
		WithWorkers(cfg.Batch.Workers).
		WithMetrics(metrics.BatchItemsTotal)
	adminSvc := adminuc.New(store, docRepo).
		WithMode(mode).
		WithBackupDir(cfg.Database.BackupDir)

	// cacheCheck stays an untyped nil when the cache is disabled
	var cacheCheck healthuc.Pinger
	if cfg.Cache.Enabled {
		kv, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create cache client", zap.Error(err))
		}
		defer kv.Close()

		readyCtx := context.Background()
		if err := kv.WaitForReady(readyCtx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			// сервер работает и без кэша, health покажет degraded
			logger.Warn("Cache not ready", zap.Error(err))
		}

		cache := doccache.New(kv, cfg.Cache.KeyPrefix, cfg.Cache.TTL(), metrics.DocumentCacheTotal, logger)
		docSvc.WithCache(cache)
		batchSvc.WithCache(cache)
		adminSvc.WithCache(cache)
		cacheCheck = kv
	}

	searchSvc := searchuc.New(docRepo).WithLimits(cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	statsSvc := statsuc.New(statsrepo.New(store), mode)
	healthSvc := healthuc.New(store, cacheCheck, mode)

	server := chiTransport.NewServer(docSvc, searchSvc, batchSvc, adminSvc, statsSvc, healthSvc, logger).
		WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(jsonRecoverer(logger))
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "bad_request", "method not allowed")
	})
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openStore opens the configured storage driver.
func openStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := sqlite.NewStore(sqlite.Config{Path: cfg.Path})
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
		}
		return s, nil
	default:
		s, err := bolt.NewStore(bolt.Config{Path: cfg.Path, OpenTimeout: cfg.OpenTimeout()})
		if err != nil {
			return nil, fmt.Errorf("open bolt %s: %w", cfg.Path, err)
		}
		return s, nil
	}
}
