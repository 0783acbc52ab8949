package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mddb/internal/config"
	logpkg "github.com/kailas-cloud/mddb/internal/logger"
	"github.com/kailas-cloud/mddb/internal/mcp"
	"github.com/kailas-cloud/mddb/internal/version"
	mddb "github.com/kailas-cloud/mddb/pkg/sdk"
)

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("failed to load .env: " + err.Error())
	}

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// zap пишет в stderr, stdout остается протоколу
	logger, err := logpkg.NewServiceLogger("mddb-mcp", env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []mddb.Option{
		mddb.WithEndpoint(cfg.MCP.ServerURL),
		mddb.WithAPIKey(cfg.MCP.APIKey),
		mddb.WithTimeout(cfg.MCP.Timeout()),
		// мост стартует и без сервера, ошибки вернутся в ответах tools
		mddb.WithReadinessTimeout(0),
	}
	if cfg.MCP.Transport == config.MCPTransportHTTP {
		opts = append(opts, mddb.WithPrometheus(prometheus.DefaultRegisterer))
	}
	client, err := mddb.New(ctx, opts...)
	if err != nil {
		logger.Fatal("Failed to create MDDB client", zap.Error(err))
	}
	defer client.Close()

	handler := mcp.NewHandler(mcp.NewService(client, logger), logger, version.Version)

	logger.Info("Starting mddb-mcp",
		zap.String("version", version.Version),
		zap.String("transport", cfg.MCP.Transport),
		zap.String("server_url", client.Endpoint()),
	)

	if cfg.MCP.Transport == config.MCPTransportStdio {
		if err := handler.ServeStdio(ctx, os.Stdin, os.Stdout); err != nil {
			logger.Fatal("stdio transport failed", zap.Error(err))
		}
		return
	}

	srv := &http.Server{
		Addr:              cfg.MCP.ListenAddr,
		Handler:           newRouter(handler, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	logger.Info("mddb-mcp stopped")
}

func newRouter(h *mcp.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Handle("/metrics", promhttp.Handler())
	h.Routes(r)
	return r
}

// requestLogger writes one debug line per request with its request id.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http_request",
				zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
			)
		})
	}
}
