package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohammadhprp/batchgate/internal/config"
	"github.com/mohammadhprp/batchgate/internal/identity"
	"github.com/mohammadhprp/batchgate/internal/limiter"
	"github.com/mohammadhprp/batchgate/internal/metrics"
	"github.com/mohammadhprp/batchgate/internal/service"
	"github.com/mohammadhprp/batchgate/internal/storage"
	"github.com/mohammadhprp/batchgate/internal/transport"
	"github.com/mohammadhprp/batchgate/internal/validator"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	flags, err := config.ParseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	config.LoadDotEnv(flags.EnvFile)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	flags.Apply(&cfg)

	// Initialize logger
	logger, err := config.InitLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Auth.APIKey == config.DefaultAPIKey {
		logger.Warn("API_KEY is the built-in placeholder; set a real secret before exposing the server")
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	logger.Info("Starting batch validation server",
		zap.String("address", cfg.ServerAddr()),
		zap.String("rate_limit", cfg.RateLimit.Rate.String()),
		zap.String("algorithm", cfg.RateLimit.Algorithm),
		zap.String("storage", cfg.Storage.Backend),
	)

	store, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	lim := newLimiter(cfg, store, logger)
	defer lim.Close()

	m := metrics.New("batchgate")
	services := transport.Services{
		Batch:     service.NewBatchService(validator.DefaultSchema, m, logger),
		Admission: service.NewAdmissionService(lim, cfg.RateLimit.Rate.String(), m, logger),
		Health:    service.NewHealthService(store, logger),
		Resolver:  identity.NewResolver(cfg.Auth.APIKey, cfg.Auth.TrustForwardedFor),
		Metrics:   m,
	}

	servers := []transport.Server{
		transport.NewHTTPServer(transport.ServerConfig{
			Address:      cfg.ServerAddr(),
			Logger:       logger,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
			MaxBodyBytes: cfg.Server.MaxBodyBytes,
		}, services),
	}
	if cfg.GRPC.Enabled {
		servers = append(servers, transport.NewGRPCServer(transport.ServerConfig{
			Address:      cfg.GRPCAddr(),
			Logger:       logger,
			MaxBodyBytes: cfg.Server.MaxBodyBytes,
		}, services))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	started := make([]transport.Server, 0, len(servers))
	var startErr error
	for _, srv := range servers {
		if startErr = srv.Start(ctx); startErr != nil {
			break
		}
		started = append(started, srv)
	}

	if startErr == nil {
		// Wait for interrupt signal
		<-ctx.Done()
		logger.Info("Shutting down server...")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, srv := range started {
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", zap.String("address", srv.Addr()), zap.Error(err))
		}
	}

	if startErr != nil {
		return startErr
	}

	logger.Info("Server stopped")
	return nil
}

func newStore(cfg config.Config, logger *zap.Logger) (storage.Store, error) {
	if cfg.Storage.Backend != config.StorageRedis {
		return storage.NewMemoryStore(), nil
	}

	client, err := config.NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("Connected to Redis", zap.String("address", cfg.RedisAddr()))
	return storage.NewRedisStore(client), nil
}

func newLimiter(cfg config.Config, store storage.Store, logger *zap.Logger) limiter.RateLimiter {
	rate := cfg.RateLimit.Rate

	switch cfg.RateLimit.Algorithm {
	case limiter.AlgorithmTokenBucket:
		return limiter.NewTokenBucket(rate.Max, rate.Window, logger)
	case limiter.AlgorithmSlidingWindow:
		return limiter.NewSlidingWindow(store, rate.Max, rate.Window, logger)
	default:
		return limiter.NewFixedWindow(store, rate.Max, rate.Window, logger)
	}
}
