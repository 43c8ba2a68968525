package transport

import (
	"context"
	"time"

	"github.com/mohammadhprp/batchgate/internal/identity"
	"github.com/mohammadhprp/batchgate/internal/metrics"
	"github.com/mohammadhprp/batchgate/internal/service"
	"go.uber.org/zap"
)

// Server defines the interface for different transport implementations (HTTP, gRPC, etc.)
type Server interface {
	// Start binds the listener and begins serving in the background
	Start(ctx context.Context) error

	// Stop gracefully stops the transport server
	Stop(ctx context.Context) error

	// Addr returns the address the server is listening on
	Addr() string
}

// ServerConfig contains common configuration for all transport servers
type ServerConfig struct {
	Address      string        // Address to listen on (e.g., "0.0.0.0:5000" or ":50051")
	Logger       *zap.Logger   // Shared logger
	ReadTimeout  time.Duration // HTTP only
	WriteTimeout time.Duration // HTTP only
	IdleTimeout  time.Duration // HTTP only
	MaxBodyBytes int64         // Request body cap; zero disables the cap
}

// Services contains the business services shared by every transport
type Services struct {
	Batch     *service.BatchService
	Admission *service.AdmissionService
	Health    *service.HealthService
	Resolver  *identity.Resolver
	Metrics   *metrics.Metrics
}
