package transport

import (
	"context"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/mohammadhprp/batchgate/internal/metrics"
	"github.com/mohammadhprp/batchgate/internal/service"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// GRPCServer implements the Server interface for gRPC transport
type GRPCServer struct {
	server  *grpc.Server
	health  *health.Server
	address string
	logger  *zap.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewGRPCServer creates a new gRPC server
func NewGRPCServer(cfg ServerConfig, services Services) *GRPCServer {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			metricsInterceptor(services.Metrics),
			recoveryInterceptor(cfg.Logger),
		),
	}
	if cfg.MaxBodyBytes > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(int(cfg.MaxBodyBytes)))
	}

	gs := &GRPCServer{
		server:  grpc.NewServer(opts...),
		health:  health.NewServer(),
		address: cfg.Address,
		logger:  cfg.Logger,
	}

	gs.registerServices(services)
	return gs
}

// registerServices registers all gRPC services
func (gs *GRPCServer) registerServices(services Services) {
	RegisterBatchServer(gs.server, &BatchServiceImpl{
		batch:     services.Batch,
		admission: services.Admission,
		resolver:  services.Resolver,
		logger:    gs.logger,
	})

	healthpb.RegisterHealthServer(gs.server, gs.health)
	gs.health.SetServingStatus(BatchServiceName, healthpb.HealthCheckResponse_SERVING)
}

// Start starts the gRPC server
func (gs *GRPCServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", gs.address)
	if err != nil {
		gs.logger.Error("Failed to listen on address", zap.String("address", gs.address), zap.Error(err))
		return err
	}

	gs.logger.Info("Starting gRPC server", zap.String("address", listener.Addr().String()))

	go func() {
		if err := gs.Serve(listener); err != nil {
			gs.logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	return nil
}

// Serve serves on an existing listener and blocks until the server stops
func (gs *GRPCServer) Serve(listener net.Listener) error {
	gs.mu.Lock()
	gs.listener = listener
	gs.mu.Unlock()

	return gs.server.Serve(listener)
}

// Stop drains in-flight calls, forcing a stop once ctx expires
func (gs *GRPCServer) Stop(ctx context.Context) error {
	gs.logger.Info("Stopping gRPC server")
	gs.health.Shutdown()

	done := make(chan struct{})
	go func() {
		gs.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		gs.server.Stop()
		return ctx.Err()
	}
}

// Addr returns the address the gRPC server is listening on
func (gs *GRPCServer) Addr() string {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.listener != nil {
		return gs.listener.Addr().String()
	}
	return gs.address
}

func recoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic while handling grpc call",
					zap.String("method", info.FullMethod),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				err = status.Error(codes.Internal, service.MsgInternal)
			}
		}()

		return handler(ctx, req)
	}
}

func metricsInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		m.ObserveRequest(metrics.TransportGRPC, status.Code(err).String(), time.Since(start))
		return resp, err
	}
}
