package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/mohammadhprp/batchgate/internal/handler"
	"github.com/mohammadhprp/batchgate/internal/middleware"
	"go.uber.org/zap"
)

// EndpointPath is the batch validation route.
const EndpointPath = "/endpoint"

// HTTPServer implements the Server interface for HTTP transport
type HTTPServer struct {
	server   *http.Server
	router   *mux.Router
	handler  http.Handler
	address  string
	logger   *zap.Logger
	services Services
	respond  *handler.Responder
	maxBody  int64

	mu       sync.Mutex
	listener net.Listener
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(cfg ServerConfig, services Services) *HTTPServer {
	router := mux.NewRouter()
	respond := handler.NewResponder(cfg.Logger)

	hs := &HTTPServer{
		router:   router,
		address:  cfg.Address,
		logger:   cfg.Logger,
		services: services,
		respond:  respond,
		maxBody:  cfg.MaxBodyBytes,
	}

	hs.registerRoutes()

	// Wrapping the router (rather than router.Use) keeps 404/405 responses
	// inside the request-id, logging and recovery chain.
	hs.handler = middleware.RequestID(
		middleware.AccessLog(services.Metrics, cfg.Logger)(
			middleware.Recover(respond.Error, cfg.Logger)(router),
		),
	)

	hs.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      hs.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return hs
}

// registerRoutes registers all HTTP routes
func (hs *HTTPServer) registerRoutes() {
	batch := handler.NewBatchHandler(hs.services.Batch, hs.respond, hs.maxBody, hs.logger)
	health := handler.NewHealthCheckHandler(hs.services.Health, hs.respond, hs.logger)
	limits := handler.NewRateLimitHandler(hs.services.Admission, hs.services.Resolver, hs.respond, hs.maxBody, hs.logger)
	rateLimit := middleware.RateLimitMiddleware(hs.services.Admission, hs.services.Resolver, hs.respond.Error, hs.logger)

	hs.router.Handle(EndpointPath, rateLimit(batch.Submit())).Methods(http.MethodPost)
	hs.router.HandleFunc("/ratelimit/reset", limits.Reset()).Methods(http.MethodPost)
	hs.router.HandleFunc("/health", health.HealthCheck()).Methods(http.MethodGet)
	hs.router.Handle("/metrics", hs.services.Metrics.Handler()).Methods(http.MethodGet)

	hs.router.NotFoundHandler = hs.respond.NotFound()
	hs.router.MethodNotAllowedHandler = hs.respond.MethodNotAllowed()
}

// Handler returns the fully wrapped HTTP handler
func (hs *HTTPServer) Handler() http.Handler {
	return hs.handler
}

// Start binds the listener and serves in a goroutine
func (hs *HTTPServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", hs.address)
	if err != nil {
		hs.logger.Error("Failed to listen on address", zap.String("address", hs.address), zap.Error(err))
		return err
	}

	hs.mu.Lock()
	hs.listener = ln
	hs.mu.Unlock()

	hs.logger.Info("Starting HTTP server", zap.String("address", ln.Addr().String()))

	go func() {
		if err := hs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			hs.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (hs *HTTPServer) Stop(ctx context.Context) error {
	hs.logger.Info("Stopping HTTP server")
	return hs.server.Shutdown(ctx)
}

// Addr returns the bound address once started, the configured one before
func (hs *HTTPServer) Addr() string {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if hs.listener != nil {
		return hs.listener.Addr().String()
	}
	return hs.address
}
