package transport

import (
	"testing"
	"time"

	"github.com/mohammadhprp/batchgate/internal/identity"
	"github.com/mohammadhprp/batchgate/internal/limiter"
	"github.com/mohammadhprp/batchgate/internal/metrics"
	"github.com/mohammadhprp/batchgate/internal/service"
	"github.com/mohammadhprp/batchgate/internal/storage"
	"github.com/mohammadhprp/batchgate/internal/validator"
	"go.uber.org/zap"
)

const testAPIKey = "test-secret"

func newTestServices(t *testing.T, max int64) Services {
	t.Helper()

	logger := zap.NewNop()
	m := metrics.New("batchgate_test")
	store := storage.NewMemoryStore(storage.WithCleanupInterval(0))
	lim := limiter.NewFixedWindow(store, max, time.Minute, logger)
	t.Cleanup(func() {
		lim.Close()
		store.Close()
	})

	return Services{
		Batch:     service.NewBatchService(validator.DefaultSchema, m, logger),
		Admission: service.NewAdmissionService(lim, "3 per 1 minute", m, logger),
		Health:    service.NewHealthService(store, logger),
		Resolver:  identity.NewResolver(testAPIKey, false),
		Metrics:   m,
	}
}

func newTestConfig() ServerConfig {
	return ServerConfig{
		Address:      "127.0.0.1:0",
		Logger:       zap.NewNop(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  5 * time.Second,
		MaxBodyBytes: 1 << 20,
	}
}
