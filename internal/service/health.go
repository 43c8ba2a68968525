package service

import (
	"context"
	"time"

	"github.com/mohammadhprp/batchgate/internal/storage"
	"go.uber.org/zap"
)

// HealthService provides health check functionality
type HealthService struct {
	store  storage.Store
	logger *zap.Logger
}

// NewHealthService creates a new health service
func NewHealthService(store storage.Store, logger *zap.Logger) *HealthService {
	return &HealthService{
		store:  store,
		logger: logger,
	}
}

// GetHealthStatus reports whether the counter store is reachable
func (s *HealthService) GetHealthStatus(ctx context.Context) (status string, timestamp string, err error) {
	timestamp = time.Now().Format(time.RFC3339)

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("counter store unreachable", zap.Error(err))
		return HealthStatusUnhealthy, timestamp, err
	}

	return HealthStatusHealthy, timestamp, nil
}
