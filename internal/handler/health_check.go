package handler

import (
	"net/http"

	"github.com/mohammadhprp/batchgate/internal/service"
	"go.uber.org/zap"
)

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

type HealthCheckHandler struct {
	health  *service.HealthService
	respond *Responder
	logger  *zap.Logger
}

func NewHealthCheckHandler(health *service.HealthService, respond *Responder, logger *zap.Logger) *HealthCheckHandler {
	return &HealthCheckHandler{
		health:  health,
		respond: respond,
		logger:  logger,
	}
}

// HealthCheck returns a health check handler
func (h *HealthCheckHandler) HealthCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, timestamp, err := h.health.GetHealthStatus(r.Context())

		resp := HealthResponse{Status: status, Time: timestamp}
		code := http.StatusOK
		if err != nil {
			// Store errors carry addresses; they stay in the log.
			h.logger.Debug("health check failed", zap.Error(err))
			code = http.StatusServiceUnavailable
		}

		h.respond.JSON(w, code, resp)
	}
}
