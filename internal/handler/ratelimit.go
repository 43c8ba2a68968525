package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mohammadhprp/batchgate/internal/identity"
	"github.com/mohammadhprp/batchgate/internal/service"
	"go.uber.org/zap"
)

// ResetRequest is the body of POST /ratelimit/reset
type ResetRequest struct {
	Key string `json:"key"`
}

// ResetResponse confirms a reset
type ResetResponse struct {
	Message string `json:"message"`
	Key     string `json:"key"`
}

// RateLimitHandler serves operator actions on limiter state
type RateLimitHandler struct {
	admission    *service.AdmissionService
	resolver     *identity.Resolver
	respond      *Responder
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewRateLimitHandler creates a new rate limit handler
func NewRateLimitHandler(admission *service.AdmissionService, resolver *identity.Resolver, respond *Responder, maxBodyBytes int64, logger *zap.Logger) *RateLimitHandler {
	return &RateLimitHandler{
		admission:    admission,
		resolver:     resolver,
		respond:      respond,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// Reset handles POST /ratelimit/reset - clear the counters of one client key
func (h *RateLimitHandler) Reset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := h.resolver.ResolveRequest(r)
		if !caller.Privileged {
			h.respond.Error(w, r, service.NewError(service.KindForbidden, nil))
			return
		}

		body := r.Body
		if h.maxBodyBytes > 0 {
			body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
		}

		var req ResetRequest
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			kind := service.KindMalformedInput
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				kind = service.KindBodyTooLarge
			}
			h.respond.Error(w, r, service.NewError(kind, err))
			return
		}

		if err := h.admission.ResetLimit(r.Context(), caller, req.Key); err != nil {
			h.respond.Error(w, r, err)
			return
		}

		h.respond.JSON(w, http.StatusOK, ResetResponse{
			Message: "rate limit reset",
			Key:     req.Key,
		})
	}
}
