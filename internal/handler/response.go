package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mohammadhprp/batchgate/internal/middleware"
	"github.com/mohammadhprp/batchgate/internal/service"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Responder writes JSON bodies and maps errors to HTTP statuses.
type Responder struct {
	logger *zap.Logger
}

// NewResponder creates a new responder
func NewResponder(logger *zap.Logger) *Responder {
	return &Responder{logger: logger}
}

// StatusFor returns the HTTP status for an error kind.
func StatusFor(kind service.ErrorKind) int {
	switch kind {
	case service.KindMalformedInput, service.KindNotList:
		return http.StatusBadRequest
	case service.KindBodyTooLarge:
		return http.StatusRequestEntityTooLarge
	case service.KindRateLimited:
		return http.StatusTooManyRequests
	case service.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as a JSON error response. Internal faults are logged with
// full detail and reach the client only as a generic message.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	kind := service.KindOf(err)
	status := StatusFor(kind)

	fields := []zap.Field{
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		zap.String("kind", kind.String()),
		zap.Error(err),
	}
	if status == http.StatusInternalServerError {
		rs.logger.Error("request failed", fields...)
	} else {
		rs.logger.Debug("request rejected", fields...)
	}

	rs.JSON(w, status, ErrorResponse{Error: service.PublicMessage(err)})
}

// JSON writes payload with the given status.
func (rs *Responder) JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		rs.logger.Warn("failed to write response body", zap.Error(err))
	}
}

// NotFound handles unknown routes.
func (rs *Responder) NotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs.JSON(w, http.StatusNotFound, ErrorResponse{Error: service.MsgNotFound})
	}
}

// MethodNotAllowed handles known routes hit with the wrong method.
func (rs *Responder) MethodNotAllowed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs.JSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: service.MsgMethodNotAllowed})
	}
}
