package handler

import (
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/mohammadhprp/batchgate/internal/service"
	"go.uber.org/zap"
)

// BatchHandler serves record batch submissions
type BatchHandler struct {
	batch        *service.BatchService
	respond      *Responder
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(batch *service.BatchService, respond *Responder, maxBodyBytes int64, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{
		batch:        batch,
		respond:      respond,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// Submit handles POST /endpoint - validate a batch of records
func (h *BatchHandler) Submit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); !isJSONContentType(ct) {
			h.respond.Error(w, r, service.NewError(service.KindMalformedInput, fmt.Errorf("content type %q", ct)))
			return
		}

		body := r.Body
		if h.maxBodyBytes > 0 {
			body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
		}

		result, err := h.batch.Process(body)
		if err != nil {
			h.respond.Error(w, r, err)
			return
		}

		h.respond.JSON(w, http.StatusOK, result)
	}
}

// isJSONContentType accepts application/json and application/*+json.
func isJSONContentType(ct string) bool {
	if ct == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}

	return mediaType == "application/json" ||
		(strings.HasPrefix(mediaType, "application/") && strings.HasSuffix(mediaType, "+json"))
}
