package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammadhprp/batchgate/internal/identity"
	"github.com/mohammadhprp/batchgate/internal/limiter"
	"github.com/mohammadhprp/batchgate/internal/metrics"
	"github.com/mohammadhprp/batchgate/internal/service"
	"github.com/mohammadhprp/batchgate/internal/storage"
	"go.uber.org/zap"
)

func newRateLimitHandler(t *testing.T) *RateLimitHandler {
	t.Helper()

	logger := zap.NewNop()
	store := storage.NewMemoryStore(storage.WithCleanupInterval(0))
	t.Cleanup(func() { store.Close() })

	lim := limiter.NewFixedWindow(store, 3, time.Minute, logger)
	admission := service.NewAdmissionService(lim, "3 per 1 minute", metrics.New("reset_test"), logger)
	return NewRateLimitHandler(admission, identity.NewResolver("secret", false), NewResponder(logger), 64, logger)
}

func TestRateLimitReset(t *testing.T) {
	tests := []struct {
		name       string
		apiKey     string
		body       string
		wantStatus int
	}{
		{"anonymous caller", "", `{"key": "10.0.0.1"}`, http.StatusForbidden},
		{"wrong key", "nope", `{"key": "10.0.0.1"}`, http.StatusForbidden},
		{"malformed body", "secret", `{"key":`, http.StatusBadRequest},
		{"missing key", "secret", `{}`, http.StatusBadRequest},
		{"oversized body", "secret", `{"key": "` + strings.Repeat("a", 128) + `"}`, http.StatusRequestEntityTooLarge},
		{"ok", "secret", `{"key": "10.0.0.1"}`, http.StatusOK},
	}

	h := newRateLimitHandler(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/ratelimit/reset", strings.NewReader(tt.body))
			if tt.apiKey != "" {
				req.Header.Set(identity.HeaderAPIKey, tt.apiKey)
			}
			rr := httptest.NewRecorder()

			h.Reset().ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
		})
	}
}
