package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mohammadhprp/batchgate/internal/middleware"
	"github.com/mohammadhprp/batchgate/internal/service"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	return NewHTTPServer(newTestConfig(), newTestServices(t, 3)).Handler()
}

func postBatch(t *testing.T, h http.Handler, body, remoteAddr, apiKey string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, EndpointPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	if apiKey != "" {
		req.Header.Set("apikey", apiKey)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeResult(t *testing.T, rr *httptest.ResponseRecorder) service.BatchResult {
	t.Helper()

	var result service.BatchResult
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v (body %q)", err, rr.Body.String())
	}
	return result
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()

	var resp struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Error
}

func TestEndpointCountsRecords(t *testing.T) {
	h := newTestHandler(t)

	body := `[{"num": 1, "text": "a"}, {"num": "x", "text": "b"}, {"num": 2.5, "text": "c"}, {"num": 3}]`
	rr := postBatch(t, h, body, "10.0.0.1:1234", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}

	result := decodeResult(t, rr)
	if result.Valid != 2 || result.Invalid != 2 {
		t.Errorf("expected 2/2, got %+v", result)
	}
	if rr.Header().Get("X-RateLimit-Limit") != "3" || rr.Header().Get("X-RateLimit-Remaining") != "2" {
		t.Errorf("unexpected rate limit headers %v", rr.Header())
	}
}

func TestEndpointEmptyList(t *testing.T) {
	h := newTestHandler(t)

	rr := postBatch(t, h, `[]`, "10.0.0.1:1234", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if result := decodeResult(t, rr); result.Valid != 0 || result.Invalid != 0 {
		t.Errorf("expected zero counts, got %+v", result)
	}
}

func TestEndpointRejectsNonList(t *testing.T) {
	for _, apiKey := range []string{"", testAPIKey} {
		t.Run(fmt.Sprintf("apikey=%q", apiKey), func(t *testing.T) {
			h := newTestHandler(t)

			rr := postBatch(t, h, `{"num": 1, "text": "a"}`, "10.0.0.2:1", apiKey)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
			if msg := decodeError(t, rr); msg != service.MsgExpectedList {
				t.Errorf("expected %q, got %q", service.MsgExpectedList, msg)
			}
		})
	}
}

func TestEndpointRejectsNonJSON(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"malformed", "application/json", `[{"num": 1,`},
		{"form content type", "application/x-www-form-urlencoded", `[]`},
		{"missing content type", "", `[]`},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, EndpointPath, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			req.Header.Set("apikey", testAPIKey)
			req.RemoteAddr = fmt.Sprintf("10.0.1.%d:1", i)

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
			if msg := decodeError(t, rr); msg != service.MsgExpectedJSON {
				t.Errorf("expected %q, got %q", service.MsgExpectedJSON, msg)
			}
		})
	}
}

func TestEndpointAcceptsJSONSuffixContentType(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, EndpointPath, strings.NewReader(`[{"num": 1, "text": "a"}]`))
	req.Header.Set("Content-Type", "application/vnd.batch+json; charset=utf-8")
	req.RemoteAddr = "10.0.0.3:1"

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestEndpointBodyTooLarge(t *testing.T) {
	cfg := newTestConfig()
	cfg.MaxBodyBytes = 32
	h := NewHTTPServer(cfg, newTestServices(t, 3)).Handler()

	body := `[` + strings.Repeat(`{"num": 1, "text": "a"},`, 10) + `{}]`
	rr := postBatch(t, h, body, "10.0.0.4:1", "")

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
}

func TestEndpointRateLimitsAnonymousCallers(t *testing.T) {
	h := newTestHandler(t)

	for i := 1; i <= 3; i++ {
		rr := postBatch(t, h, `[]`, "10.0.0.5:4000", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
	}

	rr := postBatch(t, h, `[]`, "10.0.0.5:4001", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on request 4, got %d", rr.Code)
	}
	if msg := decodeError(t, rr); msg != "Rate limit exceeded: 3 per 1 minute" {
		t.Errorf("unexpected message %q", msg)
	}

	retry, err := strconv.Atoi(rr.Header().Get("Retry-After"))
	if err != nil || retry < 1 || retry > 60 {
		t.Errorf("expected Retry-After in [1,60], got %q", rr.Header().Get("Retry-After"))
	}
	if rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("expected remaining 0, got %q", rr.Header().Get("X-RateLimit-Remaining"))
	}

	// Another address has its own budget.
	if rr := postBatch(t, h, `[]`, "10.0.0.6:4000", ""); rr.Code != http.StatusOK {
		t.Errorf("expected 200 for a different address, got %d", rr.Code)
	}
}

func TestEndpointAPIKeyBypassesLimit(t *testing.T) {
	h := newTestHandler(t)

	for i := 0; i < 20; i++ {
		rr := postBatch(t, h, `[{"num": 1, "text": "a"}]`, "10.0.0.7:1", testAPIKey)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rr.Code)
		}
		if rr.Header().Get("X-RateLimit-Limit") != "" {
			t.Fatal("exempt responses must not carry rate limit headers")
		}
	}

	// Privileged traffic did not consume the address's budget.
	for i := 0; i < 3; i++ {
		if rr := postBatch(t, h, `[]`, "10.0.0.7:1", ""); rr.Code != http.StatusOK {
			t.Fatalf("anonymous request %d: expected 200, got %d", i+1, rr.Code)
		}
	}
}

func TestEndpointWrongAPIKeyIsAnonymous(t *testing.T) {
	h := newTestHandler(t)

	for i := 0; i < 3; i++ {
		postBatch(t, h, `[]`, "10.0.0.8:1", "wrong")
	}
	if rr := postBatch(t, h, `[]`, "10.0.0.8:1", "wrong"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
}

func TestEndpointConcurrentSameAddress(t *testing.T) {
	h := newTestHandler(t)

	const workers = 50
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rr := postBatch(t, h, `[]`, fmt.Sprintf("10.0.0.9:%d", 1000+i), "")
			if rr.Code == http.StatusOK {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if allowed != 3 {
		t.Errorf("expected exactly 3 admitted, got %d", allowed)
	}
}

func TestEndpointMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, EndpointPath, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
	if rr.Header().Get(middleware.HeaderRequestID) == "" {
		t.Error("405 responses must carry a request id")
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/nope", strings.NewReader(`[]`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if msg := decodeError(t, rr); msg != service.MsgNotFound {
		t.Errorf("expected %q, got %q", service.MsgNotFound, msg)
	}
}

func TestHealthRoute(t *testing.T) {
	h := newTestHandler(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var resp struct {
		Status string `json:"status"`
		Time   string `json:"time"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != service.HealthStatusHealthy {
		t.Errorf("expected healthy, got %q", resp.Status)
	}
	if _, err := time.Parse(time.RFC3339, resp.Time); err != nil {
		t.Errorf("expected RFC3339 time, got %q", resp.Time)
	}
}

func TestMetricsRoute(t *testing.T) {
	h := newTestHandler(t)

	postBatch(t, h, `[{"num": 1, "text": "a"}]`, "10.0.0.10:1", "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{"batchgate_test_requests_total", "batchgate_test_limiter_admissions_total", "batchgate_test_validator_records_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("expected %s in metrics output", name)
		}
	}
}

func TestHTTPServerStartStop(t *testing.T) {
	srv := NewHTTPServer(newTestConfig(), newTestServices(t, 3))

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, "http://"+srv.Addr()+EndpointPath, strings.NewReader(`[{"num": 1, "text": "a"}]`))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestRateLimitResetRoute(t *testing.T) {
	h := newTestHandler(t)

	for i := 0; i < 4; i++ {
		postBatch(t, h, `[]`, "10.0.0.11:1", "")
	}
	if rr := postBatch(t, h, `[]`, "10.0.0.11:1", ""); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 before reset, got %d", rr.Code)
	}

	reset := func(apiKey string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/ratelimit/reset", strings.NewReader(`{"key": "10.0.0.11"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "10.0.0.11:1"
		if apiKey != "" {
			req.Header.Set("apikey", apiKey)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	if rr := reset(""); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without api key, got %d", rr.Code)
	}
	if rr := reset(testAPIKey); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with api key, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr := postBatch(t, h, `[]`, "10.0.0.11:1", ""); rr.Code != http.StatusOK {
		t.Errorf("expected 200 after reset, got %d", rr.Code)
	}
}
