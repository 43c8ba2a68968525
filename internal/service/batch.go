package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mohammadhprp/batchgate/internal/metrics"
	"github.com/mohammadhprp/batchgate/internal/validator"
	"go.uber.org/zap"
)

var errTrailingData = errors.New("unexpected data after top-level value")

// BatchResult is the response body of a successful submission.
type BatchResult struct {
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
}

// BatchService decodes submitted batches and tallies schema conformance
type BatchService struct {
	schema  validator.Schema
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewBatchService creates a new batch service
func NewBatchService(schema validator.Schema, m *metrics.Metrics, logger *zap.Logger) *BatchService {
	return &BatchService{
		schema:  schema,
		metrics: m,
		logger:  logger,
	}
}

// Process decodes a JSON array from r and validates every element.
func (s *BatchService) Process(r io.Reader) (BatchResult, error) {
	items, err := s.Decode(r)
	if err != nil {
		return BatchResult{}, err
	}
	return s.Evaluate(items), nil
}

// Decode reads exactly one JSON value from r and requires it to be an array.
func (s *BatchService) Decode(r io.Reader) ([]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, classifyDecodeError(err)
	}

	// Anything after the first value makes the body malformed
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errTrailingData
		}
		return nil, classifyDecodeError(err)
	}

	return AsList(payload)
}

// AsList asserts that a decoded payload is a list.
func AsList(payload any) ([]any, error) {
	items, ok := payload.([]any)
	if !ok {
		return nil, NewError(KindNotList, fmt.Errorf("payload is %s", validator.KindOf(payload)))
	}
	return items, nil
}

// Evaluate validates each item independently. Mismatches are counted, never returned as errors.
func (s *BatchService) Evaluate(items []any) BatchResult {
	valid, invalid := s.schema.Count(items)
	s.metrics.ObserveRecords(valid, invalid)

	s.logger.Debug("batch validated",
		zap.Int("items", len(items)),
		zap.Int("valid", valid),
		zap.Int("invalid", invalid),
	)

	return BatchResult{Valid: valid, Invalid: invalid}
}

func classifyDecodeError(err error) error {
	var (
		maxBytes *http.MaxBytesError
		syntax   *json.SyntaxError
		typeErr  *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &maxBytes):
		return NewError(KindBodyTooLarge, err)
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.As(err, &syntax),
		errors.As(err, &typeErr),
		errors.Is(err, errTrailingData):
		return NewError(KindMalformedInput, err)
	default:
		return NewError(KindInternal, fmt.Errorf("read request body: %w", err))
	}
}
