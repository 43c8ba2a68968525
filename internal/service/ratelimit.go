package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohammadhprp/batchgate/internal/identity"
	"go.uber.org/zap"
)

// ResetLimit clears the limiter state of key so the client starts a fresh
// window. Only privileged callers may reset.
func (s *AdmissionService) ResetLimit(ctx context.Context, caller identity.Identity, key string) error {
	if !caller.Privileged {
		return NewError(KindForbidden, errors.New("reset requires the api key"))
	}
	if key == "" {
		return &Error{Kind: KindMalformedInput, Message: MsgKeyRequired}
	}

	if err := s.limiter.Reset(ctx, key); err != nil {
		return fmt.Errorf("reset rate limit for %s: %w", key, err)
	}

	s.logger.Info("rate limit reset", zap.String("key", key))
	return nil
}
