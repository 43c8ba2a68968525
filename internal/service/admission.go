package service

import (
	"context"
	"fmt"

	"github.com/mohammadhprp/batchgate/internal/identity"
	"github.com/mohammadhprp/batchgate/internal/limiter"
	"github.com/mohammadhprp/batchgate/internal/metrics"
	"go.uber.org/zap"
)

// AdmissionService applies the rate limiter to resolved identities
type AdmissionService struct {
	limiter limiter.RateLimiter
	policy  string
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewAdmissionService creates a new admission service. policy is the
// human-readable limit (e.g. "3 per 1 minute") quoted in rejections.
func NewAdmissionService(lim limiter.RateLimiter, policy string, m *metrics.Metrics, logger *zap.Logger) *AdmissionService {
	return &AdmissionService{
		limiter: lim,
		policy:  policy,
		metrics: m,
		logger:  logger,
	}
}

// Admit returns the limiter decision for id. A rejected request yields a
// KindRateLimited error alongside the decision. Limiter failures fail open.
func (s *AdmissionService) Admit(ctx context.Context, id identity.Identity) (limiter.Decision, error) {
	decision, err := s.limiter.Admit(ctx, id.Key, id.Privileged)
	if err != nil {
		s.metrics.ObserveAdmission(metrics.OutcomeError)
		s.logger.Error("rate limiter check failed, allowing request", zap.String("key", id.Key), zap.Error(err))
		return decision, nil
	}

	switch {
	case decision.Exempt:
		s.metrics.ObserveAdmission(metrics.OutcomeExempt)
	case decision.Allowed:
		s.metrics.ObserveAdmission(metrics.OutcomeAllowed)
	default:
		s.metrics.ObserveAdmission(metrics.OutcomeRejected)
		s.logger.Info("request rate limited", zap.String("key", id.Key), zap.String("policy", s.policy))
		return decision, &Error{
			Kind:    KindRateLimited,
			Message: fmt.Sprintf(MsgRateLimited, s.policy),
		}
	}

	return decision, nil
}

// Policy returns the configured limit description.
func (s *AdmissionService) Policy() string {
	return s.policy
}
