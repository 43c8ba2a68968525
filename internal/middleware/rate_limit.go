package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mohammadhprp/batchgate/internal/identity"
	"github.com/mohammadhprp/batchgate/internal/limiter"
	"github.com/mohammadhprp/batchgate/internal/service"
	"go.uber.org/zap"
)

// ErrorResponder writes err to the client. Transports supply the one that
// maps error kinds to statuses.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

// RateLimitMiddleware returns an HTTP middleware that applies rate limiting to requests.
//
// The caller is classified by the resolver: a request carrying the shared
// secret is exempt, anything else is counted against its network address.
// If the request is rate limited, respond receives a KindRateLimited error and
// the wrapped handler never runs.
//
// Example:
//
//	mw := RateLimitMiddleware(admission, identity.NewResolver(secret, false), responder.Error, logger)
//	router.Handle("/endpoint", mw(handler))
func RateLimitMiddleware(admission *service.AdmissionService, resolver *identity.Resolver, respond ErrorResponder, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := resolver.ResolveRequest(r)

			decision, err := admission.Admit(r.Context(), id)
			setRateLimitHeaders(w, decision)

			if err != nil {
				logger.Debug("request rate limited",
					zap.String("request_id", RequestIDFromContext(r.Context())),
					zap.String("key", id.Key),
				)
				respond(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, d limiter.Decision) {
	if d.Exempt || d.Limit == 0 {
		return
	}

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	if !d.Allowed {
		h.Set("Retry-After", strconv.Itoa(d.RetryAfter(time.Now())))
	}
}
