// Package resolver produces assistant replies for the intake conversation,
// preferring a remote text-generation endpoint and falling back to scripted
// copy when the endpoint is absent or failing.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/northpeak-analytics/site-backend/internal/model/intake"
)

// Resolver turns the conversation so far into the next assistant reply.
type Resolver interface {
	Resolve(ctx context.Context, history []intake.Message, step intake.Step, latest string) (string, error)
}

// RateLimitError signals that the remote endpoint refused the request and when
// it may be retried. Callers must suppress further submissions until then.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("remote generation rate limited, retry after %s", e.RetryAfter)
}

// fallbackResolver tries a primary resolver and substitutes the fallback's
// reply on failure, so callers always receive content.
type fallbackResolver struct {
	primary  Resolver
	fallback Resolver
}

// WithFallback composes two resolvers. The fallback must be infallible (the
// scripted resolver is). A rate-limit failure of the primary still yields the
// fallback reply, but the *RateLimitError is returned alongside it so the
// caller can block further submissions.
func WithFallback(primary, fallback Resolver) Resolver {
	if primary == nil {
		return fallback
	}
	return &fallbackResolver{primary: primary, fallback: fallback}
}

func (r *fallbackResolver) Resolve(ctx context.Context, history []intake.Message, step intake.Step, latest string) (string, error) {
	reply, err := r.primary.Resolve(ctx, history, step, latest)
	if err == nil && reply != "" {
		return reply, nil
	}

	scripted, ferr := r.fallback.Resolve(ctx, history, step, latest)
	if ferr != nil {
		return "", ferr
	}

	var rl *RateLimitError
	if errors.As(err, &rl) {
		return scripted, rl
	}
	return scripted, nil
}
