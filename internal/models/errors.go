package models

import (
	"errors"
	"fmt"
	"time"
)

// Error taxonomy shared by the client, resolver and HTTP edge.
// Match with errors.Is; every layer wraps with context and never replaces the cause.
var (
	ErrNotFound       = errors.New("not found")
	ErrNoCandidates   = errors.New("no candidates satisfy the preferences")
	ErrRateLimited    = errors.New("rate limited by upstream")
	ErrUpstream       = errors.New("upstream error")
	ErrInvalidRequest = errors.New("invalid request")

	// ErrAuth is internal to the client: it is retried once and then escalated to ErrUpstream
	ErrAuth = errors.New("upstream authorization failed")

	// ErrNoArtwork means the show exists but has no artwork of the requested class
	ErrNoArtwork = fmt.Errorf("%w: no artwork of the requested class", ErrNotFound)
)

// RateLimitError carries the upstream retry-after hint, if any
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", ErrRateLimited, e.RetryAfter)
	}
	return ErrRateLimited.Error()
}

// Is makes errors.Is(err, ErrRateLimited) match
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// RetryAfter extracts the retry-after hint from err, or 0
func RetryAfter(err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	return 0
}
