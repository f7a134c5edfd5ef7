package controllers

import (
	"errors"

	"github.com/amaumene/mona/internal/models"
)

// Resolution outcomes used as metric labels
const (
	OutcomeSuccess        = "success"
	OutcomeNotFound       = "not_found"
	OutcomeNoCandidates   = "no_candidates"
	OutcomeRateLimited    = "rate_limited"
	OutcomeUpstream       = "upstream_error"
	OutcomeInvalidRequest = "invalid_request"
)

// Outcome classifies a resolution error
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, models.ErrInvalidRequest):
		return OutcomeInvalidRequest
	case errors.Is(err, models.ErrNoCandidates):
		return OutcomeNoCandidates
	case errors.Is(err, models.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, models.ErrRateLimited):
		return OutcomeRateLimited
	default:
		return OutcomeUpstream
	}
}
