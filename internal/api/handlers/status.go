package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/amaumene/mona/internal/services/tvdb"
		"github.com/sirupsen/logrus"
)

// TokenReporter exposes the state of the upstream bearer token
type TokenReporter interface {
	TokenState() tvdb.TokenState
}

// CacheReporter exposes the redirect cache backend
type CacheReporter interface {
	Backend() string
	Entries(ctx context.Context) (int, error)
}

// StatusHandler handles status requests
type StatusHandler struct {
	tokens TokenReporter
	cache  CacheReporter
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(tokens TokenReporter, cache CacheReporter, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		tokens: tokens,
		cache:  cache,
		logger: logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	Token TokenStatus `json:"token"`
	Cache CacheStatus `json:"cache"`
}

type TokenStatus struct {
	Valid     bool       `json:"valid"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type CacheStatus struct {
	Backend string `json:"backend"`
	Entries int    `json:"entries"`
	Error   string `json:"error,omitempty"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	state := h.tokens.TokenState()

	response := StatusResponse{
		Token: TokenStatus{Valid: state.Valid},
		Cache: CacheStatus{Backend: h.cache.Backend()},
	}
	if !state.ExpiresAt.IsZero() {
		response.Token.ExpiresAt = &state.ExpiresAt
	}

	entries, err := h.cache.Entries(r.Context())
	if err != nil {
		h.logger.WithError(err).Warn("Failed to count cache entries")
		response.Cache.Error = err.Error()
	}
	response.Cache.Entries = entries

	writeJSON(w, http.StatusOK, response)
}
