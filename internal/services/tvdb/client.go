package tvdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/amaumene/mona/internal/config"
	"github.com/amaumene/mona/internal/metrics"
	"github.com/amaumene/mona/internal/models"
	"github.com/amaumene/mona/internal/utils"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	artworkBaseURL = "https://artworks.thetvdb.com"
	userAgent      = "mona/1.0"
	maxErrorBody   = 4 << 10
	tracerName     = "github.com/amaumene/mona/internal/services/tvdb"
)

// TVDB artwork type ids
const (
	artworkTypeBanner       = 1
	artworkTypePoster       = 2
	artworkTypeBackground   = 3
	artworkTypeSeasonPoster = 7
	artworkTypeMovieFanart  = 15
)

var artworkTypes = map[models.AssetClass]int{
	models.AssetPoster:     artworkTypePoster,
	models.AssetFanart:     artworkTypeBackground,
	models.AssetTorrentArt: artworkTypeBanner,
}

// Client handles communication with the TVDB v4 API.
// It is safe for concurrent use; a single token is shared by all callers.
type Client struct {
	baseURL      string
	apiKey       string
	pin          string
	timeout      time.Duration
	retryBackoff time.Duration
	httpClient   *http.Client
	tokens       *tokenSource
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	logger       *logrus.Logger
}

// NewClient creates a new TVDB API client
func NewClient(cfg *config.Config, m *metrics.Metrics, logger *logrus.Logger) (*Client, error) {
	if cfg.TVDBAPIKey == "" {
		return nil, fmt.Errorf("TVDB API key is required")
	}

	c := &Client{
		baseURL:      strings.TrimRight(cfg.TVDBBaseURL, "/"),
		apiKey:       cfg.TVDBAPIKey,
		pin:          cfg.TVDBPin,
		timeout:      cfg.TVDBTimeout,
		retryBackoff: cfg.TVDBRetryBackoff,
		// Per-attempt deadlines come from the request context
		httpClient: &http.Client{},
		metrics:    m,
		tracer:     otel.Tracer(tracerName),
		logger:     logger,
	}

	// A shared login may take two attempts plus the backoff in between
	loginBudget := 2*cfg.TVDBTimeout + cfg.TVDBRetryBackoff
	c.tokens = newTokenSource(c.login, cfg.TVDBTokenTTL, loginBudget)

	return c, nil
}

// getJSON performs an authenticated GET and decodes the response into result.
// A rejected token is refreshed and the call repeated once.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, params url.Values, result interface{}) error {
	ctx, span := c.tracer.Start(ctx, "tvdb."+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("tvdb.path", path)))
	defer span.End()

	call := func(token string) error {
		return c.withRetry(ctx, func(attemptCtx context.Context) error {
			return c.get(attemptCtx, endpoint, path, params, token, result)
		})
	}

	err := c.withReauth(ctx, call)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// withReauth runs call with the current token. On an authorization failure the token
// is refreshed (coalesced with concurrent callers) and call is run once more.
func (c *Client) withReauth(ctx context.Context, call func(token string) error) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return escalateAuth(err)
	}

	err = call(token)
	if !errors.Is(err, models.ErrAuth) {
		return err
	}

	c.logger.WithError(err).Debug("TVDB rejected the token, re-authenticating")

	token, err = c.tokens.Refresh(ctx, token)
	if err != nil {
		return escalateAuth(err)
	}
	return escalateAuth(call(token))
}

// withRetry runs op with a per-attempt timeout and retries a transient failure once
func (c *Client) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryBackoff), 1), ctx)

	err := backoff.RetryNotify(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		err := op(attemptCtx)
		if err == nil {
			return nil
		}
		if ctx.Err() == nil && isTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy, func(err error, wait time.Duration) {
		c.logger.WithFields(logrus.Fields{
			"error": err,
			"wait":  wait,
		}).Warn("Transient TVDB failure, retrying")
	})

	if err != nil && !isClassified(err) {
		// Caller cancellation surfacing from the backoff wait
		return fmt.Errorf("%w: %w", models.ErrUpstream, err)
	}
	return err
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, token string, result interface{}) error {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	c.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"url":      fullURL,
	}).Debug("Making TVDB API request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %w", models.ErrInvalidRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return &transportError{err: fmt.Errorf("%w: %s request failed: %w", models.ErrUpstream, endpoint, err)}
	}
	defer resp.Body.Close()

	c.metrics.UpstreamRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if err := checkStatus(resp, time.Now()); err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %w", models.ErrUpstream, endpoint, err)
	}

	return nil
}

// checkStatus maps a non-2xx response onto the error taxonomy
func checkStatus(resp *http.Response, now time.Time) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := upstreamMessage(body)

	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", models.ErrAuth, code, msg)
	case code == http.StatusNotFound || code == http.StatusGone:
		return fmt.Errorf("%w: status %d: %s", models.ErrNotFound, code, msg)
	case code == http.StatusTooManyRequests:
		return &models.RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), now)}
	case code >= 500:
		return fmt.Errorf("%w: status %d: %s", models.ErrUpstream, code, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", models.ErrInvalidRequest, code, msg)
	}
}

// upstreamMessage extracts the message field of a TVDB error body, falling back to the raw text
func upstreamMessage(body []byte) string {
	var env envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return strings.TrimSpace(string(body))
}

// parseRetryAfter accepts delta-seconds or an HTTP date; anything else yields 0
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d.Round(time.Second)
		}
	}
	return 0
}

// transportError marks a failed round trip. Responses that arrived but could not be
// decoded are never wrapped in it.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }

func (e *transportError) Unwrap() error { return e.err }

// isTransient reports round-trip failures worth one more attempt
func isTransient(err error) bool {
	var te *transportError
	if !errors.As(err, &te) {
		return false
	}
	if errors.Is(te, context.DeadlineExceeded) ||
		errors.Is(te, io.EOF) ||
		errors.Is(te, io.ErrUnexpectedEOF) ||
		errors.Is(te, syscall.ECONNRESET) ||
		errors.Is(te, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	return errors.As(te, &netErr) && netErr.Timeout()
}

func isClassified(err error) bool {
	for _, target := range []error{
		models.ErrNotFound,
		models.ErrRateLimited,
		models.ErrUpstream,
		models.ErrInvalidRequest,
		models.ErrAuth,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// escalateAuth turns an authorization failure that survived re-authentication into ErrUpstream
func escalateAuth(err error) error {
	if errors.Is(err, models.ErrAuth) && !errors.Is(err, models.ErrUpstream) {
		return fmt.Errorf("%w: %w", models.ErrUpstream, err)
	}
	return err
}

// artworkURL resolves relative artwork paths and rejects anything that is not http(s)
func artworkURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		raw = artworkBaseURL + raw
	}
	if !utils.ValidImageURL(raw) {
		return "", false
	}
	return raw, true
}
