package tvdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/amaumene/mona/internal/models"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// TokenState describes the bearer token currently held by the client
type TokenState struct {
	Valid     bool
	ExpiresAt time.Time
}

// tokenSource holds the shared bearer token and coalesces concurrent logins
type tokenSource struct {
	login   func(ctx context.Context) (string, error)
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time

	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	group singleflight.Group
}

func newTokenSource(login func(ctx context.Context) (string, error), ttl, timeout time.Duration) *tokenSource {
	return &tokenSource{
		login:   login,
		ttl:     ttl,
		timeout: timeout,
		now:     time.Now,
	}
}

// current returns the held token and whether it is still valid
func (s *tokenSource) current() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != "" && s.now().Before(s.expiresAt)
}

func (s *tokenSource) state() TokenState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return TokenState{
		Valid:     s.token != "" && s.now().Before(s.expiresAt),
		ExpiresAt: s.expiresAt,
	}
}

// Token returns a valid token, logging in first when none is held or it expired
func (s *tokenSource) Token(ctx context.Context) (string, error) {
	if token, ok := s.current(); ok {
		return token, nil
	}
	return s.Refresh(ctx, "")
}

// Refresh replaces stale with a new token. Concurrent callers share one login, and a
// caller whose stale token was already replaced gets the new one without logging in.
func (s *tokenSource) Refresh(ctx context.Context, stale string) (string, error) {
	ch := s.group.DoChan("login", func() (interface{}, error) {
		if token, ok := s.current(); ok && token != stale {
			return token, nil
		}

		// The login outlives the caller that started it; others may be waiting on it
		loginCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		token, err := s.login(loginCtx)
		if err != nil {
			return "", err
		}

		s.mu.Lock()
		s.token = token
		s.expiresAt = s.now().Add(s.ttl)
		s.mu.Unlock()

		return token, nil
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: waiting for TVDB login: %w", models.ErrUpstream, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Authenticate forces a fresh login, replacing any held token
func (c *Client) Authenticate(ctx context.Context) error {
	stale, _ := c.tokens.current()
	if _, err := c.tokens.Refresh(ctx, stale); err != nil {
		return escalateAuth(err)
	}
	return nil
}

// EnsureToken logs in when the held token is missing or expires within lead
func (c *Client) EnsureToken(ctx context.Context, lead time.Duration) error {
	state := c.tokens.state()
	if state.Valid && state.ExpiresAt.Sub(c.tokens.now()) > lead {
		return nil
	}

	c.logger.WithField("expires_at", state.ExpiresAt).Info("TVDB token expires soon, refreshing...")
	return c.Authenticate(ctx)
}

// TokenState reports whether a valid token is held and when it expires
func (c *Client) TokenState() TokenState {
	return c.tokens.state()
}

// login exchanges the API key (and subscriber pin) for a bearer token
func (c *Client) login(ctx context.Context) (string, error) {
	ctx, span := c.tracer.Start(ctx, "tvdb.login", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	body, err := json.Marshal(loginRequest{APIKey: c.apiKey, Pin: c.pin})
	if err != nil {
		return "", fmt.Errorf("failed to marshal login request: %w", err)
	}

	var token string
	err = c.withRetry(ctx, func(attemptCtx context.Context) error {
		var err error
		token, err = c.postLogin(attemptCtx, body)
		return err
	})
	if err != nil {
		c.metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.WithError(err).Error("TVDB login failed")
		return "", err
	}

	c.metrics.TokenRefreshes.WithLabelValues("success").Inc()
	c.logger.Info("TVDB login successful")
	return token, nil
}

func (c *Client) postLogin(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create login request: %w", models.ErrInvalidRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues("login").Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues("login", "error").Inc()
		return "", &transportError{err: fmt.Errorf("%w: login request failed: %w", models.ErrUpstream, err)}
	}
	defer resp.Body.Close()

	c.metrics.UpstreamRequests.WithLabelValues("login", strconv.Itoa(resp.StatusCode)).Inc()

	if err := checkStatus(resp, time.Now()); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	var result envelope[loginData]
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: failed to decode login response: %w", models.ErrUpstream, err)
	}
	if result.Data.Token == "" {
		return "", fmt.Errorf("%w: login response carried no token", models.ErrUpstream)
	}

	return result.Data.Token, nil
}
