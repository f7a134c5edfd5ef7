package subsplease

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/amaumene/mona/internal/config"
	"github.com/amaumene/mona/internal/metrics"
	"github.com/amaumene/mona/internal/models"
	"github.com/sirupsen/logrus"
)

const showPage = `<!DOCTYPE html>
<html><body>
<div id="secondary"><img src="/wp-content/uploads/2023/04/oshi-no-ko.jpg" alt="Oshi no Ko"></div>
<img src="/wp-content/uploads/banner.png">
</body></html>`

type pathRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (p *pathRecorder) add(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, path)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	c, err := NewClient(&config.Config{SubsPleaseBaseURL: srv.URL}, metrics.NewUnregistered(), logger)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestFallbackPostersShortensSlug(t *testing.T) {
	var rec pathRecorder
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.URL.Path)
		if r.URL.Path != "/shows/oshi-no-ko" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, showPage)
	})

	candidates, err := c.FallbackPosters(context.Background(), "[SubsPlease] Oshi no Ko (2023)")
	if err != nil {
		t.Fatalf("FallbackPosters failed: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("Expected one poster, got %+v", candidates)
	}
	if got := candidates[0]; got.Class != models.AssetPoster || got.URL != c.baseURL.String()+"/wp-content/uploads/2023/04/oshi-no-ko.jpg" {
		t.Errorf("Expected first page image resolved against the base url, got %+v", got)
	}

	want := []string{"/shows/oshi-no-ko-2023", "/shows/oshi-no-ko"}
	if len(rec.paths) != len(want) {
		t.Fatalf("Expected paths %v, got %v", want, rec.paths)
	}
	for i := range want {
		if rec.paths[i] != want[i] {
			t.Errorf("Request %d: expected %s, got %s", i, want[i], rec.paths[i])
		}
	}
}

func TestFallbackPostersNoPage(t *testing.T) {
	var rec pathRecorder
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.URL.Path)
		io.WriteString(w, "<html><body>no images here</body></html>")
	})

	candidates, err := c.FallbackPosters(context.Background(), "Some Show")
	if err != nil {
		t.Fatalf("FallbackPosters failed: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("Expected no posters, got %+v", candidates)
	}
	if len(rec.paths) != 2 {
		t.Errorf("Expected one request per slug length, got %v", rec.paths)
	}

	if candidates, err := c.FallbackPosters(context.Background(), "[]()"); err != nil || len(candidates) != 0 {
		t.Errorf("Expected an empty slug to skip lookups, got %+v, %v", candidates, err)
	}
	if len(rec.paths) != 2 {
		t.Errorf("Expected no request for an empty slug, got %v", rec.paths)
	}
}

func TestFallbackPostersRateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.FallbackPosters(context.Background(), "Frieren")
	if !errors.Is(err, models.ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited, got %v", err)
	}
}

func TestFallbackPostersUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	c, err := NewClient(&config.Config{SubsPleaseBaseURL: srv.URL}, metrics.NewUnregistered(), logger)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := c.FallbackPosters(context.Background(), "Frieren"); !errors.Is(err, models.ErrUpstream) {
		t.Errorf("Expected ErrUpstream, got %v", err)
	}
}

func TestFallbackPostersDisabled(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	c, err := NewClient(&config.Config{}, metrics.NewUnregistered(), logger)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	candidates, err := c.FallbackPosters(context.Background(), "Frieren")
	if err != nil || len(candidates) != 0 {
		t.Errorf("Expected a disabled client to return nothing, got %+v, %v", candidates, err)
	}

	if _, err := NewClient(&config.Config{SubsPleaseBaseURL: "not a url"}, metrics.NewUnregistered(), logger); err == nil {
		t.Error("Expected an invalid base url to be rejected")
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Kaguya-sama: Love is War (2019)":  "kaguya-sama-love-is-war-2019",
		"[SubsPlease] Frieren":             "frieren",
		"JoJo's Bizarre Adventure":         "jojos-bizarre-adventure",
		"Idolm@ster Cinderella Girls U149": "idolmster-cinderella-girls-u149",
		"  ":                               "",
	}
	for title, want := range tests {
		if got := Slugify(title); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", title, got, want)
		}
	}
}
