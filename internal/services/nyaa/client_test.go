package nyaa

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/amaumene/mona/internal/config"
	"github.com/amaumene/mona/internal/metrics"
	"github.com/amaumene/mona/internal/models"
	"github.com/sirupsen/logrus"
)

const torrentPage = `<!DOCTYPE html>
<html><body>
<div class="panel-body">
  <img src="https://example.com/sidebar.png">
  <div id="torrent-description">Release notes
![cover](https://i.example.com/cover.jpg)
Screens: https://i.example.com/s1.PNG https://i.example.com/cover.jpg
not an image https://example.com/readme.txt</div>
</div>
</body></html>`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, string) {
	t.Helper()

	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("Failed to parse server url: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	c := NewClient(&config.Config{TorrentHosts: []string{u.Hostname()}}, metrics.NewUnregistered(), logger)
	c.httpClient = srv.Client()
	return c, srv.URL
}

func TestPageArtworkExtractsDescriptionImages(t *testing.T) {
	c, base := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, torrentPage)
	})

	candidates, err := c.PageArtwork(context.Background(), base+"/view/123")
	if err != nil {
		t.Fatalf("PageArtwork failed: %v", err)
	}

	want := []string{"https://i.example.com/cover.jpg", "https://i.example.com/s1.PNG"}
	if len(candidates) != len(want) {
		t.Fatalf("Expected %d images, got %+v", len(want), candidates)
	}
	for i, w := range want {
		if candidates[i].URL != w {
			t.Errorf("Image %d: expected %q, got %q", i, w, candidates[i].URL)
		}
		if candidates[i].Class != models.AssetTorrentArt {
			t.Errorf("Image %d: expected torrent-art class, got %q", i, candidates[i].Class)
		}
	}
}

func TestPageArtworkWithoutDescription(t *testing.T) {
	c, base := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body><p>https://i.example.com/cover.jpg</p></body></html>`)
	})

	candidates, err := c.PageArtwork(context.Background(), base+"/view/1")
	if err != nil {
		t.Fatalf("PageArtwork failed: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("Expected no images outside the description, got %+v", candidates)
	}
}

func TestPageArtworkStatusMapping(t *testing.T) {
	tests := map[int]error{
		http.StatusNotFound:           models.ErrNotFound,
		http.StatusTooManyRequests:    models.ErrRateLimited,
		http.StatusServiceUnavailable: models.ErrUpstream,
	}

	for status, want := range tests {
		c, base := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		if _, err := c.PageArtwork(context.Background(), base+"/view/1"); !errors.Is(err, want) {
			t.Errorf("Status %d: expected %v, got %v", status, want, err)
		}
	}
}

func TestCheckPageURL(t *testing.T) {
	c := NewClient(&config.Config{TorrentHosts: []string{"nyaa.si", "sukebei.nyaa.si"}}, metrics.NewUnregistered(), logrus.New())

	valid := []string{
		"https://nyaa.si/view/1234",
		"https://sukebei.nyaa.si/view/1",
		"https://NYAA.si/view/1",
	}
	for _, raw := range valid {
		if _, err := c.CheckPageURL(raw); err != nil {
			t.Errorf("Expected %q to be allowed, got %v", raw, err)
		}
	}

	invalid := []string{
		"http://nyaa.si/view/1",
		"https://nyaa.si.evil.example/view/1",
		"https://example.com/view/1",
		"nyaa.si/view/1",
		"",
	}
	for _, raw := range invalid {
		if _, err := c.CheckPageURL(raw); !errors.Is(err, models.ErrInvalidRequest) {
			t.Errorf("Expected %q to be rejected with ErrInvalidRequest, got %v", raw, err)
		}
	}
}
