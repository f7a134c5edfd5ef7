package nyaa

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/amaumene/mona/internal/config"
	"github.com/amaumene/mona/internal/metrics"
	"github.com/amaumene/mona/internal/models"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

const (
	descriptionID = "torrent-description"
	maxPageSize   = 2 << 20
	userAgent     = "mona/1.0"
)

var imagePattern = regexp.MustCompile(`(?i)https?://[^\s"'<>()\[\]]+?\.(?:jpg|jpeg|png|gif)`)

// Client fetches torrent pages and extracts the images linked from their description
type Client struct {
	hosts      map[string]bool
	httpClient *http.Client
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	logger     *logrus.Logger
}

// NewClient creates a new torrent page client restricted to the configured hosts
func NewClient(cfg *config.Config, m *metrics.Metrics, logger *logrus.Logger) *Client {
	hosts := make(map[string]bool, len(cfg.TorrentHosts))
	for _, h := range cfg.TorrentHosts {
		hosts[strings.ToLower(h)] = true
	}

	return &Client{
		hosts:      hosts,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		metrics:    m,
		tracer:     otel.Tracer("github.com/amaumene/mona/internal/services/nyaa"),
		logger:     logger,
	}
}

// CheckPageURL rejects anything that is not an https URL on an allowed host
func (c *Client) CheckPageURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: torrent page url is invalid: %w", models.ErrInvalidRequest, err)
	}
	if u.Scheme != "https" || !c.hosts[strings.ToLower(u.Hostname())] {
		return nil, fmt.Errorf("%w: torrent page host %q is not allowed", models.ErrInvalidRequest, u.Host)
	}
	return u, nil
}

// PageArtwork returns the images linked from the page description, in page order.
// A page without a description or without images yields an empty slice.
func (c *Client) PageArtwork(ctx context.Context, pageURL string) ([]models.ArtworkCandidate, error) {
	u, err := c.CheckPageURL(pageURL)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "nyaa.page",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("torrent.host", u.Host)))
	defer span.End()

	candidates, err := c.fetch(ctx, u.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"url":    u.String(),
		"images": len(candidates),
	}).Debug("Scanned torrent page")

	return candidates, nil
}

func (c *Client) fetch(ctx context.Context, pageURL string) ([]models.ArtworkCandidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", models.ErrInvalidRequest, err)
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues("torrent_page").Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues("torrent_page", "error").Inc()
		return nil, fmt.Errorf("%w: torrent page request failed: %w", models.ErrUpstream, err)
	}
	defer resp.Body.Close()

	c.metrics.UpstreamRequests.WithLabelValues("torrent_page", strconv.Itoa(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: torrent page returned status %d", models.ErrNotFound, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &models.RateLimitError{}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: torrent page returned status %d", models.ErrUpstream, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse torrent page: %w", models.ErrUpstream, err)
	}

	description := findByID(doc, descriptionID)
	if description == nil {
		return []models.ArtworkCandidate{}, nil
	}

	return extractImages(textContent(description)), nil
}

// extractImages returns the distinct image URLs in text as torrent-art candidates
func extractImages(text string) []models.ArtworkCandidate {
	matches := imagePattern.FindAllString(text, -1)
	seen := make(map[string]bool, len(matches))
	candidates := make([]models.ArtworkCandidate, 0, len(matches))
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		candidates = append(candidates, models.ArtworkCandidate{
			Class: models.AssetTorrentArt,
			URL:   m,
		})
	}
	return candidates
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Key == "id" && attr.Val == id {
				return n
			}
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findByID(child, id); found != nil {
			return found
		}
	}
	return nil
}

// textContent concatenates the text below n, one line per text node
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte('\n')
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}
