package subsplease

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
	"github.com/amaumene/mona/internal/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

const (
	maxPageSize = 2 << 20
	userAgent   = "mona/1.0"
	endpoint    = "subsplease"
)

var (
	bracketed = regexp.MustCompile(`\[.*?\]`)
	nonAlnum  = regexp.MustCompile(`[^a-z0-9_]+`)
	dropped   = strings.NewReplacer("(", "", ")", "", "'", "", "’", "", "+", "", "@", "")
)

// Client looks up show posters on subsplease.org show pages
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	logger     *logrus.Logger
}

// NewClient creates a new subsplease client. An empty SUBSPLEASE_BASE_URL disables it.
func NewClient(cfg *config.Config, m *metrics.Metrics, logger *logrus.Logger) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		metrics:    m,
		tracer:     otel.Tracer("github.com/amaumene/mona/internal/services/subsplease"),
		logger:     logger,
	}

	if raw := strings.TrimRight(cfg.SubsPleaseBaseURL, "/"); raw != "" {
		base, err := url.Parse(raw)
		if err != nil || base.Host == "" {
			return nil, fmt.Errorf("SUBSPLEASE_BASE_URL is invalid: %q", raw)
		}
		c.baseURL = base
	}

	return c, nil
}

// FallbackPosters returns the poster of the show page matching title. The slug is
// shortened one word at a time until a page with an image answers; none yields an
// empty slice.
func (c *Client) FallbackPosters(ctx context.Context, title string) ([]models.ArtworkCandidate, error) {
	if c.baseURL == nil {
		return nil, nil
	}

	ctx, span := c.tracer.Start(ctx, "subsplease.show", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	words := strings.FieldsFunc(Slugify(title), func(r rune) bool { return r == '-' })
	for ; len(words) > 0; words = words[:len(words)-1] {
		slug := strings.Join(words, "-")
		poster, err := c.showPoster(ctx, slug)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if poster == "" {
			continue
		}

		span.SetAttributes(attribute.String("subsplease.slug", slug))
		c.logger.WithFields(logrus.Fields{
			"title":  title,
			"slug":   slug,
			"poster": poster,
		}).Debug("Found subsplease poster")

		return []models.ArtworkCandidate{{Class: models.AssetPoster, URL: poster}}, nil
	}

	return []models.ArtworkCandidate{}, nil
}

// showPoster fetches one show page and returns its first image, or "" when the page
// is missing or has none
func (c *Client) showPoster(ctx context.Context, slug string) (string, error) {
	pageURL := c.baseURL.String() + "/shows/" + url.PathEscape(slug)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %w", models.ErrInvalidRequest, err)
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return "", fmt.Errorf("%w: subsplease request failed: %w", models.ErrUpstream, err)
	}
	defer resp.Body.Close()

	c.metrics.UpstreamRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &models.RateLimitError{}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.logger.WithFields(logrus.Fields{
			"slug":   slug,
			"status": resp.StatusCode,
		}).Debug("No subsplease show page")
		return "", nil
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", fmt.Errorf("%w: failed to parse subsplease page: %w", models.ErrUpstream, err)
	}

	src := firstImage(doc)
	if src == "" {
		return "", nil
	}
	ref, err := url.Parse(src)
	if err != nil {
		return "", nil
	}
	poster := c.baseURL.ResolveReference(ref).String()
	if !utils.ValidImageURL(poster) {
		return "", nil
	}
	return poster, nil
}

func firstImage(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "img" {
		for _, attr := range n.Attr {
			if attr.Key == "src" && strings.TrimSpace(attr.Val) != "" {
				return strings.TrimSpace(attr.Val)
			}
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if src := firstImage(child); src != "" {
			return src
		}
	}
	return ""
}

// Slugify renders a title the way subsplease builds show page paths:
// "Kaguya-sama: Love is War (2019)" becomes "kaguya-sama-love-is-war-2019"
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = bracketed.ReplaceAllString(s, "")
	s = dropped.Replace(s)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
