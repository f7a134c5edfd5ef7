package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amaumene/mona/internal/metrics"
	"github.com/amaumene/mona/internal/models"
	"github.com/amaumene/mona/internal/utils"
	"github.com/sirupsen/logrus"
)

// Resolver resolves show queries and torrent pages to artwork URLs
type Resolver interface {
	Resolve(ctx context.Context, query models.ShowQuery, class models.AssetClass, prefs models.ScoringPreferences) (*models.ResolutionResult, error)
	ResolvePage(ctx context.Context, pageURL string, prefs models.ScoringPreferences) (*models.ResolutionResult, error)
}

// entry is the cached form of a successful resolution
type entry struct {
	URL    string `json:"url"`
	ShowID int64  `json:"show_id,omitempty"`
}

// CachedResolver remembers successful resolutions. Failures always reach the wrapped
// resolver, and a failing store behaves like an empty one.
type CachedResolver struct {
	next    Resolver
	store   Store
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

// NewCachedResolver wraps next with store
func NewCachedResolver(next Resolver, store Store, ttl time.Duration, m *metrics.Metrics, logger *logrus.Logger) *CachedResolver {
	return &CachedResolver{
		next:    next,
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  logger,
	}
}

// Resolve returns the cached result for the request or resolves and stores it
func (r *CachedResolver) Resolve(ctx context.Context, query models.ShowQuery, class models.AssetClass, prefs models.ScoringPreferences) (*models.ResolutionResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	return r.cached(ctx, QueryKey(query, class, prefs), func() (*models.ResolutionResult, error) {
		return r.next.Resolve(ctx, query, class, prefs)
	})
}

// ResolvePage returns the cached result for the page or resolves and stores it
func (r *CachedResolver) ResolvePage(ctx context.Context, pageURL string, prefs models.ScoringPreferences) (*models.ResolutionResult, error) {
	return r.cached(ctx, PageKey(pageURL, prefs), func() (*models.ResolutionResult, error) {
		return r.next.ResolvePage(ctx, pageURL, prefs)
	})
}

// Backend names the underlying store
func (r *CachedResolver) Backend() string {
	return r.store.Name()
}

// Entries counts the stored resolutions
func (r *CachedResolver) Entries(ctx context.Context) (int, error) {
	return r.store.Len(ctx)
}

func (r *CachedResolver) cached(ctx context.Context, key string, resolve func() (*models.ResolutionResult, error)) (*models.ResolutionResult, error) {
	if _, off := r.store.(NopStore); off {
		return resolve()
	}

	if result, ok := r.lookup(ctx, key); ok {
		return result, nil
	}

	result, err := resolve()
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(entry{URL: result.URL, ShowID: result.ShowID})
	if err == nil {
		err = r.store.Set(ctx, key, string(data), r.ttl)
	}
	if err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("Failed to cache resolution")
	}

	return result, nil
}

func (r *CachedResolver) lookup(ctx context.Context, key string) (*models.ResolutionResult, bool) {
	value, ok, err := r.store.Get(ctx, key)
	if err != nil {
		r.metrics.CacheLookups.WithLabelValues("error").Inc()
		r.logger.WithError(err).WithField("key", key).Warn("Cache lookup failed, resolving upstream")
		return nil, false
	}
	if !ok {
		r.metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	var e entry
	if err := json.Unmarshal([]byte(value), &e); err != nil || e.URL == "" {
		r.metrics.CacheLookups.WithLabelValues("error").Inc()
		r.logger.WithField("key", key).Warn("Discarding unreadable cache entry")
		return nil, false
	}

	r.metrics.CacheLookups.WithLabelValues("hit").Inc()
	r.logger.WithField("key", key).Debug("Cache hit")

	return &models.ResolutionResult{URL: e.URL, ShowID: e.ShowID, Cached: true}, true
}

// QueryKey builds the cache key of a show resolution: class|query|lang|min_resolution|season
func QueryKey(query models.ShowQuery, class models.AssetClass, prefs models.ScoringPreferences) string {
	var show string
	if query.ByID() {
		show = "id:" + strconv.FormatInt(query.ID, 10)
	} else {
		show = "name:" + strings.ToLower(strings.TrimSpace(query.Name))
		if query.Year > 0 {
			show += ":" + strconv.Itoa(query.Year)
		}
	}

	season := "-"
	if query.Season != nil && class == models.AssetPoster {
		season = strconv.Itoa(*query.Season)
	}

	prefs.Language = utils.NormalizeLanguage(prefs.Language)
	return fmt.Sprintf("%s|%s|%s|%s", class, show, prefs.CacheKey(), season)
}

// PageKey builds the cache key of a torrent page resolution
func PageKey(pageURL string, prefs models.ScoringPreferences) string {
	prefs.Language = utils.NormalizeLanguage(prefs.Language)
	return fmt.Sprintf("page|%s|%s", strings.TrimSpace(pageURL), prefs.CacheKey())
}
