package controllers

import (
	"context"
	"errors"
	"fmt"

	"github.com/amaumene/mona/internal/config"
	"github.com/amaumene/mona/internal/metrics"
	"github.com/amaumene/mona/internal/models"
	"github.com/amaumene/mona/internal/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ArtworkSource is the upstream provider queried for shows and artwork
type ArtworkSource interface {
	SearchByName(ctx context.Context, name string, year int) ([]models.Show, error)
	SearchMovies(ctx context.Context, name string, year int) ([]models.Show, error)
	LookupByID(ctx context.Context, id int64) (*models.Show, error)
	ListArtwork(ctx context.Context, showID int64, class models.AssetClass) ([]models.ArtworkCandidate, error)
	ListSeasonArtwork(ctx context.Context, seasonID int64) ([]models.ArtworkCandidate, error)
	ListMovieFanart(ctx context.Context, movieID int64) ([]models.ArtworkCandidate, error)
}

// PosterFallback finds posters outside the artwork source by show title. An empty
// result means it has none.
type PosterFallback interface {
	FallbackPosters(ctx context.Context, title string) ([]models.ArtworkCandidate, error)
}

// PageSource extracts artwork linked from torrent pages
type PageSource interface {
	PageArtwork(ctx context.Context, pageURL string) ([]models.ArtworkCandidate, error)
}

// ResolveController turns a show query into the URL of its best artwork
type ResolveController struct {
	source          ArtworkSource
	pages           PageSource
	fallback        PosterFallback
	defaultLanguage string
	maxDistance     int
	fanartDepth     int
	metrics         *metrics.Metrics
	tracer          trace.Tracer
	logger          *logrus.Logger
}

// NewResolveController creates a new resolve controller
func NewResolveController(cfg *config.Config, source ArtworkSource, pages PageSource, fallback PosterFallback, m *metrics.Metrics, logger *logrus.Logger) *ResolveController {
	depth := cfg.FanartSearchDepth
	if depth < 1 {
		depth = 1
	}

	return &ResolveController{
		source:          source,
		pages:           pages,
		fallback:        fallback,
		defaultLanguage: utils.NormalizeLanguage(cfg.DefaultLanguage),
		maxDistance:     cfg.MatchMaxDistance,
		fanartDepth:     depth,
		metrics:         m,
		tracer:          otel.Tracer("github.com/amaumene/mona/internal/controllers"),
		logger:          logger,
	}
}

// Resolve finds the show described by query and returns its best artwork of the given class
func (c *ResolveController) Resolve(ctx context.Context, query models.ShowQuery, class models.AssetClass, prefs models.ScoringPreferences) (*models.ResolutionResult, error) {
	prefs = c.withDefaults(prefs)

	ctx, span := c.tracer.Start(ctx, "resolve", trace.WithAttributes(
		attribute.String("asset_class", string(class)),
		attribute.String("query", query.String()),
	))
	defer span.End()

	result, err := c.resolve(ctx, query, class, prefs)
	c.record(span, class, err)
	if err != nil {
		c.logFailure(err, logrus.Fields{"query": query.String(), "class": class})
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"query":   query.String(),
		"class":   class,
		"show_id": result.ShowID,
		"url":     result.URL,
	}).Debug("Artwork resolved")

	return result, nil
}

// ResolvePage returns the best image linked from a torrent page description
func (c *ResolveController) ResolvePage(ctx context.Context, pageURL string, prefs models.ScoringPreferences) (*models.ResolutionResult, error) {
	prefs = c.withDefaults(prefs)

	ctx, span := c.tracer.Start(ctx, "resolve_page")
	defer span.End()

	result, err := c.resolvePage(ctx, pageURL, prefs)
	c.record(span, models.AssetTorrentArt, err)
	if err != nil {
		c.logFailure(err, logrus.Fields{"url": pageURL})
		return nil, err
	}
	return result, nil
}

func (c *ResolveController) resolve(ctx context.Context, query models.ShowQuery, class models.AssetClass, prefs models.ScoringPreferences) (*models.ResolutionResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if _, err := models.ParseAssetClass(string(class)); err != nil {
		return nil, err
	}

	result, err := c.resolveSource(ctx, query, class, prefs)
	if err != nil && class == models.AssetPoster && !query.ByID() && errors.Is(err, models.ErrNotFound) {
		return c.fallbackPoster(ctx, query.Name, prefs, err)
	}
	return result, err
}

func (c *ResolveController) resolveSource(ctx context.Context, query models.ShowQuery, class models.AssetClass, prefs models.ScoringPreferences) (*models.ResolutionResult, error) {
	var (
		showID     int64
		candidates []models.ArtworkCandidate
		err        error
	)
	if class == models.AssetFanart && !query.ByID() {
		showID, candidates, err = c.fanartByName(ctx, query.Name, query.Year)
	} else {
		showID, candidates, err = c.showArtwork(ctx, query, class)
	}
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("show %d: %w", showID, models.ErrNoArtwork)
	}

	best, err := utils.SelectBestArtwork(candidates, prefs)
	if err != nil {
		return nil, fmt.Errorf("show %d: %w", showID, err)
	}

	return &models.ResolutionResult{
		URL:       best.URL,
		ShowID:    showID,
		Candidate: &best,
	}, nil
}

// showArtwork lists the artwork of the single show the query points at
func (c *ResolveController) showArtwork(ctx context.Context, query models.ShowQuery, class models.AssetClass) (int64, []models.ArtworkCandidate, error) {
	showID := query.ID
	if !query.ByID() {
		shows, err := c.findShows(ctx, c.source.SearchByName, query.Name, query.Year)
		if err != nil {
			return 0, nil, err
		}
		showID = shows[0].ID
	}

	var candidates []models.ArtworkCandidate
	if class == models.AssetPoster && query.Season != nil {
		var err error
		if candidates, err = c.seasonPosters(ctx, showID, *query.Season); err != nil {
			return 0, nil, err
		}
	}

	if len(candidates) == 0 {
		var err error
		if candidates, err = c.source.ListArtwork(ctx, showID, class); err != nil {
			return 0, nil, fmt.Errorf("failed to list artwork: %w", err)
		}
	}

	return showID, candidates, nil
}

// fanartByName walks the ranked series results, then the movie results, and stops at
// the first show with fanart. Each walk is capped at fanartDepth shows.
func (c *ResolveController) fanartByName(ctx context.Context, name string, year int) (int64, []models.ArtworkCandidate, error) {
	series, err := c.findShows(ctx, c.source.SearchByName, name, year)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return 0, nil, err
	}

	listSeries := func(ctx context.Context, id int64) ([]models.ArtworkCandidate, error) {
		return c.source.ListArtwork(ctx, id, models.AssetFanart)
	}
	if showID, candidates, err := c.walkFanart(ctx, series, listSeries); err != nil || len(candidates) > 0 {
		return showID, candidates, err
	}

	movies, err := c.findShows(ctx, c.source.SearchMovies, name, year)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return 0, nil, err
	}
	if showID, candidates, err := c.walkFanart(ctx, movies, c.source.ListMovieFanart); err != nil || len(candidates) > 0 {
		return showID, candidates, err
	}

	switch {
	case len(series) > 0:
		return series[0].ID, nil, nil
	case len(movies) > 0:
		return movies[0].ID, nil, nil
	default:
		return 0, nil, fmt.Errorf("%w: no show matches %q", models.ErrNotFound, name)
	}
}

type listFunc func(ctx context.Context, id int64) ([]models.ArtworkCandidate, error)

func (c *ResolveController) walkFanart(ctx context.Context, shows []models.Show, list listFunc) (int64, []models.ArtworkCandidate, error) {
	for i, show := range shows {
		if i == c.fanartDepth {
			break
		}

		candidates, err := list(ctx, show.ID)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, nil, fmt.Errorf("failed to list artwork: %w", err)
		}
		if len(candidates) > 0 {
			c.logger.WithFields(logrus.Fields{
				"show_id": show.ID,
				"title":   show.Name,
				"kind":    show.Kind,
				"rank":    i,
			}).Debug("Found fanart")
			return show.ID, candidates, nil
		}
	}
	return 0, nil, nil
}

type searchFunc func(ctx context.Context, name string, year int) ([]models.Show, error)

// findShows searches by name and ranks the results by the title matching policy, best
// first. A search narrowed by year that finds nothing is repeated without the year.
func (c *ResolveController) findShows(ctx context.Context, search searchFunc, name string, year int) ([]models.Show, error) {
	shows, err := search(ctx, name, year)
	if err != nil {
		return nil, fmt.Errorf("failed to search for %q: %w", name, err)
	}

	if len(shows) == 0 && year > 0 {
		c.logger.WithFields(logrus.Fields{
			"name": name,
			"year": year,
		}).Debug("No results with year, searching by name only")

		if shows, err = search(ctx, name, 0); err != nil {
			return nil, fmt.Errorf("failed to search for %q: %w", name, err)
		}
	}

	if len(shows) == 0 {
		return nil, fmt.Errorf("%w: no show matches %q", models.ErrNotFound, name)
	}

	ranked := rankShows(shows, name, year, c.maxDistance)

	c.logger.WithFields(logrus.Fields{
		"name":    name,
		"year":    year,
		"show_id": ranked[0].ID,
		"title":   ranked[0].Name,
		"results": len(shows),
	}).Debug("Matched show")

	return ranked, nil
}

// fallbackPoster asks the poster fallback once the source found no show or no poster.
// cause is returned unchanged when the fallback has nothing either.
func (c *ResolveController) fallbackPoster(ctx context.Context, title string, prefs models.ScoringPreferences, cause error) (*models.ResolutionResult, error) {
	if c.fallback == nil {
		return nil, cause
	}

	candidates, err := c.fallback.FallbackPosters(ctx, title)
	if errors.Is(err, models.ErrNotFound) {
		return nil, cause
	}
	if err != nil {
		return nil, fmt.Errorf("poster fallback failed: %w", err)
	}
	if len(candidates) == 0 {
		return nil, cause
	}

	best, err := utils.SelectBestArtwork(candidates, prefs)
	if err != nil {
		return nil, cause
	}

	c.logger.WithFields(logrus.Fields{
		"name":  title,
		"url":   best.URL,
		"cause": cause.Error(),
	}).Info("Using fallback poster")

	return &models.ResolutionResult{URL: best.URL, Candidate: &best}, nil
}

// seasonPosters returns the posters of the official season number, or nothing when the
// season or its posters are missing so the caller can fall back to series posters
func (c *ResolveController) seasonPosters(ctx context.Context, showID int64, number int) ([]models.ArtworkCandidate, error) {
	show, err := c.source.LookupByID(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up show: %w", err)
	}

	for _, season := range show.Seasons {
		if season.Number != number || !season.Official {
			continue
		}

		candidates, err := c.source.ListSeasonArtwork(ctx, season.ID)
		if errors.Is(err, models.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list season %d artwork: %w", number, err)
		}
		return candidates, nil
	}

	c.logger.WithFields(logrus.Fields{
		"show_id": showID,
		"season":  number,
	}).Debug("No season posters, using series posters")

	return nil, nil
}

func (c *ResolveController) resolvePage(ctx context.Context, pageURL string, prefs models.ScoringPreferences) (*models.ResolutionResult, error) {
	if c.pages == nil {
		return nil, fmt.Errorf("%w: torrent pages are not supported", models.ErrInvalidRequest)
	}

	candidates, err := c.pages.PageArtwork(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to scan torrent page: %w", err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("torrent page: %w", models.ErrNoArtwork)
	}

	best, err := utils.SelectBestArtwork(candidates, prefs)
	if err != nil {
		return nil, fmt.Errorf("torrent page: %w", err)
	}

	return &models.ResolutionResult{URL: best.URL, Candidate: &best}, nil
}

func (c *ResolveController) withDefaults(prefs models.ScoringPreferences) models.ScoringPreferences {
	prefs.Language = utils.NormalizeLanguage(prefs.Language)
	if prefs.Language == "" {
		prefs.Language = c.defaultLanguage
	}
	return prefs
}

func (c *ResolveController) record(span trace.Span, class models.AssetClass, err error) {
	outcome := Outcome(err)
	c.metrics.Resolutions.WithLabelValues(string(class), outcome).Inc()

	span.SetAttributes(attribute.String("outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// logFailure logs expected misses quietly and everything else as a warning
func (c *ResolveController) logFailure(err error, fields logrus.Fields) {
	entry := c.logger.WithFields(fields).WithError(err)
	switch Outcome(err) {
	case OutcomeNotFound, OutcomeNoCandidates, OutcomeInvalidRequest:
		entry.Info("Artwork not resolved")
	default:
		entry.Warn("Artwork resolution failed")
	}
}
