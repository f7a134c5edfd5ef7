package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/amaumene/mona/internal/controllers"
	"github.com/amaumene/mona/internal/models"
	"github.com/amaumene/mona/internal/utils"
	"github.com/sirupsen/logrus"
)

// Resolver resolves requests to artwork URLs
type Resolver interface {
	Resolve(ctx context.Context, query models.ShowQuery, class models.AssetClass, prefs models.ScoringPreferences) (*models.ResolutionResult, error)
	ResolvePage(ctx context.Context, pageURL string, prefs models.ScoringPreferences) (*models.ResolutionResult, error)
}

// ArtworkHandler handles the artwork redirect routes
type ArtworkHandler struct {
	resolver        Resolver
	defaultLanguage string
	redirectStatus  int
	logger          *logrus.Logger
}

// NewArtworkHandler creates a new artwork handler
func NewArtworkHandler(resolver Resolver, defaultLanguage string, redirectStatus int, logger *logrus.Logger) *ArtworkHandler {
	return &ArtworkHandler{
		resolver:        resolver,
		defaultLanguage: utils.NormalizeLanguage(defaultLanguage),
		redirectStatus:  redirectStatus,
		logger:          logger,
	}
}

// ErrorResponse is the body of every failed artwork request
type ErrorResponse struct {
	Error string `json:"error"`
}

// Poster handles GET /poster
func (h *ArtworkHandler) Poster(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, models.AssetPoster)
}

// Fanart handles GET /fanart
func (h *ArtworkHandler) Fanart(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, models.AssetFanart)
}

// TorrentArt handles GET /torrent-art. With a url parameter the torrent page is
// scanned instead of TVDB.
func (h *ArtworkHandler) TorrentArt(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	pageURL := params.Get("url")
	if pageURL == "" {
		h.serve(w, r, models.AssetTorrentArt)
		return
	}

	prefs, err := h.preferences(params)
	if err != nil {
		h.fail(w, err)
		return
	}

	result, err := h.resolver.ResolvePage(r.Context(), pageURL, prefs)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.redirect(w, r, result)
}

func (h *ArtworkHandler) serve(w http.ResponseWriter, r *http.Request, class models.AssetClass) {
	params := r.URL.Query()

	query, err := parseShowQuery(params, class)
	if err != nil {
		h.fail(w, err)
		return
	}

	prefs, err := h.preferences(params)
	if err != nil {
		h.fail(w, err)
		return
	}

	result, err := h.resolver.Resolve(r.Context(), query, class, prefs)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.redirect(w, r, result)
}

func (h *ArtworkHandler) redirect(w http.ResponseWriter, r *http.Request, result *models.ResolutionResult) {
	if result.Cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	http.Redirect(w, r, result.URL, h.redirectStatus)
}

// fail maps the error taxonomy onto HTTP statuses
func (h *ArtworkHandler) fail(w http.ResponseWriter, err error) {
	var status int
	message := err.Error()

	switch controllers.Outcome(err) {
	case controllers.OutcomeInvalidRequest:
		status = http.StatusBadRequest
	case controllers.OutcomeNotFound, controllers.OutcomeNoCandidates:
		status = http.StatusNotFound
	case controllers.OutcomeRateLimited:
		status = http.StatusTooManyRequests
		if wait := models.RetryAfter(err); wait > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		}
	default:
		status = http.StatusBadGateway
		message = "upstream provider error"
	}

	writeJSON(w, status, ErrorResponse{Error: message})
}

func (h *ArtworkHandler) preferences(params url.Values) (models.ScoringPreferences, error) {
	prefs := models.ScoringPreferences{
		Language: utils.NormalizeLanguage(params.Get("lang")),
	}
	if prefs.Language == "" {
		prefs.Language = h.defaultLanguage
	}

	if raw := params.Get("min_resolution"); raw != "" {
		floor, err := models.ParseResolution(raw)
		if err != nil {
			return prefs, err
		}
		prefs.MinResolution = &floor
	}

	return prefs, nil
}

// parseShowQuery reads id, name (+ year, season) or a release file name from params.
// Exactly one of id, name and query may be given.
func parseShowQuery(params url.Values, class models.AssetClass) (models.ShowQuery, error) {
	if release := strings.TrimSpace(params.Get("query")); release != "" {
		if params.Get("id") != "" || params.Get("name") != "" {
			return models.ShowQuery{}, fmt.Errorf("%w: query cannot be combined with id or name", models.ErrInvalidRequest)
		}
		query, err := utils.ParseRelease(release)
		if err != nil {
			return query, err
		}
		// Season numbers in file names only matter for posters
		if class != models.AssetPoster {
			query.Season = nil
		}
		return query, nil
	}

	query := models.ShowQuery{Name: strings.TrimSpace(params.Get("name"))}

	if raw := params.Get("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return query, fmt.Errorf("%w: id must be a positive integer", models.ErrInvalidRequest)
		}
		query.ID = id
	}

	if raw := params.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year <= 0 {
			return query, fmt.Errorf("%w: year must be a positive integer", models.ErrInvalidRequest)
		}
		query.Year = year
	}

	if raw := params.Get("season"); raw != "" {
		if class != models.AssetPoster {
			return query, fmt.Errorf("%w: season is only supported for posters", models.ErrInvalidRequest)
		}
		season, err := strconv.Atoi(raw)
		if err != nil || season < 0 {
			return query, fmt.Errorf("%w: season must be a non-negative integer", models.ErrInvalidRequest)
		}
		query.Season = &season
	}

	if err := query.Validate(); err != nil {
		return query, err
	}
	return query, nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
