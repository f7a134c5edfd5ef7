package tvdb

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/amaumene/mona/internal/models"
)

// envelope is the wrapper every TVDB v4 response uses
type envelope[T any] struct {
	Status  string `json:"status"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

// looseString accepts JSON strings, numbers and null.
// TVDB is not consistent about quoting ids and years.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = looseString(n.String())
	return nil
}

// loginRequest is the request body for TVDB authentication
type loginRequest struct {
	APIKey string `json:"apikey"`
	Pin    string `json:"pin,omitempty"`
}

type loginData struct {
	Token string `json:"token"`
}

// searchResult is a search hit from GET /search
type searchResult struct {
	ObjectID     looseString       `json:"objectID"`
	ID           looseString       `json:"id"`
	TVDBID       looseString       `json:"tvdb_id"`
	Name         string            `json:"name"`
	Slug         string            `json:"slug"`
	Type         string            `json:"type"`
	Year         looseString       `json:"year"`
	ImageURL     string            `json:"image_url"`
	Aliases      []string          `json:"aliases"`
	Translations map[string]string `json:"translations"`
}

// seriesRecord is the payload of /series/{id}/extended and /series/{id}/artworks.
// /movies/{id}/extended shares the fields used here.
type seriesRecord struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Slug     string          `json:"slug"`
	Image    string          `json:"image"`
	Year     looseString     `json:"year"`
	Aliases  []alias         `json:"aliases"`
	Artworks []artwork       `json:"artworks"`
	Seasons  []seasonSummary `json:"seasons"`
}

type alias struct {
	Language string `json:"language"`
	Name     string `json:"name"`
}

type artwork struct {
	ID        int64    `json:"id"`
	Image     string   `json:"image"`
	Thumbnail string   `json:"thumbnail"`
	Language  string   `json:"language"`
	Type      int      `json:"type"`
	Score     *float64 `json:"score"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
}

type seasonSummary struct {
	ID     int64 `json:"id"`
	Number int   `json:"number"`
	Type   struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"type"`
}

// seasonRecord is the payload of /seasons/{id}/extended
type seasonRecord struct {
	ID      int64     `json:"id"`
	Number  int       `json:"number"`
	Artwork []artwork `json:"artwork"`
}

// parseID extracts the numeric id from values like "81189" or "series-81189"
func parseID(raw looseString) (int64, bool) {
	s := string(raw)
	if i := strings.LastIndexByte(s, '-'); i >= 0 {
		s = s[i+1:]
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseYear(raw looseString) int {
	s := string(raw)
	if len(s) > 4 {
		s = s[:4]
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return year
}

func (r searchResult) toShow(kind models.ShowKind) (models.Show, bool) {
	var id int64
	var ok bool
	for _, raw := range []looseString{r.TVDBID, r.ID, r.ObjectID} {
		if id, ok = parseID(raw); ok {
			break
		}
	}
	if !ok {
		return models.Show{}, false
	}

	return models.Show{
		ID:           id,
		Kind:         kind,
		Name:         r.Name,
		Slug:         r.Slug,
		Year:         parseYear(r.Year),
		ImageURL:     r.ImageURL,
		Aliases:      r.Aliases,
		Translations: sortedValues(r.Translations),
	}, true
}

func (r seriesRecord) toShow() models.Show {
	show := models.Show{
		ID:       r.ID,
		Kind:     models.KindSeries,
		Name:     r.Name,
		Slug:     r.Slug,
		Year:     parseYear(r.Year),
		ImageURL: r.Image,
	}
	for _, a := range r.Aliases {
		if a.Name != "" {
			show.Aliases = append(show.Aliases, a.Name)
		}
	}
	for _, s := range r.Seasons {
		show.Seasons = append(show.Seasons, models.Season{
			ID:       s.ID,
			Number:   s.Number,
			Official: s.Type.Type == "" || s.Type.Type == "official",
		})
	}
	return show
}

// sortedValues returns map values ordered by key so matching is deterministic
func sortedValues(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]string, 0, len(keys))
	for _, k := range keys {
		if m[k] != "" {
			values = append(values, m[k])
		}
	}
	return values
}
