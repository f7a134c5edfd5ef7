package models

import (
	"fmt"
	"strings"
)

// ShowQuery identifies the target show, either by TVDB series id or by name (+ year)
type ShowQuery struct {
	ID   int64
	Name string
	Year int // 0 when no year hint

	// Season is only honoured for posters; nil means the series poster
	Season *int
}

// Validate enforces that exactly one identification mode is active
func (q ShowQuery) Validate() error {
	hasID := q.ID != 0
	hasName := strings.TrimSpace(q.Name) != ""

	switch {
	case hasID && hasName:
		return fmt.Errorf("%w: give either a show id or a name, not both", ErrInvalidRequest)
	case !hasID && !hasName:
		return fmt.Errorf("%w: a show id or a name is required", ErrInvalidRequest)
	case q.ID < 0:
		return fmt.Errorf("%w: show id must be positive", ErrInvalidRequest)
	case q.Year < 0:
		return fmt.Errorf("%w: year must be positive", ErrInvalidRequest)
	case q.Season != nil && *q.Season < 0:
		return fmt.Errorf("%w: season must not be negative", ErrInvalidRequest)
	}
	return nil
}

// ByID reports whether the query carries an explicit identifier
func (q ShowQuery) ByID() bool {
	return q.ID != 0
}

func (q ShowQuery) String() string {
	var b strings.Builder
	if q.ByID() {
		fmt.Fprintf(&b, "id=%d", q.ID)
	} else {
		fmt.Fprintf(&b, "name=%q", q.Name)
		if q.Year > 0 {
			fmt.Fprintf(&b, " year=%d", q.Year)
		}
	}
	if q.Season != nil {
		fmt.Fprintf(&b, " season=%d", *q.Season)
	}
	return b.String()
}

// ShowKind tells series and movies apart; the zero value is a series
type ShowKind string

const (
	KindSeries ShowKind = "series"
	KindMovie  ShowKind = "movie"
)

// Show is a series or movie as known to the upstream provider
type Show struct {
	ID       int64
	Kind     ShowKind
	Name     string
	Slug     string
	Year     int
	ImageURL string

	// Aliases and Translations are alternative titles used for matching
	Aliases      []string
	Translations []string

	Seasons  []Season
	Artworks []ArtworkCandidate
}

// Titles returns every title the show is known by, primary name first
func (s Show) Titles() []string {
	titles := make([]string, 0, 1+len(s.Aliases)+len(s.Translations))
	if s.Name != "" {
		titles = append(titles, s.Name)
	}
	titles = append(titles, s.Translations...)
	titles = append(titles, s.Aliases...)
	return titles
}

// IsMovie reports whether the show is a movie rather than a series
func (s Show) IsMovie() bool {
	return s.Kind == KindMovie
}

// Season is a season entry of a series
type Season struct {
	ID       int64
	Number   int
	Official bool
}
