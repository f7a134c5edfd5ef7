package controllers

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/amaumene/mona/internal/models"
	"golang.org/x/text/cases"
)

// matchShow picks the search result that best fits the requested title. shows must not be empty.
//
// Priority:
// 1. Titles equal to name ignoring case (name, translations, aliases), within maxDistance edits
// 2. Among those, or among all results when none matched, the first with the hinted year
// 3. Otherwise the first result in upstream order
func matchShow(shows []models.Show, name string, year, maxDistance int) models.Show {
	// A Caser keeps state, so each call gets its own
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(name))

	var exact []models.Show
	for _, show := range shows {
		for _, title := range show.Titles() {
			if titleMatches(fold.String(strings.TrimSpace(title)), want, maxDistance) {
				exact = append(exact, show)
				break
			}
		}
	}

	pool := exact
	if len(pool) == 0 {
		pool = shows
	}

	if year > 0 {
		for _, show := range pool {
			if show.Year == year {
				return show
			}
		}
	}

	return pool[0]
}

func titleMatches(title, want string, maxDistance int) bool {
	if title == "" {
		return false
	}
	if title == want {
		return true
	}
	return maxDistance > 0 && levenshtein.ComputeDistance(title, want) <= maxDistance
}

// rankShows orders search results for trying one after another: the matchShow pick
// first, then the rest in upstream order
func rankShows(shows []models.Show, name string, year, maxDistance int) []models.Show {
	best := matchShow(shows, name, year, maxDistance)

	ranked := make([]models.Show, 0, len(shows))
	ranked = append(ranked, best)
	for _, show := range shows {
		if show.ID != best.ID {
			ranked = append(ranked, show)
		}
	}
	return ranked
}
