package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/amaumene/mona/internal/models"
	"github.com/nssteinbrenner/anitogo"
)

// ParseRelease turns a release file name such as
// "[Group] Title (2008) - 01 [1080p].mkv" into a name query with the year and
// season the file name carries.
func ParseRelease(filename string) (models.ShowQuery, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return models.ShowQuery{}, fmt.Errorf("%w: release name is empty", models.ErrInvalidRequest)
	}

	elements, err := anitogo.Parse(filename, anitogo.DefaultOptions)
	if err != nil {
		return models.ShowQuery{}, fmt.Errorf("%w: cannot parse release name %q: %w", models.ErrInvalidRequest, filename, err)
	}

	title := strings.TrimSpace(elements.AnimeTitle)
	if title == "" {
		return models.ShowQuery{}, fmt.Errorf("%w: no title in release name %q", models.ErrInvalidRequest, filename)
	}

	query := models.ShowQuery{Name: title}
	if year, err := strconv.Atoi(elements.AnimeYear); err == nil && year > 0 {
		query.Year = year
	}
	for _, raw := range elements.AnimeSeason {
		if season, err := strconv.Atoi(raw); err == nil && season >= 0 {
			query.Season = &season
			break
		}
	}

	return query, nil
}
