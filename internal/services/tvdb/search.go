package tvdb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/amaumene/mona/internal/models"
	"github.com/sirupsen/logrus"
)

// SearchByName searches TVDB for series matching name, optionally narrowed by year.
// Results keep upstream order. No match yields an empty slice, not an error.
func (c *Client) SearchByName(ctx context.Context, name string, year int) ([]models.Show, error) {
	return c.search(ctx, name, year, models.KindSeries)
}

// SearchMovies is SearchByName for movies
func (c *Client) SearchMovies(ctx context.Context, name string, year int) ([]models.Show, error) {
	return c.search(ctx, name, year, models.KindMovie)
}

func (c *Client) search(ctx context.Context, name string, year int, kind models.ShowKind) ([]models.Show, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: search query is empty", models.ErrInvalidRequest)
	}

	params := url.Values{}
	params.Set("query", name)
	params.Set("type", string(kind))
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}

	var resp envelope[[]searchResult]
	if err := c.getJSON(ctx, "search", "/search", params, &resp); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return []models.Show{}, nil
		}
		return nil, fmt.Errorf("search for %q failed: %w", name, err)
	}

	shows := make([]models.Show, 0, len(resp.Data))
	for _, r := range resp.Data {
		if r.Type != "" && r.Type != string(kind) {
			continue
		}
		show, ok := r.toShow(kind)
		if !ok {
			c.logger.WithFields(logrus.Fields{
				"name": r.Name,
				"id":   r.ID,
			}).Debug("Skipping search result without a usable id")
			continue
		}
		shows = append(shows, show)
	}

	c.logger.WithFields(logrus.Fields{
		"query":   name,
		"type":    kind,
		"year":    year,
		"results": len(shows),
	}).Debug("TVDB search completed")

	return shows, nil
}
