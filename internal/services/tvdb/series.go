package tvdb

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/amaumene/mona/internal/models"
	"github.com/amaumene/mona/internal/utils"
)

// LookupByID fetches the extended series record, including its season list
func (c *Client) LookupByID(ctx context.Context, id int64) (*models.Show, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: series id must be positive", models.ErrInvalidRequest)
	}

	var resp envelope[seriesRecord]
	if err := c.getJSON(ctx, "series", fmt.Sprintf("/series/%d/extended", id), nil, &resp); err != nil {
		return nil, fmt.Errorf("lookup of series %d failed: %w", id, err)
	}
	if resp.Data.ID == 0 {
		return nil, fmt.Errorf("%w: series %d response carried no record", models.ErrUpstream, id)
	}

	show := resp.Data.toShow()
	show.Artworks = toCandidates(resp.Data.Artworks, 0, "")
	return &show, nil
}

// ListArtwork returns the series artwork of the given class in upstream order.
// Entries without a usable URL are dropped.
func (c *Client) ListArtwork(ctx context.Context, showID int64, class models.AssetClass) ([]models.ArtworkCandidate, error) {
	artType, ok := artworkTypes[class]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported asset class %q", models.ErrInvalidRequest, class)
	}

	params := url.Values{}
	params.Set("type", strconv.Itoa(artType))

	var resp envelope[seriesRecord]
	if err := c.getJSON(ctx, "artworks", fmt.Sprintf("/series/%d/artworks", showID), params, &resp); err != nil {
		return nil, fmt.Errorf("listing %s artwork of series %d failed: %w", class, showID, err)
	}

	return toCandidates(resp.Data.Artworks, artType, class), nil
}

// ListSeasonArtwork returns the posters of a single season
func (c *Client) ListSeasonArtwork(ctx context.Context, seasonID int64) ([]models.ArtworkCandidate, error) {
	var resp envelope[seasonRecord]
	if err := c.getJSON(ctx, "season", fmt.Sprintf("/seasons/%d/extended", seasonID), nil, &resp); err != nil {
		return nil, fmt.Errorf("listing artwork of season %d failed: %w", seasonID, err)
	}

	return toCandidates(resp.Data.Artwork, artworkTypeSeasonPoster, models.AssetPoster), nil
}

// ListMovieFanart returns the background artwork of a movie
func (c *Client) ListMovieFanart(ctx context.Context, movieID int64) ([]models.ArtworkCandidate, error) {
	var resp envelope[seriesRecord]
	if err := c.getJSON(ctx, "movie", fmt.Sprintf("/movies/%d/extended", movieID), nil, &resp); err != nil {
		return nil, fmt.Errorf("listing fanart of movie %d failed: %w", movieID, err)
	}

	return toCandidates(resp.Data.Artworks, artworkTypeMovieFanart, models.AssetFanart), nil
}

// toCandidates converts wire artwork to candidates. A zero artType keeps every
// known type and derives the class from it.
func toCandidates(artworks []artwork, artType int, class models.AssetClass) []models.ArtworkCandidate {
	candidates := make([]models.ArtworkCandidate, 0, len(artworks))
	for _, a := range artworks {
		if artType != 0 && a.Type != artType {
			continue
		}

		itemClass := class
		if artType == 0 {
			derived, known := classOf(a.Type)
			if !known {
				continue
			}
			itemClass = derived
		}

		imageURL, ok := artworkURL(a.Image)
		if !ok {
			continue
		}

		candidate := models.ArtworkCandidate{
			Class:      itemClass,
			URL:        imageURL,
			Language:   utils.NormalizeLanguage(a.Language),
			Resolution: models.Resolution{Width: a.Width, Height: a.Height},
		}
		if a.Score != nil {
			votes := int(math.Round(*a.Score))
			candidate.Votes = &votes
		}
		candidates = append(candidates, candidate)
	}
	return candidates
}

func classOf(artType int) (models.AssetClass, bool) {
	for class, t := range artworkTypes {
		if t == artType {
			return class, true
		}
	}
	return "", false
}
