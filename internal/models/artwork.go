package models

import (
	"fmt"
	"strconv"
	"strings"
)

// AssetClass represents a category of artwork a client can ask for
type AssetClass string

const (
	AssetPoster     AssetClass = "poster"
	AssetFanart     AssetClass = "fanart"
	AssetTorrentArt AssetClass = "torrent-art"
)

// ParseAssetClass converts a route name into an AssetClass
func ParseAssetClass(s string) (AssetClass, error) {
	switch AssetClass(s) {
	case AssetPoster, AssetFanart, AssetTorrentArt:
		return AssetClass(s), nil
	}
	return "", fmt.Errorf("%w: unknown asset class %q", ErrInvalidRequest, s)
}

// Resolution is the pixel size of an image. The zero value means unknown.
type Resolution struct {
	Width  int
	Height int
}

// Known reports whether both dimensions are present
func (r Resolution) Known() bool {
	return r.Width > 0 && r.Height > 0
}

// Area returns width × height, 0 when unknown
func (r Resolution) Area() int64 {
	if !r.Known() {
		return 0
	}
	return int64(r.Width) * int64(r.Height)
}

// Below reports whether r is strictly smaller than floor in either dimension
func (r Resolution) Below(floor Resolution) bool {
	return r.Width < floor.Width || r.Height < floor.Height
}

func (r Resolution) String() string {
	if !r.Known() {
		return "unknown"
	}
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// ParseResolution parses "WIDTHxHEIGHT" (e.g. "1920x1080")
func ParseResolution(s string) (Resolution, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Resolution{}, fmt.Errorf("%w: resolution %q is not WIDTHxHEIGHT", ErrInvalidRequest, s)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return Resolution{}, fmt.Errorf("%w: invalid width in %q", ErrInvalidRequest, s)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return Resolution{}, fmt.Errorf("%w: invalid height in %q", ErrInvalidRequest, s)
	}
	return Resolution{Width: width, Height: height}, nil
}

// ArtworkCandidate is one artwork option returned by the upstream provider.
// Candidates are values scoped to a single resolution and never persisted.
type ArtworkCandidate struct {
	Class AssetClass
	URL   string

	// Language is a normalized ISO 639-3 code; empty means the image carries no language
	Language   string
	Resolution Resolution

	// Votes is nil when the provider sent no score
	Votes *int
}

// VoteCount returns the vote value, treating missing votes as zero
func (c ArtworkCandidate) VoteCount() int {
	if c.Votes == nil {
		return 0
	}
	return *c.Votes
}

// ScoringPreferences holds the request-scoped hints used to rank candidates
type ScoringPreferences struct {
	Language      string
	MinResolution *Resolution
}

// CacheKey renders the preferences as a stable key fragment
func (p ScoringPreferences) CacheKey() string {
	floor := "-"
	if p.MinResolution != nil {
		floor = p.MinResolution.String()
	}
	return p.Language + "|" + floor
}

// ResolutionResult is the outcome of a successful resolution
type ResolutionResult struct {
	URL       string
	ShowID    int64
	Candidate *ArtworkCandidate
	Cached    bool
}
