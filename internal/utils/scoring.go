package utils

import (
	"fmt"
	"sort"

	"github.com/amaumene/mona/internal/models"
)

// Language ranks used by the first stage of the tie-break chain
const (
	languageMismatch = iota
	languageUnset
	languageMatch
)

// SelectBestArtwork picks the single best candidate for the given preferences.
//
// An empty input returns models.ErrNoArtwork. If the minimum resolution filter removes
// every candidate, models.ErrNoCandidates is returned instead so callers can tell the two
// apart.
func SelectBestArtwork(candidates []models.ArtworkCandidate, prefs models.ScoringPreferences) (models.ArtworkCandidate, error) {
	if len(candidates) == 0 {
		return models.ArtworkCandidate{}, models.ErrNoArtwork
	}

	eligible := FilterByResolution(candidates, prefs.MinResolution)
	if len(eligible) == 0 {
		return models.ArtworkCandidate{}, fmt.Errorf("%w: all %d candidates are below %s",
			models.ErrNoCandidates, len(candidates), prefs.MinResolution)
	}

	return RankArtwork(eligible, prefs.Language)[0], nil
}

// FilterByResolution drops candidates strictly below floor. Candidates with unknown
// resolution cannot prove they meet the floor and are dropped as well.
func FilterByResolution(candidates []models.ArtworkCandidate, floor *models.Resolution) []models.ArtworkCandidate {
	if floor == nil {
		return candidates
	}

	filtered := make([]models.ArtworkCandidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.Resolution.Known() || c.Resolution.Below(*floor) {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered
}

// RankArtwork sorts candidates best first:
// 1. Language (preferred > no language > other language)
// 2. Resolution area (unknown resolution last)
// 3. Votes (missing counts as zero)
// 4. Input position (stable sort, first occurrence wins)
func RankArtwork(candidates []models.ArtworkCandidate, preferredLanguage string) []models.ArtworkCandidate {
	sorted := make([]models.ArtworkCandidate, len(candidates))
	copy(sorted, candidates)

	preferred := NormalizeLanguage(preferredLanguage)

	sort.SliceStable(sorted, func(i, j int) bool {
		// PRIORITY 1: language
		langI := languageRank(sorted[i].Language, preferred)
		langJ := languageRank(sorted[j].Language, preferred)
		if langI != langJ {
			return langI > langJ
		}

		// PRIORITY 2: resolution, known beats unknown
		knownI, knownJ := sorted[i].Resolution.Known(), sorted[j].Resolution.Known()
		if knownI != knownJ {
			return knownI
		}
		if areaI, areaJ := sorted[i].Resolution.Area(), sorted[j].Resolution.Area(); areaI != areaJ {
			return areaI > areaJ
		}

		// PRIORITY 3: votes
		return sorted[i].VoteCount() > sorted[j].VoteCount()
	})

	return sorted
}

func languageRank(lang, preferred string) int {
	switch {
	case lang == "":
		return languageUnset
	case lang == preferred:
		return languageMatch
	default:
		return languageMismatch
	}
}
