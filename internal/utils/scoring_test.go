package utils

import (
	"errors"
	"testing"

	"github.com/amaumene/mona/internal/models"
)

func votes(n int) *int { return &n }

func candidate(url, lang string, w, h int, v *int) models.ArtworkCandidate {
	return models.ArtworkCandidate{
		Class:      models.AssetPoster,
		URL:        url,
		Language:   lang,
		Resolution: models.Resolution{Width: w, Height: h},
		Votes:      v,
	}
}

func TestSelectBestArtworkLanguagePriority(t *testing.T) {
	candidates := []models.ArtworkCandidate{
		candidate("https://img/de.jpg", "deu", 1920, 1080, nil),
		candidate("https://img/en.jpg", "eng", 100, 100, nil),
	}

	best, err := SelectBestArtwork(candidates, models.ScoringPreferences{Language: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best.URL != "https://img/en.jpg" {
		t.Errorf("Expected the English candidate despite lower resolution, got %s", best.URL)
	}
}

func TestSelectBestArtworkUnsetLanguageIsNeutral(t *testing.T) {
	candidates := []models.ArtworkCandidate{
		candidate("https://img/jp.jpg", "jpn", 3000, 2000, votes(50)),
		candidate("https://img/none.jpg", "", 680, 1000, nil),
		candidate("https://img/fr.jpg", "fra", 3000, 2000, votes(90)),
	}

	best, err := SelectBestArtwork(candidates, models.ScoringPreferences{Language: "eng"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best.URL != "https://img/none.jpg" {
		t.Errorf("Expected the untagged candidate to beat wrong-language ones, got %s", best.URL)
	}

	// A language match still beats an untagged image
	candidates = append(candidates, candidate("https://img/en.jpg", "eng", 10, 10, nil))
	best, _ = SelectBestArtwork(candidates, models.ScoringPreferences{Language: "eng"})
	if best.URL != "https://img/en.jpg" {
		t.Errorf("Expected the English candidate to beat the untagged one, got %s", best.URL)
	}
}

func TestSelectBestArtworkResolutionTieBreak(t *testing.T) {
	candidates := []models.ArtworkCandidate{
		candidate("https://img/small.jpg", "eng", 640, 480, votes(5)),
		candidate("https://img/large.jpg", "eng", 1920, 1080, votes(5)),
	}

	best, err := SelectBestArtwork(candidates, models.ScoringPreferences{Language: "eng"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best.URL != "https://img/large.jpg" {
		t.Errorf("Expected 1920x1080 candidate, got %s", best.URL)
	}
}

func TestSelectBestArtworkUnknownResolutionRanksLast(t *testing.T) {
	candidates := []models.ArtworkCandidate{
		candidate("https://img/unknown.jpg", "eng", 0, 0, votes(1000)),
		candidate("https://img/tiny.jpg", "eng", 10, 10, nil),
	}

	best, _ := SelectBestArtwork(candidates, models.ScoringPreferences{Language: "eng"})
	if best.URL != "https://img/tiny.jpg" {
		t.Errorf("Expected the candidate with known resolution, got %s", best.URL)
	}
}

func TestSelectBestArtworkVoteTieBreak(t *testing.T) {
	candidates := []models.ArtworkCandidate{
		candidate("https://img/missing.jpg", "eng", 680, 1000, nil),
		candidate("https://img/low.jpg", "eng", 680, 1000, votes(3)),
		candidate("https://img/high.jpg", "eng", 680, 1000, votes(12)),
	}

	best, _ := SelectBestArtwork(candidates, models.ScoringPreferences{Language: "eng"})
	if best.URL != "https://img/high.jpg" {
		t.Errorf("Expected the most voted candidate, got %s", best.URL)
	}

	// Missing votes count as zero, so an explicit negative score loses to them
	candidates = []models.ArtworkCandidate{
		candidate("https://img/negative.jpg", "eng", 680, 1000, votes(-2)),
		candidate("https://img/missing.jpg", "eng", 680, 1000, nil),
	}
	best, _ = SelectBestArtwork(candidates, models.ScoringPreferences{Language: "eng"})
	if best.URL != "https://img/missing.jpg" {
		t.Errorf("Expected missing votes to rank as zero, got %s", best.URL)
	}
}

func TestSelectBestArtworkPositionalTieBreak(t *testing.T) {
	candidates := []models.ArtworkCandidate{
		candidate("https://img/first.jpg", "eng", 680, 1000, votes(7)),
		candidate("https://img/second.jpg", "eng", 680, 1000, votes(7)),
		candidate("https://img/third.jpg", "eng", 680, 1000, votes(7)),
	}

	for i := 0; i < 50; i++ {
		best, err := SelectBestArtwork(candidates, models.ScoringPreferences{Language: "eng"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if best.URL != "https://img/first.jpg" {
			t.Fatalf("Run %d: expected first candidate, got %s", i, best.URL)
		}
	}
}

func TestSelectBestArtworkDeterministic(t *testing.T) {
	candidates := []models.ArtworkCandidate{
		candidate("https://img/a.jpg", "", 1000, 1500, votes(4)),
		candidate("https://img/b.jpg", "kor", 2000, 3000, votes(9)),
		candidate("https://img/c.jpg", "", 1000, 1500, votes(4)),
		candidate("https://img/d.jpg", "", 0, 0, nil),
	}
	prefs := models.ScoringPreferences{Language: "eng"}

	first, err := SelectBestArtwork(candidates, prefs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 50; i++ {
		got, _ := SelectBestArtwork(candidates, prefs)
		if got.URL != first.URL {
			t.Fatalf("Run %d: got %s, first run picked %s", i, got.URL, first.URL)
		}
	}
	if first.URL != "https://img/a.jpg" {
		t.Errorf("Expected a.jpg, got %s", first.URL)
	}
}

func TestSelectBestArtworkMinimumResolution(t *testing.T) {
	candidates := []models.ArtworkCandidate{
		candidate("https://img/small.jpg", "eng", 640, 480, nil),
		candidate("https://img/medium.jpg", "deu", 1280, 720, nil),
		candidate("https://img/unknown.jpg", "eng", 0, 0, nil),
	}

	floor := models.Resolution{Width: 1000, Height: 700}
	best, err := SelectBestArtwork(candidates, models.ScoringPreferences{Language: "eng", MinResolution: &floor})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best.URL != "https://img/medium.jpg" {
		t.Errorf("Expected the only candidate above the floor, got %s", best.URL)
	}

	floor = models.Resolution{Width: 3840, Height: 2160}
	_, err = SelectBestArtwork(candidates, models.ScoringPreferences{Language: "eng", MinResolution: &floor})
	if !errors.Is(err, models.ErrNoCandidates) {
		t.Fatalf("Expected ErrNoCandidates, got %v", err)
	}
	if errors.Is(err, models.ErrNotFound) {
		t.Errorf("ErrNoCandidates must not be reported as not found")
	}
}

func TestSelectBestArtworkEmptyInput(t *testing.T) {
	_, err := SelectBestArtwork(nil, models.ScoringPreferences{Language: "eng"})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for an empty list, got %v", err)
	}
	if errors.Is(err, models.ErrNoCandidates) {
		t.Errorf("An empty upstream list must not be reported as ErrNoCandidates")
	}
}

func TestRankArtworkDoesNotMutateInput(t *testing.T) {
	candidates := []models.ArtworkCandidate{
		candidate("https://img/low.jpg", "eng", 10, 10, nil),
		candidate("https://img/high.jpg", "eng", 100, 100, nil),
	}

	ranked := RankArtwork(candidates, "eng")
	if ranked[0].URL != "https://img/high.jpg" {
		t.Errorf("Expected high.jpg first, got %s", ranked[0].URL)
	}
	if candidates[0].URL != "https://img/low.jpg" {
		t.Errorf("Input slice was reordered")
	}
}
