package main

import (
	"errors"
	"testing"

	"github.com/amaumene/mona/internal/models"
)

func TestShowQueryFromRelease(t *testing.T) {
	opts := resolveOptions{release: "[HorribleSubs] Shingeki no Kyojin S02E05 [1080p].mkv", season: -1}

	query, err := showQuery(models.AssetPoster, opts)
	if err != nil {
		t.Fatalf("showQuery failed: %v", err)
	}
	if query.Name != "Shingeki no Kyojin" || query.Season == nil || *query.Season != 2 {
		t.Errorf("Unexpected poster query %+v", query)
	}

	query, err = showQuery(models.AssetFanart, opts)
	if err != nil {
		t.Fatalf("showQuery failed: %v", err)
	}
	if query.Season != nil {
		t.Errorf("Expected fanart query without season, got %d", *query.Season)
	}

	opts.season = 3
	opts.year = 2017
	query, err = showQuery(models.AssetPoster, opts)
	if err != nil {
		t.Fatalf("showQuery failed: %v", err)
	}
	if *query.Season != 3 || query.Year != 2017 {
		t.Errorf("Expected explicit flags to win, got %+v", query)
	}
}

func TestShowQueryRejectsMixedFlags(t *testing.T) {
	opts := resolveOptions{release: "Dark.S01E01.mkv", name: "Dark", season: -1}
	if _, err := showQuery(models.AssetPoster, opts); !errors.Is(err, models.ErrInvalidRequest) {
		t.Errorf("Expected ErrInvalidRequest, got %v", err)
	}
}
