package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/amaumene/mona/internal/config"
	"github.com/amaumene/mona/internal/models"
	"github.com/amaumene/mona/internal/utils"
	"github.com/spf13/cobra"
)

type resolveOptions struct {
	id            int64
	name          string
	release       string
	year          int
	season        int
	lang          string
	minResolution string
	pageURL       string
}

func newResolveCommand() *cobra.Command {
	var opts resolveOptions

	cmd := &cobra.Command{
		Use:   "resolve <poster|fanart|torrent-art>",
		Short: "Resolve a single artwork URL and print it",
		Example: `  mona resolve poster --name "Breaking Bad" --year 2008
  mona resolve poster --id 81189 --season 2
  mona resolve poster --query "[SubsPlease] Frieren - 05 (1080p).mkv"
  mona resolve torrent-art --url https://nyaa.si/view/1234`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolveOnce(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&opts.id, "id", 0, "TVDB series id")
	flags.StringVar(&opts.name, "name", "", "show name")
	flags.StringVar(&opts.release, "query", "", "release file name to parse for name, year and season")
	flags.IntVar(&opts.year, "year", 0, "first-aired year hint")
	flags.IntVar(&opts.season, "season", -1, "season number (posters only)")
	flags.StringVar(&opts.lang, "lang", "", "preferred artwork language")
	flags.StringVar(&opts.minResolution, "min-resolution", "", "minimum resolution as WIDTHxHEIGHT")
	flags.StringVar(&opts.pageURL, "url", "", "torrent page to scan (torrent-art only)")

	return cmd
}

func resolveOnce(ctx context.Context, out io.Writer, className string, opts resolveOptions) error {
	class, err := models.ParseAssetClass(className)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// stdout carries the result only
	logger := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.SetOutput(os.Stderr)

	app, cleanup, err := initializeApp(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup()

	prefs := models.ScoringPreferences{Language: opts.lang}
	if prefs.Language == "" {
		prefs.Language = cfg.DefaultLanguage
	}
	if opts.minResolution != "" {
		floor, err := models.ParseResolution(opts.minResolution)
		if err != nil {
			return err
		}
		prefs.MinResolution = &floor
	}

	var result *models.ResolutionResult
	if opts.pageURL != "" {
		if class != models.AssetTorrentArt {
			return fmt.Errorf("%w: --url is only supported for torrent-art", models.ErrInvalidRequest)
		}
		result, err = app.resolver.ResolvePage(ctx, opts.pageURL, prefs)
	} else {
		var query models.ShowQuery
		if query, err = showQuery(class, opts); err != nil {
			return err
		}
		result, err = app.resolver.Resolve(ctx, query, class, prefs)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out, result.URL)
	return nil
}

// showQuery builds the query from flags. --query fills name, year and season from a
// release name; explicit --year and --season still win.
func showQuery(class models.AssetClass, opts resolveOptions) (models.ShowQuery, error) {
	query := models.ShowQuery{ID: opts.id, Name: opts.name, Year: opts.year}

	if opts.release != "" {
		if opts.id != 0 || opts.name != "" {
			return models.ShowQuery{}, fmt.Errorf("%w: --query cannot be combined with --id or --name", models.ErrInvalidRequest)
		}
		parsed, err := utils.ParseRelease(opts.release)
		if err != nil {
			return models.ShowQuery{}, err
		}
		query = parsed
		if opts.year > 0 {
			query.Year = opts.year
		}
		if class != models.AssetPoster {
			query.Season = nil
		}
	}

	if opts.season >= 0 {
		query.Season = &opts.season
	}
	return query, nil
}
