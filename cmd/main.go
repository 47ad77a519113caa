package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/okian/aptrank/internal/adapters/export"
	"github.com/okian/aptrank/internal/adapters/geocode"
	"github.com/okian/aptrank/internal/adapters/repository"
	"github.com/okian/aptrank/internal/adapters/scrape"
	"github.com/okian/aptrank/internal/adapters/sheet"
	service "github.com/okian/aptrank/internal/app"
	"github.com/okian/aptrank/internal/config"
	"github.com/okian/aptrank/internal/domain/rating"
	"github.com/okian/aptrank/internal/domain/selector"
	"github.com/okian/aptrank/pkg/logger"
	"github.com/spf13/cobra"
)

// cli carries state shared by the subcommands.
type cli struct {
	configPath string
	dbPath     string
	sheetURL   string
	logLevel   string

	// logOut overrides where logs go; compare sends them to a file.
	logOut io.Writer
	cfg    *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:          "aptrank",
		Short:        "Rank apartment listings by pairwise comparison",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML config file (overrides APTRANK_CONFIG)")
	root.PersistentFlags().StringVar(&c.dbPath, "db", "", "SQLite database path; empty keeps state in memory")
	root.PersistentFlags().StringVar(&c.sheetURL, "sheet", "", "Google Sheets share URL, CSV URL or local CSV path")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(serveCmd(c))
	root.AddCommand(compareCmd(c))
	root.AddCommand(rankingsCmd(c))
	root.AddCommand(historyCmd(c))
	root.AddCommand(exportCmd(c))
	root.AddCommand(simulateCmd(c))

	return root
}

// setup loads configuration (defaults -> file -> env -> flags) and
// initializes logging.
func (c *cli) setup(cmd *cobra.Command) error {
	if c.configPath != "" {
		if err := os.Setenv("APTRANK_CONFIG", c.configPath); err != nil {
			return err
		}
	}

	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = c.dbPath
	}
	if flags.Changed("sheet") {
		cfg.SheetURL = c.sheetURL
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	c.cfg = cfg

	out := c.logOut
	if out == nil {
		out = cmd.ErrOrStderr()
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(out)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

// openStore returns the configured persistence collaborator.
func (c *cli) openStore(ctx context.Context) (repository.Store, error) {
	if c.cfg.DBPath == "" {
		return repository.NewMemoryStore(repository.Snapshot{}), nil
	}
	store, err := repository.NewSQLiteStore(ctx, c.cfg.DBPath,
		repository.WithJournalMode(c.cfg.DBJournalMode),
		repository.WithLogger(logger.Named("store")),
	)
	if err != nil {
		return nil, err
	}
	logger.Get().Debug(ctx, "state database opened", logger.String("path", store.Path()))
	return store, nil
}

func (c *cli) loader() (*sheet.Loader, error) {
	if c.cfg.SheetURL == "" {
		return nil, fmt.Errorf("%w: set --sheet or APTRANK_SHEET_URL", service.ErrNoSource)
	}
	return sheet.NewLoader(c.cfg.SheetURL,
		sheet.WithLinkColumn(c.cfg.LinkColumn),
		sheet.WithAddressColumn(c.cfg.AddressColumn),
		sheet.WithUserAgent(c.cfg.UserAgent),
		sheet.WithLogger(logger.Named("sheet")),
	), nil
}

func (c *cli) selector() *selector.Selector {
	seed := c.cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return selector.New(
		selector.WithWindow(c.cfg.RecentWindow),
		selector.WithCoverageThreshold(c.cfg.CoverageThreshold),
		selector.WithRand(rand.New(rand.NewSource(seed))), //nolint:gosec // pair selection is not security sensitive
	)
}

// startService builds and starts the ranking service. withExport attaches the
// rankings CSV writer so every recorded match rewrites it.
func (c *cli) startService(ctx context.Context, withExport bool) (*service.Service, error) {
	strategy, err := selector.ParseStrategy(c.cfg.DefaultStrategy)
	if err != nil {
		return nil, fmt.Errorf("%w: default_strategy: %w", config.ErrInvalidConfig, err)
	}
	src, err := c.loader()
	if err != nil {
		return nil, err
	}
	store, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}

	opts := []service.Option{
		service.WithLogger(logger.Named("service")),
		service.WithStore(store),
		service.WithSource(src),
		service.WithModel(rating.NewModel(rating.WithK(c.cfg.KFactor), rating.WithInitialRating(c.cfg.InitialRating))),
		service.WithSelector(c.selector()),
		service.WithDefaultStrategy(strategy),
	}
	if withExport && c.cfg.RankingsCSV != "" {
		opts = append(opts, service.WithExporter(export.NewWriter(c.cfg.RankingsCSV)))
	}

	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to start service: %w", err)
	}
	return svc, nil
}

func (c *cli) scraper() *scrape.Scraper {
	return scrape.New(
		scrape.WithTimeout(c.cfg.HTTPTimeout()),
		scrape.WithMaxImages(c.cfg.MaxImages),
	)
}

func (c *cli) geocoder(ctx context.Context) *geocode.Client {
	cache := geocode.NewCache(c.cfg.GeocodeCachePath)
	if err := cache.Load(); err != nil {
		logger.Get().Warn(ctx, "geocoding cache unreadable, starting empty", logger.Error(err))
	}

	hints := make([]geocode.AreaHint, 0, len(c.cfg.AreaHints))
	for _, h := range c.cfg.AreaHints {
		hints = append(hints, geocode.AreaHint{Substring: h.Substring, Lat: h.Lat, Lon: h.Lon})
	}

	return geocode.New(
		geocode.WithBaseURL(c.cfg.NominatimURL),
		geocode.WithUserAgent(c.cfg.UserAgent),
		geocode.WithHTTPClient(&http.Client{Timeout: c.cfg.HTTPTimeout()}),
		geocode.WithRate(c.cfg.GeocodeRPS),
		geocode.WithCache(cache),
		geocode.WithAreaHints(hints),
		geocode.WithDefaultCenter(c.cfg.DefaultLat, c.cfg.DefaultLon),
		geocode.WithLogger(logger.Named("geocode")),
	)
}
