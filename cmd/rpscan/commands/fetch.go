package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leiwong/rpscan/internal/cache"
	"github.com/leiwong/rpscan/internal/fetch"
	"github.com/leiwong/rpscan/internal/store"
	"github.com/leiwong/rpscan/pkg/config"
	"github.com/leiwong/rpscan/pkg/database"
	"github.com/leiwong/rpscan/pkg/httputil"
	"github.com/leiwong/rpscan/pkg/logger"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Refresh the daily-bar cache from the upstream data service",
	Long: `Fetches the instrument catalog from the exchange listing pages, then
pulls two years of daily front-adjusted bars per instrument into the JSON
cache. With DATABASE_URL set, bars are also mirrored into Postgres.

Example:
  rpscan fetch
  rpscan fetch --workers 16`,
	RunE: runFetch,
}

var fetchWorkers int

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().IntVar(&fetchWorkers, "workers", 0, "worker pool size (default FETCH_WORKERS)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	workers := cfg.FetchWorkers
	if fetchWorkers > 0 {
		workers = fetchWorkers
	}

	fetcher, cleanup, err := newFetcher(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	from, to := fetch.DefaultRange(time.Now())
	results, err := fetcher.RefreshAll(cmd.Context(), fetch.Config{
		Workers: workers,
		From:    from,
		To:      to,
	})
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	fmt.Printf("Refreshed %d instruments (%d failed)\n", len(results)-failed, failed)
	return nil
}

// newFetcher wires the fetch pipeline. The returned cleanup closes the
// optional database pool.
func newFetcher(cfg *config.Config, log *logger.Logger) (*fetch.Fetcher, func(), error) {
	// Two years of daily bars per response; allow slow upstream replies.
	httpClient := httputil.NewWithTimeout(log, time.Minute).
		WithRetry(3, 2*time.Second).
		WithRateLimit(cfg.Data.RatePerSec, cfg.Data.Burst)
	client := fetch.NewClient(httpClient, cfg.Data.BaseURL, log)
	catalog := fetch.NewCatalog(httpClient, cfg.Catalog.BaseURL, log)
	cacheStore := cache.NewStore(cfg.CacheDir, log)

	cleanup := func() {}
	var mirror fetch.BarMirror
	if cfg.Database.Enabled() {
		db, err := database.New(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		mirror = store.NewBarRepository(db.Pool)
		cleanup = db.Close
	}

	return fetch.NewFetcher(client, catalog, cacheStore, mirror, log), cleanup, nil
}
