package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/leiwong/rpscan/internal/cache"
	"github.com/leiwong/rpscan/internal/market"
	"github.com/leiwong/rpscan/pkg/logger"
)

// BarMirror is an optional secondary sink for fetched bars, typically the
// Postgres repository. LatestDate lets the fetcher upsert only bars the
// mirror does not have yet.
type BarMirror interface {
	SaveBatch(ctx context.Context, code string, bars market.Series) error
	LatestDate(ctx context.Context, code string) (time.Time, error)
}

// Fetcher orchestrates the cache refresh: catalog, then one bar request
// per instrument over a bounded worker pool.
type Fetcher struct {
	client  *Client
	catalog *Catalog
	store   *cache.Store
	mirror  BarMirror // nil when no database is configured
	logger  *logger.Logger
}

// Config holds refresh parameters.
type Config struct {
	Workers int
	From    time.Time
	To      time.Time
}

// NewFetcher creates a fetcher. mirror may be nil.
func NewFetcher(client *Client, catalog *Catalog, cacheStore *cache.Store, mirror BarMirror, log *logger.Logger) *Fetcher {
	return &Fetcher{
		client:  client,
		catalog: catalog,
		store:   cacheStore,
		mirror:  mirror,
		logger:  log.WithField("module", "fetcher"),
	}
}

// Result is the outcome of one instrument's refresh.
type Result struct {
	Code     string
	BarCount int
	Err      error
}

// RefreshAll refreshes the cache for every listed instrument. Individual
// failures are collected, not fatal; the catalog being unreachable is.
func (f *Fetcher) RefreshAll(ctx context.Context, cfg Config) ([]Result, error) {
	listings, err := f.catalog.FetchListings(ctx, cfg.To)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	f.logger.WithFields(map[string]interface{}{
		"instruments": len(listings),
		"from":        cfg.From.Format("2006-01-02"),
		"to":          cfg.To.Format("2006-01-02"),
		"workers":     cfg.Workers,
	}).Info("Starting cache refresh")

	listingCh := make(chan Listing, len(listings))
	resultCh := make(chan Result, len(listings))

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for listing := range listingCh {
				resultCh <- f.refreshOne(ctx, listing, cfg.From, cfg.To)
			}
		}()
	}

	for _, listing := range listings {
		listingCh <- listing
	}
	close(listingCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]Result, 0, len(listings))
	success, failed := 0, 0
	for res := range resultCh {
		results = append(results, res)
		if res.Err != nil {
			failed++
		} else {
			success++
		}
	}

	f.logger.WithFields(map[string]interface{}{
		"success": success,
		"failed":  failed,
	}).Info("Cache refresh completed")

	return results, nil
}

// refreshOne fetches, caches and optionally mirrors one instrument.
func (f *Fetcher) refreshOne(ctx context.Context, listing Listing, from, to time.Time) Result {
	code := listing.PrefixedCode()

	records, err := f.client.FetchDailyBars(ctx, code, from, to)
	if err != nil {
		f.logger.WithError(err).WithField("code", code).Warn("Fetch failed")
		return Result{Code: listing.Code, Err: err}
	}
	if len(records) == 0 {
		return Result{Code: listing.Code, Err: fmt.Errorf("no bars returned for %s", code)}
	}

	if err := f.store.Save(listing.Exchange, listing.Code, records); err != nil {
		return Result{Code: listing.Code, Err: err}
	}

	if f.mirror != nil {
		if series, err := f.store.Load(listing.Code); err == nil {
			f.mirrorBars(ctx, code, series)
		}
	}

	return Result{Code: listing.Code, BarCount: len(records)}
}

// mirrorBars upserts the bars the mirror does not have yet, probing its
// latest stored date first. The cache stays authoritative; mirror failures
// only warn.
func (f *Fetcher) mirrorBars(ctx context.Context, code string, series market.Series) {
	if latest, err := f.mirror.LatestDate(ctx, code); err == nil && !latest.IsZero() {
		idx := series.FirstIndexOnOrAfter(latest.AddDate(0, 0, 1))
		if idx < 0 {
			return
		}
		series = series[idx:]
	}
	if len(series) == 0 {
		return
	}

	if err := f.mirror.SaveBatch(ctx, code, series); err != nil {
		f.logger.WithError(err).WithField("code", code).Warn("Mirror write failed")
	}
}

// DefaultRange returns the standard refresh window: two years of history
// up to today, enough to cover the 250-bar floor with margin.
func DefaultRange(now time.Time) (time.Time, time.Time) {
	return now.AddDate(-2, 0, 0), now
}
