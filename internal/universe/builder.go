// Package universe builds the in-memory screening universe from the bar
// cache. The universe is constructed once per run and read-only afterwards.
package universe

import (
	"context"
	"fmt"

	"github.com/leiwong/rpscan/internal/cache"
	"github.com/leiwong/rpscan/internal/market"
	"github.com/leiwong/rpscan/pkg/logger"
)

// Builder loads every cached instrument, skipping unreadable files.
type Builder struct {
	store  *cache.Store
	logger *logger.Logger
}

// NewBuilder creates a universe builder over a cache store.
func NewBuilder(store *cache.Store, log *logger.Logger) *Builder {
	return &Builder{
		store:  store,
		logger: log.WithField("module", "universe"),
	}
}

// Load reads all cached series. Unreadable or malformed files are logged
// and skipped; an entirely empty or absent cache is an error. Series
// length is not filtered here — the screen engine owns the history floor,
// so the single-instrument RPS lookup sees the full cache.
func (b *Builder) Load(ctx context.Context) (map[string]market.Series, error) {
	codes, err := b.store.Codes()
	if err != nil {
		return nil, fmt.Errorf("list cache: %w", err)
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("cache directory %s holds no instruments", b.store.Dir())
	}

	universe := make(map[string]market.Series, len(codes))
	skipped := 0
	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		series, err := b.store.Load(code)
		if err != nil {
			b.logger.WithError(err).WithField("code", code).Warn("Skipping unreadable cache entry")
			skipped++
			continue
		}
		universe[code] = series
	}

	if len(universe) == 0 {
		return nil, fmt.Errorf("no readable instrument in cache directory %s", b.store.Dir())
	}

	b.logger.WithFields(map[string]interface{}{
		"loaded":  len(universe),
		"skipped": skipped,
	}).Info("Universe loaded")

	return universe, nil
}
