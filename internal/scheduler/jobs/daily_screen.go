package jobs

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/leiwong/rpscan/internal/fetch"
	"github.com/leiwong/rpscan/internal/report"
	"github.com/leiwong/rpscan/internal/screen"
	"github.com/leiwong/rpscan/internal/universe"
	"github.com/leiwong/rpscan/pkg/logger"
)

// DailyScreenJob refreshes the bar cache after the close and runs both
// screening profiles, writing the date-stamped CSVs.
type DailyScreenJob struct {
	fetcher *fetch.Fetcher
	builder *universe.Builder
	engine  *screen.Engine
	workers int
	logger  *logger.Logger
}

// NewDailyScreenJob creates the daily job.
func NewDailyScreenJob(fetcher *fetch.Fetcher, builder *universe.Builder, engine *screen.Engine, workers int, log *logger.Logger) *DailyScreenJob {
	return &DailyScreenJob{
		fetcher: fetcher,
		builder: builder,
		engine:  engine,
		workers: workers,
		logger:  log.WithField("job", "daily-screen"),
	}
}

// Name returns the job name.
func (j *DailyScreenJob) Name() string {
	return "daily-screen"
}

// Schedule runs after the A-share close on trading weekdays.
func (j *DailyScreenJob) Schedule() string {
	return "0 30 17 * * MON-FRI"
}

// Run refreshes the cache, then screens with every profile.
func (j *DailyScreenJob) Run(ctx context.Context) error {
	now := time.Now()
	from, to := fetch.DefaultRange(now)

	if _, err := j.fetcher.RefreshAll(ctx, fetch.Config{
		Workers: j.workers,
		From:    from,
		To:      to,
	}); err != nil {
		return fmt.Errorf("refresh cache: %w", err)
	}

	uni, err := j.builder.Load(ctx)
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}

	for _, profile := range []screen.Profile{screen.FirstPass(), screen.Strict()} {
		results, err := j.engine.Run(ctx, uni, profile)
		if err != nil {
			return fmt.Errorf("screen %s: %w", profile.Name, err)
		}

		path := report.CSVFilename(profile, now)
		if err := report.WriteCSV(path, results, profile); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := report.RenderTable(os.Stdout, results, profile); err != nil {
			return fmt.Errorf("render %s table: %w", profile.Name, err)
		}

		j.logger.WithFields(map[string]interface{}{
			"profile":  profile.Name,
			"selected": len(results),
			"csv":      path,
		}).Info("Profile screened")
	}

	return nil
}
