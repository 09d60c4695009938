package screen

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/leiwong/rpscan/internal/indicator"
	"github.com/leiwong/rpscan/internal/market"
	"github.com/leiwong/rpscan/internal/rank"
	"github.com/leiwong/rpscan/pkg/logger"
)

// Result is one instrument that passed every condition of a profile.
type Result struct {
	Code string

	// RPS holds the percentile per configured period; a period without a
	// valid score carries no entry.
	RPS map[int]float64

	// MaxYearlyReturn is NaN unless the profile computes it.
	MaxYearlyReturn float64
}

// Engine runs a profile over a universe: it builds indicator frames and the
// RPS table once, freezes them, then fans the per-instrument evaluation out
// over a bounded worker pool. Per-instrument outcomes are independent, so
// the pool needs no locking; results are sorted by code at the end.
type Engine struct {
	workers int
	logger  *logger.Logger
}

// NewEngine creates an engine with the given pool size.
func NewEngine(workers int, log *logger.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		workers: workers,
		logger:  log.WithField("module", "screen"),
	}
}

// Run screens the universe with a profile and returns the passing
// instruments sorted by code.
func (e *Engine) Run(ctx context.Context, universe map[string]market.Series, profile Profile) ([]Result, error) {
	if len(universe) == 0 {
		return nil, fmt.Errorf("empty universe")
	}

	// Phase 1: shared tables. Instruments below the history floor never
	// enter the ranking denominator or the filter.
	frames := make(map[string]*indicator.Frame, len(universe))
	for code, series := range universe {
		if series.Len() < MinHistoryBars {
			continue
		}
		frames[code] = indicator.NewFrame(code, series, profile.MAWindows)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no instrument has the required %d bars", MinHistoryBars)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores := rank.Scores(frames, profile.RPSPeriods)

	codes := make([]string, 0, len(frames))
	for code := range frames {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	e.logger.WithFields(map[string]interface{}{
		"profile":  profile.Name,
		"universe": len(universe),
		"eligible": len(codes),
		"workers":  e.workers,
	}).Info("Starting screen")

	// Phase 2: fan out. Frames and scores are read-only from here on.
	codeCh := make(chan string, len(codes))
	resultCh := make(chan Result, len(codes))

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for code := range codeCh {
				if res, ok := e.evaluate(frames[code], scores, profile); ok {
					resultCh <- res
				}
			}
		}()
	}

	for _, code := range codes {
		codeCh <- code
	}
	close(codeCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]Result, 0)
	for res := range resultCh {
		results = append(results, res)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Code < results[j].Code
	})

	e.logger.WithFields(map[string]interface{}{
		"profile":  profile.Name,
		"selected": len(results),
	}).Info("Screen completed")

	return results, nil
}

// evaluate runs the profile's conjunction for one instrument. A panicking
// condition counts as "does not qualify" instead of aborting the batch.
func (e *Engine) evaluate(frame *indicator.Frame, scores rank.Table, profile Profile) (result Result, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(map[string]interface{}{
				"code":  frame.Code,
				"panic": fmt.Sprint(r),
			}).Warn("Condition panicked, instrument excluded")
			ok = false
		}
	}()

	evalCtx := &Context{Frame: frame, RPS: scores}
	for _, cond := range profile.Conditions {
		if !cond.Check(evalCtx) {
			return Result{}, false
		}
	}

	rps := make(map[int]float64, len(profile.RPSPeriods))
	for _, period := range profile.RPSPeriods {
		if score, exists := scores.Score(frame.Code, period); exists {
			rps[period] = score
		}
	}

	yearly := math.NaN()
	if profile.WithYearlyReturn {
		if gain, computable := MaxYearlyGain(frame); computable {
			yearly = gain
		}
	}

	return Result{
		Code:            frame.Code,
		RPS:             rps,
		MaxYearlyReturn: yearly,
	}, true
}
