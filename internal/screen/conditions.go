package screen

import (
	"fmt"
	"math"
	"time"

	"github.com/leiwong/rpscan/internal/indicator"
	"github.com/leiwong/rpscan/internal/rank"
)

// Context carries everything a condition may inspect: one instrument's
// frame (full history, not only the latest bar) and the precomputed
// cross-sectional RPS table. Both are frozen before evaluation starts.
type Context struct {
	Frame *indicator.Frame
	RPS   rank.Table
}

func (c *Context) score(period int) (float64, bool) {
	return c.RPS.Score(c.Frame.Code, period)
}

// Condition is a named pass/fail predicate. Conditions never error on
// missing data; any comparison against NaN evaluates to false.
type Condition struct {
	Name  string
	Check func(*Context) bool
}

// RPSSumAbove passes when the sum of two periods' RPS scores exceeds the
// threshold. An instrument lacking either score fails.
func RPSSumAbove(p1, p2 int, threshold float64) Condition {
	return Condition{
		Name: fmt.Sprintf("rps%d+rps%d>%g", p1, p2, threshold),
		Check: func(ctx *Context) bool {
			s1, ok1 := ctx.score(p1)
			s2, ok2 := ctx.score(p2)
			return ok1 && ok2 && s1+s2 > threshold
		},
	}
}

// DrawdownWithin passes when the decline from the trailing window's highest
// close to the current close is at most cap (boundary inclusive).
func DrawdownWithin(window int, cap float64) Condition {
	return Condition{
		Name: fmt.Sprintf("drawdown%d<=%g", window, cap),
		Check: func(ctx *Context) bool {
			bars := ctx.Frame.Bars
			cur := ctx.Frame.LatestClose()
			if math.IsNaN(cur) {
				return false
			}
			max, ok := bars.MaxClose(len(bars)-window, len(bars))
			if !ok || max <= 0 {
				return false
			}
			return (max-cur)/max <= cap
		},
	}
}

// MAAligned passes when the latest close stands above the shortest moving
// average and the longer averages are strictly ordered downward
// (ma[chain[0]] > ma[chain[1]] > ...), i.e. averages diverging upward.
func MAAligned(priceWindow int, chain ...int) Condition {
	return Condition{
		Name: fmt.Sprintf("ma%d-aligned", priceWindow),
		Check: func(ctx *Context) bool {
			if !(ctx.Frame.LatestClose() > ctx.Frame.LatestMA(priceWindow)) {
				return false
			}
			for i := 1; i < len(chain); i++ {
				if !(ctx.Frame.LatestMA(chain[i-1]) > ctx.Frame.LatestMA(chain[i])) {
					return false
				}
			}
			return true
		},
	}
}

// CrossoverPersistence passes when the close stayed above both moving
// averages on at least threshold of the last days bars.
func CrossoverPersistence(days, shortMA, longMA, threshold int) Condition {
	return Condition{
		Name: fmt.Sprintf("above-ma%d/ma%d-%din%d", shortMA, longMA, threshold, days),
		Check: func(ctx *Context) bool {
			n := len(ctx.Frame.Bars)
			count := 0
			for i := n - days; i < n; i++ {
				if i < 0 {
					continue
				}
				c := ctx.Frame.Close(i)
				if c > ctx.Frame.MA(shortMA, i) && c > ctx.Frame.MA(longMA, i) {
					count++
				}
			}
			return count >= threshold
		},
	}
}

// NewHighStanding passes when the highest close within the last recent bars
// reaches the year-to-date high excluding that recent window: a new high
// that has not broken down yet. Fails when no year-to-date history exists
// before the recent window.
func NewHighStanding(recent int) Condition {
	return Condition{
		Name: fmt.Sprintf("new-high-%d", recent),
		Check: func(ctx *Context) bool {
			bars := ctx.Frame.Bars
			n := len(bars)
			if n == 0 {
				return false
			}
			yearStart := startOfYear(bars.Last().Date)
			from := bars.FirstIndexOnOrAfter(yearStart)
			if from < 0 || from >= n-recent {
				// No prior year-to-date window to beat.
				return false
			}
			priorHigh, ok := bars.MaxClose(from, n-recent)
			if !ok {
				return false
			}
			recentHigh, ok := bars.MaxClose(n-recent, n)
			if !ok {
				return false
			}
			return recentHigh >= priorHigh
		},
	}
}

// NearYearHigh passes when the latest close is at least frac of the highest
// close within the trailing window bars.
func NearYearHigh(frac float64, window int) Condition {
	return Condition{
		Name: fmt.Sprintf("close>=%.0f%%-of-high%d", frac*100, window),
		Check: func(ctx *Context) bool {
			bars := ctx.Frame.Bars
			high, ok := bars.MaxClose(len(bars)-window, len(bars))
			if !ok {
				return false
			}
			return ctx.Frame.LatestClose() >= frac*high
		},
	}
}

// MATrending passes when either the short average rose on each of the last
// five bars while staying above the long one, or the latest bar shows both
// averages above their prior values with the short above the long.
// Sustained trend or fresh trend.
func MATrending(short, long int) Condition {
	return Condition{
		Name: fmt.Sprintf("ma%d/ma%d-trend", short, long),
		Check: func(ctx *Context) bool {
			n := len(ctx.Frame.Bars)
			if n < 2 {
				return false
			}

			sustained := n >= 6
			for i := n - 5; sustained && i < n; i++ {
				rising := ctx.Frame.MA(short, i) > ctx.Frame.MA(short, i-1)
				above := ctx.Frame.MA(short, i) > ctx.Frame.MA(long, i)
				if !rising || !above {
					sustained = false
				}
			}
			if sustained {
				return true
			}

			last, prev := n-1, n-2
			return ctx.Frame.MA(short, last) > ctx.Frame.MA(short, prev) &&
				ctx.Frame.MA(long, last) > ctx.Frame.MA(long, prev) &&
				ctx.Frame.MA(short, last) > ctx.Frame.MA(long, last)
		},
	}
}

// CloseAboveMA passes when the latest close exceeds the given moving average.
func CloseAboveMA(window int) Condition {
	return Condition{
		Name: fmt.Sprintf("close>ma%d", window),
		Check: func(ctx *Context) bool {
			return ctx.Frame.LatestClose() > ctx.Frame.LatestMA(window)
		},
	}
}

// YearlyGainCapped passes when the maximum gain since the start of the
// calendar year is at most cap percent. Instruments without history from
// before the year start are not computable and fail.
func YearlyGainCapped(cap float64) Condition {
	return Condition{
		Name: fmt.Sprintf("yearly-gain<=%g%%", cap),
		Check: func(ctx *Context) bool {
			gain, ok := MaxYearlyGain(ctx.Frame)
			return ok && gain <= cap
		},
	}
}

// MaxYearlyGain computes the maximum percentage gain of the close since the
// start of the latest bar's calendar year, measured from the first close of
// the year. Returns false when the series has no bar before the year start
// or the involved closes are missing.
func MaxYearlyGain(f *indicator.Frame) (float64, bool) {
	bars := f.Bars
	n := len(bars)
	if n == 0 {
		return math.NaN(), false
	}

	yearStart := startOfYear(bars.Last().Date)
	from := bars.FirstIndexOnOrAfter(yearStart)
	if from <= 0 {
		// from == 0 means the whole series is inside the current year:
		// the pre-year history required to anchor the gain is missing.
		return math.NaN(), false
	}

	startPrice := bars[from].Close
	if math.IsNaN(startPrice) || startPrice == 0 {
		return math.NaN(), false
	}
	maxPrice, ok := bars.MaxClose(from, n)
	if !ok {
		return math.NaN(), false
	}
	return (maxPrice - startPrice) / startPrice * 100, true
}

func startOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}
