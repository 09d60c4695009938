// Package rank computes cross-sectional relative price strength (RPS)
// percentiles: for a lookback period, each instrument's latest percentage
// change is ranked against every other instrument with a valid change over
// the same period, and the rank is expressed as a percentile in (0, 100].
package rank

import (
	"math"
	"sort"

	"github.com/leiwong/rpscan/internal/indicator"
)

// Table maps instrument code to its percentile score per lookback period.
// Instruments whose change is missing for a period carry no entry for it.
type Table map[string]map[int]float64

// Score returns the score for a code and period, and whether one exists.
func (t Table) Score(code string, period int) (float64, bool) {
	periods, ok := t[code]
	if !ok {
		return math.NaN(), false
	}
	score, ok := periods[period]
	if !ok {
		return math.NaN(), false
	}
	return score, true
}

// Scores ranks the universe for every configured period. Percentiles use
// fractional ascending rank with average-rank tie-breaking, so rank r of n
// valid observations maps to r/n*100. Missing changes are excluded from
// the denominator. The result does not depend on map iteration order.
func Scores(frames map[string]*indicator.Frame, periods []int) Table {
	table := make(Table, len(frames))
	for code := range frames {
		table[code] = make(map[int]float64, len(periods))
	}

	for _, period := range periods {
		scorePeriod(frames, period, table)
	}
	return table
}

type observation struct {
	code   string
	change float64
}

func scorePeriod(frames map[string]*indicator.Frame, period int, table Table) {
	obs := make([]observation, 0, len(frames))
	for code, frame := range frames {
		change := frame.LatestChange(period)
		if math.IsNaN(change) {
			continue
		}
		obs = append(obs, observation{code: code, change: change})
	}
	if len(obs) == 0 {
		return
	}

	// Sort by change, code as tie-break so the pass below is reproducible.
	// Tied changes get the average of their 1-indexed ranks, which makes
	// the final score independent of the tie-break order.
	sort.Slice(obs, func(i, j int) bool {
		if obs[i].change != obs[j].change {
			return obs[i].change < obs[j].change
		}
		return obs[i].code < obs[j].code
	})

	n := float64(len(obs))
	for i := 0; i < len(obs); {
		j := i
		for j < len(obs) && obs[j].change == obs[i].change {
			j++
		}
		// 1-indexed ranks i+1..j share the average rank.
		avgRank := float64(i+1+j) / 2
		score := avgRank / n * 100
		for k := i; k < j; k++ {
			table[obs[k].code][period] = score
		}
		i = j
	}
}
