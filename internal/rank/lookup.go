package rank

import (
	"github.com/leiwong/rpscan/internal/indicator"
	"github.com/leiwong/rpscan/internal/market"
)

// Lookup ranks the full universe and returns one instrument's scores per
// period. The second return is false when the code is not in the universe
// at all. Periods the instrument has no valid change for carry no entry —
// short histories dilute nothing and default to nothing.
func Lookup(universe map[string]market.Series, code string, periods []int) (map[int]float64, bool) {
	if _, exists := universe[code]; !exists {
		return nil, false
	}

	frames := make(map[string]*indicator.Frame, len(universe))
	for c, series := range universe {
		frames[c] = indicator.NewFrame(c, series, nil)
	}

	table := Scores(frames, periods)

	out := make(map[int]float64, len(periods))
	for _, p := range periods {
		if score, ok := table.Score(code, p); ok {
			out[p] = score
		}
	}
	return out, true
}
