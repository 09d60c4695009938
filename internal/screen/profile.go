package screen

import "fmt"

// MinHistoryBars is the minimum bar count an instrument needs before it is
// considered for ranking and filtering at all.
const MinHistoryBars = 250

// Window lengths are counted in trading days (bars), never calendar days.
// The upstream conventions "30 days" and "20 days" map to 20 and 14 bars.
const (
	firstPassDrawdownBars = 20
	strictDrawdownBars    = 14
	yearHighBars          = 250
)

// Profile is a named, ordered conjunction of conditions plus the indicator
// columns it needs. All conditions must hold for an instrument to be
// selected.
type Profile struct {
	Name       string
	MAWindows  []int
	RPSPeriods []int
	CSVPrefix  string

	// WithYearlyReturn adds the max-yearly-return summary column.
	WithYearlyReturn bool

	Conditions []Condition
}

// FirstPass is the broader first selection: yearly new high, strong
// combined RPS, aligned rising averages, contained drawdown, and a cap on
// how far the instrument already ran this year.
func FirstPass() Profile {
	return Profile{
		Name:             "first-pass",
		MAWindows:        []int{40, 60, 120, 250},
		RPSPeriods:       []int{50, 120, 250},
		CSVPrefix:        "rps_first_selected_stocks",
		WithYearlyReturn: true,
		Conditions: []Condition{
			NewHighStanding(firstPassDrawdownBars),
			RPSSumAbove(120, 250, 185),
			MAAligned(40, 60, 120, 250),
			DrawdownWithin(firstPassDrawdownBars, 0.30),
			YearlyGainCapped(50),
		},
	}
}

// Strict is the tighter follow-on selection with crossover persistence and
// trend checks layered on top of the RPS and drawdown gates.
func Strict() Profile {
	return Profile{
		Name:       "strict",
		MAWindows:  []int{10, 20, 200, 250},
		RPSPeriods: []int{120, 250},
		CSVPrefix:  "selected_stocks",
		Conditions: []Condition{
			RPSSumAbove(120, 250, 185),
			DrawdownWithin(strictDrawdownBars, 0.25),
			CrossoverPersistence(30, 200, 250, 25),
			CrossoverPersistence(10, 20, 20, 9),
			CrossoverPersistence(4, 10, 20, 3),
			NearYearHigh(0.8, yearHighBars),
			MATrending(10, 20),
			CloseAboveMA(20),
		},
	}
}

// ProfileByName resolves a profile by its CLI name.
func ProfileByName(name string) (Profile, error) {
	switch name {
	case "first-pass", "first":
		return FirstPass(), nil
	case "strict":
		return Strict(), nil
	default:
		return Profile{}, fmt.Errorf("unknown profile %q (want first-pass or strict)", name)
	}
}
