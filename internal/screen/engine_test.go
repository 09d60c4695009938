package screen

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/leiwong/rpscan/internal/market"
	"github.com/leiwong/rpscan/pkg/config"
	"github.com/leiwong/rpscan/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

// linearSeries builds n daily bars ending at end, with closes moving
// linearly from first by step per bar.
func linearSeries(end time.Time, n int, first, step float64) market.Series {
	start := end.AddDate(0, 0, -(n - 1))
	bars := make([]market.Bar, n)
	for i := range bars {
		bars[i] = market.Bar{Date: start.AddDate(0, 0, i), Close: first + step*float64(i)}
	}
	return market.Series(bars)
}

func TestEngine_FirstPass(t *testing.T) {
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	universe := map[string]market.Series{
		// Steady riser: new highs, aligned averages, no drawdown, and a
		// moderate year-to-date gain. The only instrument that passes.
		"600001": linearSeries(end, 300, 100, 0.1),
		// Flat and falling peers anchor the RPS denominators.
		"600002": linearSeries(end, 300, 50, 0),
		"600003": linearSeries(end, 300, 80, -0.05),
		// Too short for the history floor regardless of shape.
		"600004": linearSeries(end, 100, 100, 0.5),
	}

	engine := NewEngine(4, testLogger())
	results, err := engine.Run(context.Background(), universe, FirstPass())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("selected %d instruments, want 1", len(results))
	}
	res := results[0]
	if res.Code != "600001" {
		t.Fatalf("selected %s, want 600001", res.Code)
	}

	// Top percentage change in a universe of 3 eligible instruments.
	for _, period := range []int{50, 120, 250} {
		score, ok := res.RPS[period]
		if !ok || score != 100.0 {
			t.Errorf("RPS%d = %v (ok=%v), want 100", period, score, ok)
		}
	}

	if math.IsNaN(res.MaxYearlyReturn) {
		t.Error("first-pass results carry the yearly return")
	}
	if res.MaxYearlyReturn <= 0 || res.MaxYearlyReturn > 50 {
		t.Errorf("yearly return %v outside the expected band", res.MaxYearlyReturn)
	}
}

func TestEngine_ShortHistoryExcluded(t *testing.T) {
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	// The 100-bar instrument would beat every condition on shape alone,
	// but never reaches evaluation.
	universe := map[string]market.Series{
		"600001": linearSeries(end, 300, 100, 0.1),
		"600002": linearSeries(end, 300, 50, 0),
		"600088": linearSeries(end, 100, 10, 1.0),
	}

	engine := NewEngine(2, testLogger())
	results, err := engine.Run(context.Background(), universe, FirstPass())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, res := range results {
		if res.Code == "600088" {
			t.Fatal("100-bar instrument must be excluded from filtering")
		}
	}
}

func TestEngine_ResultsSortedAndDeterministic(t *testing.T) {
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	// Two risers with distinct slopes plus twelve decliners: in a
	// 14-instrument universe the top two RPS ranks are 100 and 92.86,
	// so both risers clear the 185 sum gate.
	mk := func() map[string]market.Series {
		universe := map[string]market.Series{
			"600002": linearSeries(end, 300, 100, 0.3),
			"600001": linearSeries(end, 300, 100, 0.1),
		}
		for i := 0; i < 12; i++ {
			code := "600" + string(rune('1'+i/10)) + "0" + string(rune('0'+i%10))
			universe[code] = linearSeries(end, 300, 80, -0.01*float64(i+1))
		}
		return universe
	}

	engine := NewEngine(4, testLogger())

	first, err := engine.Run(context.Background(), mk(), FirstPass())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	second, err := engine.Run(context.Background(), mk(), FirstPass())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("runs disagree on count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Code != second[i].Code {
			t.Errorf("runs disagree at %d: %s vs %s", i, first[i].Code, second[i].Code)
		}
		for p, s := range first[i].RPS {
			if second[i].RPS[p] != s {
				t.Errorf("%s RPS%d differs between runs", first[i].Code, p)
			}
		}
	}
	for i := 1; i < len(first); i++ {
		if first[i-1].Code >= first[i].Code {
			t.Error("results not sorted by code")
		}
	}

	if len(first) < 2 {
		t.Fatalf("expected both risers selected, got %d", len(first))
	}
}

func TestEngine_EmptyUniverse(t *testing.T) {
	engine := NewEngine(2, testLogger())

	if _, err := engine.Run(context.Background(), nil, Strict()); err == nil {
		t.Error("empty universe must error")
	}

	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	short := map[string]market.Series{
		"600001": linearSeries(end, 10, 100, 1),
	}
	if _, err := engine.Run(context.Background(), short, Strict()); err == nil {
		t.Error("universe with no eligible instrument must error")
	}
}
