package cache

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/leiwong/rpscan/pkg/config"
	"github.com/leiwong/rpscan/pkg/logger"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	log := logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
	return NewStore(t.TempDir(), log)
}

func TestStore_SaveLoadRoundtrip(t *testing.T) {
	store := testStore(t)

	records := []Record{
		{Date: "2025-06-11", Open: "10.0", High: "10.5", Low: "9.8", Close: "10.2", Volume: "120000", Amount: "1224000"},
		{Date: "2025-06-10", Open: "9.9", High: "10.1", Low: "9.7", Close: "10.0", Volume: "100000", Amount: "1000000"},
	}
	if err := store.Save("sh", "600519", records); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	series, err := store.Load("600519")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if series.Len() != 2 {
		t.Fatalf("loaded %d bars, want 2", series.Len())
	}
	// Sorted by date regardless of stored order.
	if !series[0].Date.Before(series[1].Date) {
		t.Error("bars not sorted by date")
	}
	if series[1].Close != 10.2 {
		t.Errorf("latest close = %v, want 10.2", series[1].Close)
	}
	if err := series.Validate(); err != nil {
		t.Errorf("series invariant violated: %v", err)
	}
}

func TestStore_CoercionFailureBecomesNaN(t *testing.T) {
	store := testStore(t)

	records := []Record{
		{Date: "2025-06-10", Close: "10.0", Volume: "100"},
		{Date: "2025-06-11", Close: "", Volume: "n/a"},
		{Date: "2025-06-12", Close: "bad", Volume: "100"},
	}
	if err := store.Save("sz", "000001", records); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	series, err := store.Load("000001")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if series.Len() != 3 {
		t.Fatalf("loaded %d bars, want 3: coercion failures are not load errors", series.Len())
	}
	if !math.IsNaN(series[1].Close) || !math.IsNaN(series[2].Close) {
		t.Error("unparseable closes must load as NaN")
	}
	if !math.IsNaN(series[1].Volume) {
		t.Error("unparseable volume must load as NaN")
	}
}

func TestStore_DuplicateDatesCollapsed(t *testing.T) {
	store := testStore(t)

	records := []Record{
		{Date: "2025-06-10", Close: "10.0"},
		{Date: "2025-06-10", Close: "11.0"}, // refetch overwrites
	}
	if err := store.Save("sh", "600000", records); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	series, err := store.Load("600000")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if series.Len() != 1 {
		t.Fatalf("loaded %d bars, want 1", series.Len())
	}
	if series[0].Close != 11.0 {
		t.Errorf("close = %v, want the later record's 11.0", series[0].Close)
	}
}

func TestStore_MalformedFile(t *testing.T) {
	store := testStore(t)

	path := filepath.Join(store.Dir(), "sh.600000.json")
	if err := os.MkdirAll(store.Dir(), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Load("600000"); err == nil {
		t.Error("malformed file must surface an error to the caller")
	}
}

func TestStore_MissingCode(t *testing.T) {
	store := testStore(t)
	if _, err := store.Load("999999"); err == nil {
		t.Error("unknown code must error")
	}
}

func TestStore_Codes(t *testing.T) {
	store := testStore(t)

	for _, pair := range [][2]string{{"sh", "600519"}, {"sz", "000001"}, {"sh", "601318"}} {
		if err := store.Save(pair[0], pair[1], []Record{{Date: "2025-06-10", Close: "1"}}); err != nil {
			t.Fatal(err)
		}
	}
	// Noise that must be ignored.
	if err := os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	codes, err := store.Codes()
	if err != nil {
		t.Fatalf("Codes failed: %v", err)
	}

	want := []string{"000001", "600519", "601318"}
	if len(codes) != len(want) {
		t.Fatalf("codes = %v, want %v", codes, want)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("codes[%d] = %s, want %s (sorted)", i, codes[i], want[i])
		}
	}
}
