package cache

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/leiwong/rpscan/internal/market"
	"github.com/leiwong/rpscan/pkg/logger"
)

// Exchange prefixes used in cache file names, tried in order.
var exchangePrefixes = []string{"sh", "sz"}

// Record is one daily bar as stored in the cache files. The upstream API
// delivers every field as a string; numeric coercion happens at load time
// and failures become NaN rather than errors.
type Record struct {
	Date   string `json:"date"`
	Code   string `json:"code"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
	Amount string `json:"amount"`
}

// Store reads and writes per-instrument JSON cache files named
// <exchange>.<code>.json under a single directory.
type Store struct {
	dir    string
	logger *logger.Logger
}

// NewStore creates a cache store rooted at dir.
func NewStore(dir string, log *logger.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: log.WithField("module", "cache"),
	}
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// Codes lists the instrument codes present in the cache, sorted.
func (s *Store) Codes() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read cache dir %s: %w", s.dir, err)
	}

	seen := make(map[string]struct{})
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		parts := strings.Split(name, ".")
		if len(parts) != 3 {
			continue
		}
		seen[parts[1]] = struct{}{}
	}

	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

// Load reads the cached series for a code, trying each exchange prefix.
// The returned series is sorted by date with duplicates collapsed.
func (s *Store) Load(code string) (market.Series, error) {
	for _, prefix := range exchangePrefixes {
		path := filepath.Join(s.dir, fmt.Sprintf("%s.%s.json", prefix, code))
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return s.loadFile(path)
	}
	return nil, fmt.Errorf("no cache file found for %s", code)
}

// Save writes records for a code under the given exchange prefix,
// replacing any existing file.
func (s *Store) Save(exchange, code string, records []Record) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal records for %s: %w", code, err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s.%s.json", exchange, code))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write cache file %s: %w", path, err)
	}
	return nil
}

func (s *Store) loadFile(path string) (market.Series, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cache file %s: %w", path, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode cache file %s: %w", path, err)
	}

	bars := make([]market.Bar, 0, len(records))
	for _, rec := range records {
		date, err := parseDate(rec.Date)
		if err != nil {
			// A bar without a usable date cannot be indexed; drop it.
			s.logger.WithFields(map[string]interface{}{
				"file": filepath.Base(path),
				"date": rec.Date,
			}).Warn("Skipping record with unparseable date")
			continue
		}

		bars = append(bars, market.Bar{
			Date:   date,
			Open:   toFloat(rec.Open),
			High:   toFloat(rec.High),
			Low:    toFloat(rec.Low),
			Close:  toFloat(rec.Close),
			Volume: toFloat(rec.Volume),
			Amount: toFloat(rec.Amount),
		})
	}

	return market.Normalize(bars), nil
}

// parseDate accepts ISO-8601 dates with or without a time component.
func parseDate(s string) (time.Time, error) {
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t, nil
		}
	}
	return time.Parse(time.RFC3339, s)
}

// toFloat coerces a string field to float64, NaN on failure.
func toFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
