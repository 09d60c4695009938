package commands

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/leiwong/rpscan/internal/cache"
	"github.com/leiwong/rpscan/pkg/config"
	"github.com/leiwong/rpscan/pkg/logger"
)

// withCacheDir points the global --cache-dir override at dir for one test.
func withCacheDir(t *testing.T, dir string) {
	t.Helper()
	old := cacheDir
	cacheDir = dir
	t.Cleanup(func() { cacheDir = old })
}

// seedCode writes n flat daily bars with the given final close.
func seedCode(t *testing.T, store *cache.Store, exchange, code string, n int, last float64) {
	t.Helper()
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	records := make([]cache.Record, n)
	for i := range records {
		records[i] = cache.Record{
			Date:  start.AddDate(0, 0, i).Format("2006-01-02"),
			Close: "1.0",
		}
	}
	records[n-1].Close = fmt.Sprintf("%.2f", last)
	if err := store.Save(exchange, code, records); err != nil {
		t.Fatal(err)
	}
}

func TestRPSExitCode_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no args", nil},
		{"two args", []string{"600519", "600001"}},
		{"short code", []string{"60051"}},
		{"non-numeric code", []string{"60051a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			if got := rpsExitCode(context.Background(), tt.args, &out, &errOut); got != exitUsage {
				t.Errorf("exit = %d, want %d", got, exitUsage)
			}
			if errOut.Len() == 0 {
				t.Error("misuse must print a message")
			}
		})
	}
}

func TestRPSExitCode_EmptyCache(t *testing.T) {
	withCacheDir(t, t.TempDir())

	var out, errOut bytes.Buffer
	if got := rpsExitCode(context.Background(), []string{"600519"}, &out, &errOut); got != exitFailure {
		t.Errorf("exit = %d, want %d for an empty cache", got, exitFailure)
	}
}

func TestRPSExitCode_Lookup(t *testing.T) {
	dir := t.TempDir()
	log := logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
	store := cache.NewStore(dir, log)

	// 60 bars: enough for RPS50, too short for RPS120/250.
	seedCode(t, store, "sh", "600519", 60, 1.5)
	seedCode(t, store, "sh", "600001", 60, 1.1)
	withCacheDir(t, dir)

	var out, errOut bytes.Buffer
	if got := rpsExitCode(context.Background(), []string{"600519"}, &out, &errOut); got != 0 {
		t.Fatalf("exit = %d, want 0; stderr: %s", got, errOut.String())
	}

	text := out.String()
	if !strings.Contains(text, "RPS data for 600519") {
		t.Errorf("missing header in output:\n%s", text)
	}
	if !strings.Contains(text, "RPS50: 100.00") {
		t.Errorf("top riser should print RPS50 100.00:\n%s", text)
	}
	if !strings.Contains(text, "RPS250: NaN") {
		t.Errorf("short history should print RPS250 as NaN:\n%s", text)
	}
}

func TestRPSExitCode_NotFound(t *testing.T) {
	dir := t.TempDir()
	log := logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
	seedCode(t, cache.NewStore(dir, log), "sh", "600519", 60, 1.5)
	withCacheDir(t, dir)

	var out, errOut bytes.Buffer
	if got := rpsExitCode(context.Background(), []string{"999999"}, &out, &errOut); got != exitFailure {
		t.Errorf("exit = %d, want %d for a code outside the cache", got, exitFailure)
	}
	if !strings.Contains(errOut.String(), "not found") {
		t.Errorf("missing not-found message: %s", errOut.String())
	}
}
