package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leiwong/rpscan/internal/cache"
	"github.com/leiwong/rpscan/internal/screen"
	"github.com/leiwong/rpscan/internal/universe"
	"github.com/leiwong/rpscan/pkg/config"
	"github.com/leiwong/rpscan/pkg/logger"
)

var (
	// Global flags
	cacheDir string
	verbose  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rpscan",
	Short: "A-share relative price strength screener",
	Long: `rpscan screens A-share equities from a local daily-bar cache using
relative price strength (RPS) ranking and moving-average trend filters.

Usage:
  rpscan fetch                refresh the bar cache from upstream
  rpscan screen --profile strict
  rpscan rps 600519           RPS scores for one instrument
  rpscan serve                HTTP API
  rpscan scheduler            daily refresh + screen on a cron schedule`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "cache directory (overrides CACHE_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// setup loads config and builds the logger, applying global flag overrides.
func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if cacheDir != "" {
		cfg.CacheDir = cacheDir
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, logger.New(cfg), nil
}

// newUniverseBuilder wires the cache store and universe builder.
func newUniverseBuilder(cfg *config.Config, log *logger.Logger) *universe.Builder {
	store := cache.NewStore(cfg.CacheDir, log)
	return universe.NewBuilder(store, log)
}

// newEngine wires the screening engine.
func newEngine(cfg *config.Config, log *logger.Logger) *screen.Engine {
	return screen.NewEngine(cfg.ScreenWorkers, log)
}
