package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/leiwong/rpscan/internal/report"
	"github.com/leiwong/rpscan/internal/screen"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Screen the cached universe with a filter profile",
	Long: `Loads the full bar cache, computes moving averages and RPS percentiles
across the universe, applies the profile's conditions per instrument, and
writes the selected instruments as a date-stamped CSV plus a console table.

Profiles:
  first-pass  broader selection (new high, RPS sum, aligned MAs, drawdown,
              yearly gain cap)
  strict      tighter follow-on (crossover persistence, trend checks)

Example:
  rpscan screen --profile first-pass
  rpscan screen --profile strict --out .`,
	RunE: runScreen,
}

var (
	screenProfile string
	screenOutDir  string
)

func init() {
	rootCmd.AddCommand(screenCmd)
	screenCmd.Flags().StringVar(&screenProfile, "profile", "strict", "filter profile (first-pass|strict)")
	screenCmd.Flags().StringVar(&screenOutDir, "out", ".", "output directory for the CSV")
}

func runScreen(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	profile, err := screen.ProfileByName(screenProfile)
	if err != nil {
		return err
	}

	builder := newUniverseBuilder(cfg, log)
	uni, err := builder.Load(cmd.Context())
	if err != nil {
		return err
	}

	engine := newEngine(cfg, log)
	results, err := engine.Run(cmd.Context(), uni, profile)
	if err != nil {
		return err
	}

	path := filepath.Join(screenOutDir, report.CSVFilename(profile, time.Now()))
	if err := report.WriteCSV(path, results, profile); err != nil {
		return err
	}

	fmt.Printf("\nSelected instruments (%d):\n", len(results))
	if err := report.RenderTable(os.Stdout, results, profile); err != nil {
		return err
	}
	fmt.Printf("\nWritten to %s\n", path)
	return nil
}
