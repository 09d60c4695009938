package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leiwong/rpscan/internal/rank"
)

// Distinct exit codes: 2 for CLI misuse, 1 for any run failure, including a
// code the cache does not know. No partial processing happens on misuse.
const (
	exitFailure = 1
	exitUsage   = 2
)

// lookupPeriods are the lookback periods reported by the lookup.
var lookupPeriods = []int{50, 120, 250}

var rpsCmd = &cobra.Command{
	Use:   "rps <6-digit code>",
	Short: "RPS scores for one instrument against the cached universe",
	Long: `Ranks the whole cached universe and prints the instrument's RPS
percentile for the 50, 120 and 250 day lookbacks. Periods the instrument
has too little history for print as NaN.

Example:
  rpscan rps 600519`,
	Run: runRPS,
}

func init() {
	rootCmd.AddCommand(rpsCmd)
}

func runRPS(cmd *cobra.Command, args []string) {
	os.Exit(rpsExitCode(cmd.Context(), args, os.Stdout, os.Stderr))
}

// rpsExitCode performs the lookup and returns the process exit status.
func rpsExitCode(ctx context.Context, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "Usage: rpscan rps <6-digit code>")
		return exitUsage
	}
	code := args[0]
	if len(code) != 6 || !allDigits(code) {
		fmt.Fprintln(errOut, "Please provide a valid 6-digit instrument code.")
		return exitUsage
	}

	cfg, log, err := setup()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return exitFailure
	}

	builder := newUniverseBuilder(cfg, log)
	uni, err := builder.Load(ctx)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return exitFailure
	}

	scores, found := rank.Lookup(uni, code, lookupPeriods)
	if !found {
		fmt.Fprintf(errOut, "Instrument %s not found in cache.\n", code)
		return exitFailure
	}

	fmt.Fprintf(out, "RPS data for %s:\n", code)
	for _, period := range lookupPeriods {
		if score, ok := scores[period]; ok {
			fmt.Fprintf(out, "RPS%d: %.2f\n", period, score)
		} else {
			fmt.Fprintf(out, "RPS%d: NaN\n", period)
		}
	}
	return 0
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
