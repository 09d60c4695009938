// Package report renders screening results as CSV files and console tables.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/leiwong/rpscan/internal/screen"
)

// Columns derives the output column set for a profile: code, one RPS column
// per configured period, and the yearly-return summary when present.
func Columns(profile screen.Profile) []string {
	cols := []string{"code"}
	for _, p := range sortedPeriods(profile) {
		cols = append(cols, fmt.Sprintf("rps%d", p))
	}
	if profile.WithYearlyReturn {
		cols = append(cols, "max_yearly_return")
	}
	return cols
}

// CSVFilename builds the run-date-stamped output name for a profile,
// e.g. rps_first_selected_stocks_260823.csv.
func CSVFilename(profile screen.Profile, date time.Time) string {
	return fmt.Sprintf("%s_%s.csv", profile.CSVPrefix, date.Format("060102"))
}

// WriteCSV writes one row per result, scores at two decimal places.
// Missing values render as empty cells.
func WriteCSV(path string, results []screen.Result, profile screen.Profile) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Columns(profile)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, res := range results {
		if err := w.Write(row(res, profile)); err != nil {
			return fmt.Errorf("write csv row for %s: %w", res.Code, err)
		}
	}

	w.Flush()
	return w.Error()
}

// RenderTable writes a human-readable table of the same rows.
func RenderTable(out io.Writer, results []screen.Result, profile screen.Profile) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	header := ""
	for i, col := range Columns(profile) {
		if i > 0 {
			header += "\t"
		}
		header += col
	}
	fmt.Fprintln(tw, header)

	for _, res := range results {
		line := ""
		for i, cell := range row(res, profile) {
			if i > 0 {
				line += "\t"
			}
			if cell == "" {
				cell = "-"
			}
			line += cell
		}
		fmt.Fprintln(tw, line)
	}

	return tw.Flush()
}

func row(res screen.Result, profile screen.Profile) []string {
	cells := []string{res.Code}
	for _, p := range sortedPeriods(profile) {
		score, ok := res.RPS[p]
		cells = append(cells, formatScore(score, ok))
	}
	if profile.WithYearlyReturn {
		cells = append(cells, formatScore(res.MaxYearlyReturn, !math.IsNaN(res.MaxYearlyReturn)))
	}
	return cells
}

func formatScore(v float64, ok bool) string {
	if !ok || math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func sortedPeriods(profile screen.Profile) []int {
	periods := append([]int(nil), profile.RPSPeriods...)
	sort.Ints(periods)
	return periods
}
