package indicator

import (
	"math"

	"github.com/leiwong/rpscan/internal/market"
)

// SMA computes the simple rolling mean of values over the given window.
// The first window-1 entries are NaN; a NaN inside the window makes the
// mean NaN for every position covering it.
func SMA(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += values[j] // NaN propagates through the sum
		}
		out[i] = sum / float64(window)
	}
	return out
}

// PctChange computes the period-over-period percentage change
// values[i]/values[i-period] - 1. Entries before the first full period,
// and entries with a NaN on either side, are NaN.
func PctChange(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i < period {
			out[i] = math.NaN()
			continue
		}
		cur, prev := values[i], values[i-period]
		if math.IsNaN(cur) || math.IsNaN(prev) || prev == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = cur/prev - 1
	}
	return out
}

// Frame is an instrument series augmented with derived moving-average
// columns. Frames are built once per run and read-only afterwards.
type Frame struct {
	Code string
	Bars market.Series

	ma map[int][]float64
}

// NewFrame builds a frame with a moving-average column per window.
func NewFrame(code string, bars market.Series, windows []int) *Frame {
	closes := bars.Closes()
	ma := make(map[int][]float64, len(windows))
	for _, w := range windows {
		ma[w] = SMA(closes, w)
	}
	return &Frame{
		Code: code,
		Bars: bars,
		ma:   ma,
	}
}

// MA returns the moving-average value for a window at index i,
// NaN when the window was not configured or i is out of range.
func (f *Frame) MA(window, i int) float64 {
	col, ok := f.ma[window]
	if !ok || i < 0 || i >= len(col) {
		return math.NaN()
	}
	return col[i]
}

// LatestMA returns the moving-average value for a window at the last bar.
func (f *Frame) LatestMA(window int) float64 {
	return f.MA(window, len(f.Bars)-1)
}

// LatestChange returns the latest period-over-period percentage change of
// the close column, NaN when the series is too short or closes are missing.
func (f *Frame) LatestChange(period int) float64 {
	n := len(f.Bars)
	if n == 0 || n <= period {
		return math.NaN()
	}
	cur := f.Bars[n-1].Close
	prev := f.Bars[n-1-period].Close
	if math.IsNaN(cur) || math.IsNaN(prev) || prev == 0 {
		return math.NaN()
	}
	return cur/prev - 1
}

// Close returns the close at index i, NaN out of range.
func (f *Frame) Close(i int) float64 {
	if i < 0 || i >= len(f.Bars) {
		return math.NaN()
	}
	return f.Bars[i].Close
}

// LatestClose returns the close of the most recent bar.
func (f *Frame) LatestClose() float64 {
	return f.Close(len(f.Bars) - 1)
}
