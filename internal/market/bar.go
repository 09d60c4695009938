package market

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Bar is one daily OHLCV bar. Fields that failed numeric coercion at load
// time are NaN, never zero, so they stay out of every denominator.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Amount float64
}

// Series is an ordered daily bar sequence for one instrument.
// Invariant: dates strictly increasing, no duplicates.
type Series []Bar

// Normalize sorts bars by date and collapses duplicate dates, keeping the
// most recently appended record for a date (refetches overwrite).
func Normalize(bars []Bar) Series {
	byDate := make(map[time.Time]Bar, len(bars))
	for _, b := range bars {
		byDate[b.Date] = b
	}

	out := make(Series, 0, len(byDate))
	for _, b := range byDate {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Validate checks the strictly-increasing-dates invariant.
func (s Series) Validate() error {
	for i := 1; i < len(s); i++ {
		if !s[i-1].Date.Before(s[i].Date) {
			return fmt.Errorf("bars out of order at index %d: %s >= %s",
				i, s[i-1].Date.Format("2006-01-02"), s[i].Date.Format("2006-01-02"))
		}
	}
	return nil
}

// Closes returns the close column.
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, b := range s {
		closes[i] = b.Close
	}
	return closes
}

// Last returns the most recent bar. Panics on an empty series; callers
// gate on Len first.
func (s Series) Last() Bar {
	return s[len(s)-1]
}

// Len returns the number of bars.
func (s Series) Len() int {
	return len(s)
}

// MaxClose returns the highest non-NaN close in s[from:to), and false if
// every close in the range is NaN or the range is empty.
func (s Series) MaxClose(from, to int) (float64, bool) {
	if from < 0 {
		from = 0
	}
	if to > len(s) {
		to = len(s)
	}

	max := math.NaN()
	found := false
	for i := from; i < to; i++ {
		c := s[i].Close
		if math.IsNaN(c) {
			continue
		}
		if !found || c > max {
			max = c
			found = true
		}
	}
	return max, found
}

// FirstIndexOnOrAfter returns the index of the first bar dated on or after t,
// or -1 if no bar qualifies.
func (s Series) FirstIndexOnOrAfter(t time.Time) int {
	idx := sort.Search(len(s), func(i int) bool {
		return !s[i].Date.Before(t)
	})
	if idx == len(s) {
		return -1
	}
	return idx
}
