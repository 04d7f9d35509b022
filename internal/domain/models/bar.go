package models

import (
	"math"
	"sort"
	"time"

	"SignalDesk/pkg/util"
)

// PriceBar is one day's OHLCV record.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Valid reports whether the bar can take part in an analysis.
func (b PriceBar) Valid() bool {
	return finitePositive(b.Close) && !math.IsNaN(b.Volume) && !math.IsInf(b.Volume, 0) && b.Volume >= 0
}

// PriceSeries is an ascending, duplicate-free run of daily bars for one symbol.
type PriceSeries struct {
	Symbol string     `json:"symbol"`
	Bars   []PriceBar `json:"bars"`
}

// NewPriceSeries sorts bars by date, drops invalid rows, keeps the last bar per
// calendar day and widens Low/High so that Low <= High always holds.
func NewPriceSeries(symbol string, bars []PriceBar) PriceSeries {
	clean := make([]PriceBar, 0, len(bars))
	for _, b := range bars {
		if !b.Valid() {
			continue
		}
		clean = append(clean, normalizeRange(b))
	}
	sort.SliceStable(clean, func(i, j int) bool { return clean[i].Date.Before(clean[j].Date) })

	out := clean[:0]
	for _, b := range clean {
		if n := len(out); n > 0 && sameDay(out[n-1].Date, b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return PriceSeries{Symbol: symbol, Bars: out}
}

// Len returns the number of bars.
func (s PriceSeries) Len() int { return len(s.Bars) }

// Empty reports whether the series has no bars.
func (s PriceSeries) Empty() bool { return len(s.Bars) == 0 }

// Last returns the most recent bar. Callers must check Empty first.
func (s PriceSeries) Last() PriceBar { return s.Bars[len(s.Bars)-1] }

// Closes returns the close column.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Tail returns the trailing n bars (all bars when fewer are available).
func (s PriceSeries) Tail(n int) []PriceBar {
	if n <= 0 || n >= len(s.Bars) {
		return s.Bars
	}
	return s.Bars[len(s.Bars)-n:]
}

func normalizeRange(b PriceBar) PriceBar {
	lo, hi := b.Low, b.High
	if !finitePositive(lo) {
		lo = b.Close
	}
	if !finitePositive(hi) {
		hi = b.Close
	}
	for _, v := range []float64{b.Open, b.Close} {
		if !finitePositive(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	b.Low, b.High = lo, hi
	return b
}

func sameDay(a, b time.Time) bool {
	return a.Format(util.DateLayout) == b.Format(util.DateLayout)
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
