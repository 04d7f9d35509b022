package repository

import (
	"context"
	"time"

	"SignalDesk/internal/domain/models"
	"SignalDesk/pkg/util"
)

// Window bounds the history requested from a SeriesStore. Start wins over Period.
type Window struct {
	Start  time.Time
	Period string
}

// From resolves the window's lower bound relative to now. The zero time means unbounded.
func (w Window) From(now time.Time) (time.Time, error) {
	if !w.Start.IsZero() {
		return w.Start, nil
	}
	if w.Period == "" {
		return time.Time{}, nil
	}
	return util.ParsePeriod(w.Period, now)
}

// Key is a stable textual form of the window, used in cache keys.
func (w Window) Key() string {
	if !w.Start.IsZero() {
		return "from=" + w.Start.Format(util.DateLayout)
	}
	if w.Period != "" {
		return "period=" + w.Period
	}
	return "all"
}

// SeriesStore supplies ordered daily bars. An empty series is a valid result;
// an unknown symbol fails with models.ErrDataUnavailable.
type SeriesStore interface {
	Fetch(ctx context.Context, symbol string, w Window) (models.PriceSeries, error)
}

// BarSink persists fetched bars (used by the archiving store).
type BarSink interface {
	StoreBars(ctx context.Context, series models.PriceSeries) error
}

// NameLookup resolves a human-readable instrument name, falling back to the symbol.
type NameLookup interface {
	LookupDisplayName(ctx context.Context, symbol string) string
}
