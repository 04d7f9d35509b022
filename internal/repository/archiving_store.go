package repository

import (
	"context"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	applogger "SignalDesk/pkg/logger"
)

// ArchivingStore reads from a primary source and writes every non-empty
// result through to a sink. Sink failures are logged and never surface.
type ArchivingStore struct {
	primary domrepo.SeriesStore
	sink    domrepo.BarSink
	l       *applogger.Logger
}

var _ domrepo.SeriesStore = (*ArchivingStore)(nil)

func NewArchivingStore(primary domrepo.SeriesStore, sink domrepo.BarSink, l *applogger.Logger) *ArchivingStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &ArchivingStore{primary: primary, sink: sink, l: l}
}

func (a *ArchivingStore) Fetch(ctx context.Context, symbol string, w domrepo.Window) (models.PriceSeries, error) {
	series, err := a.primary.Fetch(ctx, symbol, w)
	if err != nil || series.Empty() || a.sink == nil {
		return series, err
	}
	if err := a.sink.StoreBars(context.WithoutCancel(ctx), series); err != nil {
		a.l.Warn("archive bars failed",
			applogger.String("symbol", symbol),
			applogger.Int("bars", series.Len()),
			applogger.Error(err),
		)
	}
	return series, nil
}
