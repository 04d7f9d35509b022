package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	pkgch "SignalDesk/pkg/clickhouse"
	applogger "SignalDesk/pkg/logger"
)

// DefaultBarsTable is the archive table for daily bars.
const DefaultBarsTable = "daily_bars"

// BarsSchema returns the DDL for the daily bar archive. ReplacingMergeTree keeps
// the most recently inserted row per (symbol, date).
func BarsSchema(database, table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            symbol      LowCardinality(String),
            date        Date,
            open        Float64,
            high        Float64,
            low         Float64,
            close       Float64,
            volume      Float64,
            ingested_at DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(ingested_at)
        ORDER BY (symbol, date)`, database, table),
	}
}

// CHSeriesStore reads and writes daily bars in ClickHouse.
type CHSeriesStore struct {
	db    *sql.DB
	table string
	now   func() time.Time
	l     *applogger.Logger
}

var (
	_ domrepo.SeriesStore = (*CHSeriesStore)(nil)
	_ domrepo.BarSink     = (*CHSeriesStore)(nil)
)

// NewCHSeriesStore binds the store to <database>.<table>.
func NewCHSeriesStore(ch *pkgch.Client, table string) *CHSeriesStore {
	if table == "" {
		table = DefaultBarsTable
	}
	return &CHSeriesStore{
		db:    ch.DB(),
		table: ch.Database() + "." + table,
		now:   time.Now,
	}
}

// SetLogger injects a structured logger.
func (s *CHSeriesStore) SetLogger(l *applogger.Logger) { s.l = l }

// Fetch returns the archived bars of symbol inside the window. A symbol with no
// rows at all yields an empty series.
func (s *CHSeriesStore) Fetch(ctx context.Context, symbol string, w domrepo.Window) (models.PriceSeries, error) {
	start := time.Now()
	from, err := w.From(s.now())
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("window: %w", err)
	}
	q := fmt.Sprintf(`
        SELECT date, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ? AND date >= ?
        ORDER BY date ASC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from)
	if err != nil {
		s.logErr("clickhouse fetch_bars query error", symbol, err)
		return models.PriceSeries{}, fmt.Errorf("fetch bars: %w", err)
	}
	defer rows.Close()

	bars := make([]models.PriceBar, 0, 512)
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			s.logErr("clickhouse fetch_bars scan error", symbol, err)
			return models.PriceSeries{}, fmt.Errorf("scan bar: %w", err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		s.logErr("clickhouse fetch_bars rows error", symbol, err)
		return models.PriceSeries{}, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse fetch_bars ok",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.String("window", w.Key()),
			applogger.Int("rows", len(bars)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return models.NewPriceSeries(symbol, bars), nil
}

// StoreBars inserts the series in one batch. Re-inserting a day replaces it on merge.
func (s *CHSeriesStore) StoreBars(ctx context.Context, series models.PriceSeries) error {
	if series.Empty() {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (symbol, date, open, high, low, close, volume)", s.table))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	for _, b := range series.Bars {
		if _, err := stmt.ExecContext(ctx, series.Symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			_ = tx.Rollback()
			s.logErr("clickhouse store_bars append error", series.Symbol, err)
			return fmt.Errorf("append bar: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		s.logErr("clickhouse store_bars send error", series.Symbol, err)
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Health pings the underlying pool.
func (s *CHSeriesStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHSeriesStore) logErr(msg, symbol string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", s.table),
		applogger.String("symbol", symbol),
		applogger.Error(err),
	)
}
