package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	"SignalDesk/pkg/util"
)

// csvBar mirrors the yfinance download layout. Numeric cells stay strings so
// blank and "null" cells survive decoding.
type csvBar struct {
	Date     string `csv:"Date"`
	Open     string `csv:"Open"`
	High     string `csv:"High"`
	Low      string `csv:"Low"`
	Close    string `csv:"Close"`
	AdjClose string `csv:"Adj Close,omitempty"`
	Volume   string `csv:"Volume"`
}

// CSVSeriesStore serves daily bars from <dir>/<SYMBOL>.csv files.
type CSVSeriesStore struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

var (
	_ domrepo.SeriesStore = (*CSVSeriesStore)(nil)
	_ domrepo.BarSink     = (*CSVSeriesStore)(nil)
)

func NewCSVSeriesStore(dir string) *CSVSeriesStore {
	return &CSVSeriesStore{dir: dir, now: time.Now}
}

// Path returns the file backing symbol.
func (s *CSVSeriesStore) Path(symbol string) string {
	return filepath.Join(s.dir, util.NormalizeSymbol(symbol)+".csv")
}

func (s *CSVSeriesStore) Fetch(ctx context.Context, symbol string, w domrepo.Window) (models.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return models.PriceSeries{}, err
	}
	from, err := w.From(s.now())
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("window: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.Path(symbol))
	if errors.Is(err, fs.ErrNotExist) {
		return models.PriceSeries{}, models.DataUnavailable(symbol, "no csv file", err)
	}
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	var rows []*csvBar
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return models.PriceSeries{Symbol: symbol}, nil
		}
		return models.PriceSeries{}, fmt.Errorf("decode csv: %w", err)
	}

	bars := make([]models.PriceBar, 0, len(rows))
	for _, r := range rows {
		b, ok := r.toBar()
		if !ok {
			continue
		}
		if !from.IsZero() && b.Date.Before(from) {
			continue
		}
		bars = append(bars, b)
	}
	return models.NewPriceSeries(symbol, bars), nil
}

// StoreBars rewrites the symbol's file with the given series.
func (s *CSVSeriesStore) StoreBars(_ context.Context, series models.PriceSeries) error {
	if series.Empty() {
		return nil
	}
	rows := make([]*csvBar, 0, series.Len())
	for _, b := range series.Bars {
		rows = append(rows, &csvBar{
			Date:     b.Date.Format(util.DateLayout),
			Open:     formatFloat(b.Open),
			High:     formatFloat(b.High),
			Low:      formatFloat(b.Low),
			Close:    formatFloat(b.Close),
			AdjClose: formatFloat(b.Close),
			Volume:   formatFloat(b.Volume),
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("csv dir: %w", err)
	}
	tmp := s.Path(series.Symbol) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode csv: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.Path(series.Symbol))
}

func (r *csvBar) toBar() (models.PriceBar, bool) {
	raw := strings.TrimSpace(r.Date)
	d, ok := util.ParseTime(raw)
	if !ok {
		// "2024-01-02 00:00:00+09:00" and similar stamped dates
		if d, ok = util.ParseTime(firstN(raw, len(util.DateLayout))); !ok {
			return models.PriceBar{}, false
		}
	}
	d = util.TruncateDay(d)
	c, ok := parseCell(r.Close)
	if !ok {
		return models.PriceBar{}, false
	}
	b := models.PriceBar{Date: d, Close: c}
	b.Open, _ = parseCell(r.Open)
	b.High, _ = parseCell(r.High)
	b.Low, _ = parseCell(r.Low)
	b.Volume, _ = parseCell(r.Volume)
	return b, true
}

func parseCell(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "nan") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func firstN(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
