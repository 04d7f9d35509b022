package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/repository"
	"SignalDesk/pkg/logger"
	"SignalDesk/pkg/util"
)

// YahooChart fetches daily bars from the Yahoo Finance v8 chart API.
type YahooChart struct {
	base     *HTTPServiceBase
	chartURL string
	now      func() time.Time
	logger   *logger.Logger
}

// NewYahooChart returns a SeriesStore backed by chartURL
// (e.g. https://query1.finance.yahoo.com/v8/finance/chart).
func NewYahooChart(base *HTTPServiceBase, chartURL string, log *logger.Logger) *YahooChart {
	if log == nil {
		log = logger.Nop()
	}
	return &YahooChart{
		base:     base,
		chartURL: strings.TrimRight(chartURL, "/"),
		now:      time.Now,
		logger:   log,
	}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
		LongName  string `json:"longName"`
		ShortName string `json:"shortName"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// Fetch implements repository.SeriesStore.
func (y *YahooChart) Fetch(ctx context.Context, symbol string, w repository.Window) (models.PriceSeries, error) {
	now := y.now()
	from, err := w.From(now)
	if err != nil {
		return models.PriceSeries{}, models.Unavailable(symbol, err)
	}

	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("includePrePost", "false")
	q.Set("events", "div,split")
	if from.IsZero() {
		q.Set("range", "max")
	} else {
		q.Set("period1", strconv.FormatInt(from.Unix(), 10))
		q.Set("period2", strconv.FormatInt(now.Unix(), 10))
	}

	var resp chartResponse
	start := time.Now()
	err = y.base.GetJSON(ctx, y.chartURL+"/"+url.PathEscape(symbol), q, &resp)
	if err != nil {
		if isNotFound(err) {
			return models.PriceSeries{}, models.DataUnavailable(symbol, "unknown symbol", err)
		}
		return models.PriceSeries{}, models.Unavailable(symbol, err)
	}
	if e := resp.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return models.PriceSeries{}, models.DataUnavailable(symbol, e.Description, nil)
		}
		return models.PriceSeries{}, models.Unavailable(symbol, fmt.Errorf("chart api: %s: %s", e.Code, e.Description))
	}
	if len(resp.Chart.Result) == 0 {
		return models.PriceSeries{}, models.DataUnavailable(symbol, "empty chart result", nil)
	}

	series := toSeries(symbol, resp.Chart.Result[0])
	y.logger.Debug("yahoo chart fetched",
		logger.String("symbol", symbol),
		logger.Int("bars", series.Len()),
		logger.String("window", w.Key()),
		logger.Duration("duration_ms", time.Since(start)),
	)
	return series, nil
}

// toSeries converts the columnar payload; rows with a null close are skipped.
func toSeries(symbol string, r chartResult) models.PriceSeries {
	if len(r.Indicators.Quote) == 0 {
		return models.NewPriceSeries(symbol, nil)
	}
	q := r.Indicators.Quote[0]
	bars := make([]models.PriceBar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		c := at(q.Close, i)
		if c == nil {
			continue
		}
		bar := models.PriceBar{
			Date:   util.TruncateDay(time.Unix(ts+r.Meta.GMTOffset, 0).UTC()),
			Close:  *c,
			Open:   valueOr(at(q.Open, i), *c),
			High:   valueOr(at(q.High, i), *c),
			Low:    valueOr(at(q.Low, i), *c),
			Volume: valueOr(at(q.Volume, i), 0),
		}
		bars = append(bars, bar)
	}
	return models.NewPriceSeries(symbol, bars)
}

func at(col []*float64, i int) *float64 {
	if i < len(col) {
		return col[i]
	}
	return nil
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

var _ repository.SeriesStore = (*YahooChart)(nil)
