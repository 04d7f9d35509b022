package usecase

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	domsvc "SignalDesk/internal/domain/service"
	"SignalDesk/internal/service/cache"
	"SignalDesk/internal/services/advisor"
	"SignalDesk/internal/services/model"
	pkgcache "SignalDesk/pkg/cache"
)

type countingStore struct {
	series models.PriceSeries
	err    error
	calls  atomic.Int32
}

func (s *countingStore) Fetch(_ context.Context, symbol string, _ domrepo.Window) (models.PriceSeries, error) {
	s.calls.Add(1)
	if s.err != nil {
		return models.PriceSeries{}, s.err
	}
	out := s.series
	out.Symbol = symbol
	return out, nil
}

type staticNames map[string]string

func (n staticNames) LookupDisplayName(_ context.Context, symbol string) string {
	if v, ok := n[symbol]; ok {
		return v
	}
	return symbol
}

type constModel float64

func (m constModel) PredictProba([]float64) float64 { return float64(m) }

type constClassifier struct {
	p     float64
	panic bool
}

func (c constClassifier) Name() string { return "const" }

func (c constClassifier) Fit([][]float64, []float64) (domsvc.Model, error) {
	if c.panic {
		panic("boom")
	}
	return constModel(c.p), nil
}

func risingSeries(n int, from, to float64) models.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, n)
	for i := range bars {
		c := from
		if n > 1 {
			c = from + float64(i)*(to-from)/float64(n-1)
		}
		bars[i] = models.PriceBar{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return models.NewPriceSeries("", bars)
}

func wavySeries(n int, last float64) models.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, n)
	for i := range bars {
		c := last + 10*math.Sin(float64(i))
		if i == n-1 {
			c = last
		}
		bars[i] = models.PriceBar{Date: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000 + float64(i%5)*100}
	}
	return models.NewPriceSeries("", bars)
}

func newAnalyzer(t *testing.T, store domrepo.SeriesStore, clf domsvc.Classifier) *Analyzer {
	t.Helper()
	if clf == nil {
		var err error
		clf, err = model.New(model.ShallowEnsembleA, model.DefaultParams())
		require.NoError(t, err)
	}
	mem := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })
	results := cache.NewResultCache(mem, time.Hour, nil, nil)
	return NewAnalyzer(DefaultAnalyzerConfig(), store, staticNames{"408920.KQ": "Messe eSang"}, clf,
		advisor.New(advisor.DefaultPolicy()), results, nil, nil)
}

func TestAnalyze_RisingSeriesIsOpportunity(t *testing.T) {
	store := &countingStore{series: risingSeries(30, 100, 130)}
	a := newAnalyzer(t, store, nil)

	got, err := a.Analyze(context.Background(), "408920.kq", 0)
	require.NoError(t, err)

	res := got.Result
	assert.Equal(t, "408920.KQ", res.Symbol)
	assert.Equal(t, "Messe eSang", res.DisplayName)
	assert.InDelta(t, 130, res.CurrentPrice, 1e-9)
	assert.InDelta(t, 130, res.Resistance, 1e-9)
	assert.LessOrEqual(t, res.Support, res.Resistance)
	assert.GreaterOrEqual(t, res.ProbabilityOfRise, 0.0)
	assert.LessOrEqual(t, res.ProbabilityOfRise, 1.0)
	assert.Equal(t, 15, res.TrainingRows)
	assert.Equal(t, models.TierOpportunity, got.Recommendation.Tier)
	assert.False(t, got.Cached)
}

func TestAnalyze_TooFewBars(t *testing.T) {
	a := newAnalyzer(t, &countingStore{series: risingSeries(10, 100, 110)}, nil)

	_, err := a.Analyze(context.Background(), "ABC", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	var aerr *models.AnalysisError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, 15, aerr.Required)
}

func TestAnalyze_EmptySeries(t *testing.T) {
	a := newAnalyzer(t, &countingStore{}, nil)
	_, err := a.Analyze(context.Background(), "ABC", 0)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}

func TestAnalyze_StoreFailures(t *testing.T) {
	t.Run("unknown symbol", func(t *testing.T) {
		store := &countingStore{err: models.DataUnavailable("ZZZ", "not found", nil)}
		_, err := newAnalyzer(t, store, nil).Analyze(context.Background(), "ZZZ", 0)
		assert.ErrorIs(t, err, models.ErrDataUnavailable)
	})
	t.Run("network error", func(t *testing.T) {
		store := &countingStore{err: errors.New("connection reset")}
		_, err := newAnalyzer(t, store, nil).Analyze(context.Background(), "ABC", 0)
		assert.ErrorIs(t, err, models.ErrAnalysisUnavailable)
	})
}

func TestAnalyze_PanicIsUnavailable(t *testing.T) {
	store := &countingStore{series: risingSeries(30, 100, 130)}
	a := newAnalyzer(t, store, constClassifier{panic: true})

	_, err := a.Analyze(context.Background(), "ABC", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrAnalysisUnavailable)
}

func TestAnalyze_SecondCallIsCached(t *testing.T) {
	store := &countingStore{series: risingSeries(30, 100, 130)}
	a := newAnalyzer(t, store, nil)

	first, err := a.Analyze(context.Background(), "ABC", 0)
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), "ABC", 120)
	require.NoError(t, err)

	assert.Equal(t, int32(1), store.calls.Load())
	assert.True(t, second.Cached)
	assert.Equal(t, first.Result, second.Result)
	assert.Nil(t, first.Recommendation.ReturnRate)
	require.NotNil(t, second.Recommendation.ReturnRate)
	assert.True(t, second.Recommendation.Has(models.OverlayTakeProfit))
}

func TestAnalyze_FailuresAreNotCached(t *testing.T) {
	store := &countingStore{err: errors.New("timeout")}
	a := newAnalyzer(t, store, nil)

	_, err := a.Analyze(context.Background(), "ABC", 0)
	require.Error(t, err)
	_, err = a.Analyze(context.Background(), "ABC", 0)
	require.Error(t, err)
	assert.Equal(t, int32(2), store.calls.Load())
}

func TestAnalyze_Deterministic(t *testing.T) {
	series := wavySeries(80, 150)
	a1 := newAnalyzer(t, &countingStore{series: series}, nil)
	a2 := newAnalyzer(t, &countingStore{series: series}, nil)

	r1, err := a1.Analyze(context.Background(), "ABC", 0)
	require.NoError(t, err)
	r2, err := a2.Analyze(context.Background(), "ABC", 0)
	require.NoError(t, err)
	assert.Equal(t, r1.Result.ProbabilityOfRise, r2.Result.ProbabilityOfRise)
	assert.Equal(t, r1.Result.Support, r2.Result.Support)
	assert.Equal(t, r1.Result.Resistance, r2.Result.Resistance)
	assert.Equal(t, r1.Result.PredictedFor, r2.Result.PredictedFor)
	assert.Equal(t, r1.Recommendation, r2.Recommendation)
}

func TestAnalyze_PredictedForTracksInferenceRow(t *testing.T) {
	series := wavySeries(60, 150)
	series.Bars[58].Volume = 0
	a := newAnalyzer(t, &countingStore{series: series}, nil)

	got, err := a.Analyze(context.Background(), "ABC", 0)
	require.NoError(t, err)
	assert.Equal(t, series.Bars[59].Date, got.Result.AsOf)
	assert.Equal(t, series.Bars[58].Date, got.Result.PredictedFor)
	assert.Equal(t, 150.0, got.Result.CurrentPrice)
}

func TestAnalyze_PredictedForIsLatestBarWhenComplete(t *testing.T) {
	series := wavySeries(60, 150)
	a := newAnalyzer(t, &countingStore{series: series}, nil)

	got, err := a.Analyze(context.Background(), "ABC", 0)
	require.NoError(t, err)
	assert.Equal(t, got.Result.AsOf, got.Result.PredictedFor)
}

func TestAnalyze_AverageDown(t *testing.T) {
	store := &countingStore{series: wavySeries(40, 150)}
	a := newAnalyzer(t, store, constClassifier{p: 0.7})

	got, err := a.Analyze(context.Background(), "ABC", 200)
	require.NoError(t, err)

	rec := got.Recommendation
	assert.Equal(t, models.TierOpportunity, rec.Tier)
	assert.True(t, rec.Has(models.OverlayAverageDown))
	require.NotNil(t, rec.ReturnRate)
	assert.InDelta(t, -0.25, *rec.ReturnRate, 1e-9)
}

func TestAnalyze_InvalidCostBasisIsIgnored(t *testing.T) {
	store := &countingStore{series: wavySeries(40, 150)}
	a := newAnalyzer(t, store, constClassifier{p: 0.5})

	got, err := a.Analyze(context.Background(), "ABC", -10)
	require.NoError(t, err)
	assert.Nil(t, got.Recommendation.ReturnRate)
	assert.Equal(t, models.TierNeutralWatch, got.Recommendation.Tier)
}

func TestAnalyze_DefaultSymbol(t *testing.T) {
	store := &countingStore{series: risingSeries(30, 100, 130)}
	a := newAnalyzer(t, store, nil)

	got, err := a.Analyze(context.Background(), "  ", 0)
	require.NoError(t, err)
	assert.Equal(t, "408920.KQ", got.Result.Symbol)
}

func TestAnalyzer_InvalidateForcesRecompute(t *testing.T) {
	store := &countingStore{series: risingSeries(30, 100, 130)}
	a := newAnalyzer(t, store, nil)

	_, err := a.Analyze(context.Background(), "ABC", 0)
	require.NoError(t, err)
	require.NoError(t, a.Invalidate(context.Background(), "abc"))
	_, err = a.Analyze(context.Background(), "ABC", 0)
	require.NoError(t, err)
	assert.Equal(t, int32(2), store.calls.Load())
}

func TestAnalyzer_Bars(t *testing.T) {
	a := newAnalyzer(t, &countingStore{series: risingSeries(30, 100, 130)}, nil)

	got, err := a.Bars(context.Background(), "abc", 5)
	require.NoError(t, err)
	assert.Equal(t, "ABC", got.Symbol)
	assert.Len(t, got.Bars, 5)
	assert.InDelta(t, 130, got.Last().Close, 1e-9)
}

func TestAnalyzer_LookupDisplayName(t *testing.T) {
	a := newAnalyzer(t, &countingStore{}, nil)
	assert.Equal(t, "Messe eSang", a.LookupDisplayName(context.Background(), "408920.kq"))
	assert.Equal(t, "XYZ", a.LookupDisplayName(context.Background(), "xyz"))
}

func TestAnalyzerConfig_Fingerprint(t *testing.T) {
	base := DefaultAnalyzerConfig()
	assert.Equal(t, base.Fingerprint(), DefaultAnalyzerConfig().Fingerprint())

	seeded := base
	seeded.Params.Seed = 7
	assert.NotEqual(t, base.Fingerprint(), seeded.Fingerprint())

	minimal := base
	minimal.FeatureSet = models.FeatureSetMinimal
	assert.NotEqual(t, base.Fingerprint(), minimal.Fingerprint())
}

func TestRefreshHandler(t *testing.T) {
	store := &countingStore{series: risingSeries(30, 100, 130)}
	a := newAnalyzer(t, store, nil)
	h := NewRefreshHandler("signaldesk.refresh", a, nil)
	assert.Equal(t, "signaldesk.refresh", h.Topic())

	require.NoError(t, h.Handle(context.Background(), []byte(`{"symbol":"abc"}`)))
	require.NoError(t, h.Handle(context.Background(), []byte(`{"symbol":"abc","invalidate":true}`)))
	assert.Equal(t, int32(2), store.calls.Load())

	err := h.Handle(context.Background(), []byte(`not json`))
	var perm *backoff.PermanentError
	assert.True(t, errors.As(err, &perm))
}

func TestRefreshHandler_DataFailuresArePermanent(t *testing.T) {
	a := newAnalyzer(t, &countingStore{series: risingSeries(5, 100, 105)}, nil)
	h := NewRefreshHandler("t", a, nil)

	err := h.Handle(context.Background(), []byte(`{"symbol":"abc"}`))
	var perm *backoff.PermanentError
	require.True(t, errors.As(err, &perm))
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestWarmer_WarmAll(t *testing.T) {
	store := &countingStore{series: risingSeries(30, 100, 130)}
	a := newAnalyzer(t, store, nil)
	w := NewWarmer(a, []string{"AAA", "BBB", "AAA"}, time.Second, nil)

	assert.Equal(t, 3, w.WarmAll(context.Background()))
	assert.Equal(t, int32(2), store.calls.Load())
	assert.Error(t, NewWarmer(a, nil, 0, nil).Start("@every 1m"))
}
