package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	domsvc "SignalDesk/internal/domain/service"
	"SignalDesk/internal/service/cache"
	"SignalDesk/internal/services/features"
	"SignalDesk/internal/services/levels"
	"SignalDesk/internal/services/model"
	"SignalDesk/pkg/logger"
	"SignalDesk/pkg/util"
)

// Analysis outcomes reported to metrics.
const (
	OutcomeSuccess      = "success"
	OutcomeNoData       = "data_unavailable"
	OutcomeInsufficient = "insufficient_data"
	OutcomeUnavailable  = "unavailable"
)

// AnalyzerConfig pins everything that influences a result. Two analyzers with
// equal configs produce the same fingerprint and share cache entries.
type AnalyzerConfig struct {
	DefaultSymbol  string
	FeatureSet     models.FeatureSet
	Classifier     string
	Params         model.Params
	Window         domrepo.Window
	MinSamples     int
	Indicators     features.Config
	BandWindow     int
	ComputeTimeout time.Duration
}

// DefaultAnalyzerConfig mirrors the configuration defaults.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		DefaultSymbol:  "408920.KQ",
		FeatureSet:     models.FeatureSetExtended,
		Classifier:     model.ShallowEnsembleA,
		Params:         model.DefaultParams(),
		Window:         domrepo.Window{Start: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)},
		MinSamples:     features.DefaultMinSamples,
		Indicators:     features.DefaultConfig(),
		BandWindow:     levels.DefaultWindow,
		ComputeTimeout: 45 * time.Second,
	}
}

// Fingerprint hashes the result-affecting fields.
func (c AnalyzerConfig) Fingerprint() string {
	p := c.Params
	raw := fmt.Sprintf("fs=%s|clf=%s|seed=%d|trees=%d|depth=%d|leaf=%d|lr=%g|sub=%g|win=%s|min=%d|rsi=%d|sat=%t|band=%d",
		c.FeatureSet, c.Classifier, p.Seed, p.Trees, p.MaxDepth, p.MinLeaf, p.LearningRate, p.Subsample,
		c.Window.Key(), c.MinSamples, c.Indicators.RSIPeriod, c.Indicators.SaturateZeroLoss, c.BandWindow)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:6])
}

// Analyzer runs fetch, features, labels, model and band behind the result cache
// and applies the recommendation policy on every call.
type Analyzer struct {
	cfg         AnalyzerConfig
	fingerprint string
	store       domrepo.SeriesStore
	names       domrepo.NameLookup
	classifier  domsvc.Classifier
	advisor     domsvc.Advisor
	results     *cache.ResultCache
	metrics     domrepo.Metrics
	log         *logger.Logger
	now         func() time.Time
}

func NewAnalyzer(
	cfg AnalyzerConfig,
	store domrepo.SeriesStore,
	names domrepo.NameLookup,
	classifier domsvc.Classifier,
	advisor domsvc.Advisor,
	results *cache.ResultCache,
	log *logger.Logger,
	m domrepo.Metrics,
) *Analyzer {
	if !cfg.FeatureSet.Valid() {
		cfg.FeatureSet = models.FeatureSetExtended
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = features.DefaultMinSamples
	}
	if cfg.BandWindow <= 0 {
		cfg.BandWindow = levels.DefaultWindow
	}
	if cfg.Indicators.RSIPeriod <= 0 {
		cfg.Indicators.RSIPeriod = features.DefaultRSIPeriod
	}
	if classifier != nil {
		cfg.Classifier = classifier.Name()
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = domrepo.NopMetrics{}
	}
	return &Analyzer{
		cfg:         cfg,
		fingerprint: cfg.Fingerprint(),
		store:       store,
		names:       names,
		classifier:  classifier,
		advisor:     advisor,
		results:     results,
		metrics:     m,
		log:         log.With(logger.String("component", "analyzer")),
		now:         time.Now,
	}
}

// Config returns the effective configuration.
func (a *Analyzer) Config() AnalyzerConfig { return a.cfg }

// Fingerprint returns the cache fingerprint of the configuration.
func (a *Analyzer) Fingerprint() string { return a.fingerprint }

// Symbol normalizes a requested symbol, falling back to the default instrument.
func (a *Analyzer) Symbol(symbol string) string {
	if s := util.NormalizeSymbol(symbol); s != "" {
		return s
	}
	return util.NormalizeSymbol(a.cfg.DefaultSymbol)
}

// Analyze returns a result and recommendation for symbol, or an error whose
// kind is one of models.ErrDataUnavailable, models.ErrInsufficientData or
// models.ErrAnalysisUnavailable. costBasis <= 0 means no position.
func (a *Analyzer) Analyze(ctx context.Context, symbol string, costBasis float64) (*models.Analysis, error) {
	start := time.Now()
	sym := a.Symbol(symbol)
	pos := models.UserPosition{CostBasis: costBasis}
	if math.IsNaN(costBasis) || math.IsInf(costBasis, 0) || costBasis < 0 {
		a.log.Warn("ignoring invalid cost basis",
			logger.String("symbol", sym),
			logger.Float64("cost_basis", costBasis),
		)
		pos.CostBasis = 0
	}

	res, hit, err := a.results.GetOrCompute(ctx, sym, a.fingerprint, func(ctx context.Context) (models.AnalysisResult, error) {
		return a.compute(ctx, sym)
	})
	a.metrics.RecordLatency("analyze", time.Since(start).Seconds())
	if err != nil {
		aerr := asAnalysisError(sym, err)
		a.metrics.RecordAnalysis(outcomeOf(aerr))
		a.logFailure(sym, aerr)
		return nil, aerr
	}
	a.metrics.RecordAnalysis(OutcomeSuccess)
	a.metrics.RecordProbability(sym, res.ProbabilityOfRise)

	rec := a.advisor.Recommend(res, pos)
	a.log.Debug("analysis served",
		logger.String("symbol", sym),
		logger.Bool("cached", hit),
		logger.String("tier", string(rec.Tier)),
		logger.Float64("p", res.ProbabilityOfRise),
		logger.Duration("duration_ms", time.Since(start)),
	)
	return &models.Analysis{Result: res, Recommendation: rec, Cached: hit}, nil
}

// Bars returns the trailing limit bars of symbol from the series store, uncached.
func (a *Analyzer) Bars(ctx context.Context, symbol string, limit int) (models.PriceSeries, error) {
	sym := a.Symbol(symbol)
	series, err := a.fetch(ctx, sym)
	if err != nil {
		return models.PriceSeries{}, err
	}
	return models.PriceSeries{Symbol: sym, Bars: series.Tail(limit)}, nil
}

// Invalidate drops every cached result of symbol.
func (a *Analyzer) Invalidate(ctx context.Context, symbol string) error {
	return a.results.Invalidate(ctx, a.Symbol(symbol))
}

// LookupDisplayName resolves the instrument name, falling back to the symbol.
func (a *Analyzer) LookupDisplayName(ctx context.Context, symbol string) string {
	sym := a.Symbol(symbol)
	if a.names == nil {
		return sym
	}
	if name := strings.TrimSpace(a.names.LookupDisplayName(ctx, sym)); name != "" {
		return name
	}
	return sym
}

func (a *Analyzer) compute(ctx context.Context, sym string) (res models.AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("analysis pipeline panic", logger.String("symbol", sym), logger.Any("panic", r))
			err = models.Unavailable(sym, fmt.Errorf("panic: %v", r))
		}
	}()
	if a.cfg.ComputeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.ComputeTimeout)
		defer cancel()
	}
	if a.classifier == nil {
		return res, models.Unavailable(sym, errors.New("no classifier configured"))
	}

	series, err := a.fetch(ctx, sym)
	if err != nil {
		return res, err
	}
	if series.Empty() {
		return res, models.DataUnavailable(sym, "empty series", nil)
	}

	fs := a.cfg.FeatureSet
	rows := features.DropIncomplete(features.Compute(series, a.cfg.Indicators), fs)
	ts, err := features.BuildTrainingSet(sym, rows, series.Closes(), a.cfg.MinSamples)
	if err != nil {
		return res, err
	}

	fitStart := time.Now()
	x, y := ts.Matrix(fs)
	m, err := a.classifier.Fit(x, y)
	if err != nil {
		return res, models.Unavailable(sym, fmt.Errorf("fit %s: %w", a.classifier.Name(), err))
	}
	p, ok := model.Clamp(m.PredictProba(ts.Inference.Vector(fs)))
	if !ok {
		return res, models.Unavailable(sym, errors.New("model returned a non-finite probability"))
	}
	a.metrics.RecordLatency("fit", time.Since(fitStart).Seconds())

	band, err := levels.Extract(series, a.cfg.BandWindow)
	if err != nil {
		return res, models.Unavailable(sym, err)
	}

	last := series.Last()
	if !ts.Inference.Date.Equal(last.Date) {
		a.log.Warn("latest bar has incomplete features, predicting from an earlier bar",
			logger.String("symbol", sym),
			logger.String("as_of", last.Date.Format(time.DateOnly)),
			logger.String("predicted_for", ts.Inference.Date.Format(time.DateOnly)))
	}
	return models.AnalysisResult{
		Symbol:            sym,
		DisplayName:       a.LookupDisplayName(ctx, sym),
		CurrentPrice:      last.Close,
		Support:           band.Support,
		Resistance:        band.Resistance,
		ProbabilityOfRise: p,
		AsOf:              last.Date,
		PredictedFor:      ts.Inference.Date,
		FeatureSet:        fs,
		Classifier:        a.classifier.Name(),
		TrainingRows:      len(ts.Rows),
		ComputedAt:        a.now().UTC(),
	}, nil
}

func (a *Analyzer) fetch(ctx context.Context, sym string) (models.PriceSeries, error) {
	start := time.Now()
	series, err := a.store.Fetch(ctx, sym, a.cfg.Window)
	a.metrics.RecordLatency("fetch", time.Since(start).Seconds())
	if err != nil {
		return models.PriceSeries{}, asAnalysisError(sym, fmt.Errorf("fetch: %w", err))
	}
	return series, nil
}

func (a *Analyzer) logFailure(sym string, err *models.AnalysisError) {
	fields := []logger.Field{
		logger.String("symbol", sym),
		logger.String("kind", err.Kind.Error()),
		logger.Error(err),
	}
	if errors.Is(err, models.ErrAnalysisUnavailable) {
		a.metrics.RecordError("analysis")
		a.log.Error("analysis unavailable", fields...)
		return
	}
	a.log.Info("analysis rejected", fields...)
}

// asAnalysisError keeps typed failures and collapses everything else.
func asAnalysisError(sym string, err error) *models.AnalysisError {
	var aerr *models.AnalysisError
	if errors.As(err, &aerr) {
		return aerr
	}
	return models.Unavailable(sym, err)
}

func outcomeOf(err error) string {
	switch models.Classify(err) {
	case models.ErrDataUnavailable:
		return OutcomeNoData
	case models.ErrInsufficientData:
		return OutcomeInsufficient
	default:
		return OutcomeUnavailable
	}
}
