package di

import (
	"context"
	"fmt"
	"time"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/repository"
	domsvc "SignalDesk/internal/domain/service"
	"SignalDesk/internal/handler/api"
	internalrepo "SignalDesk/internal/repository"
	icache "SignalDesk/internal/service/cache"
	"SignalDesk/internal/service/ratelimit"
	"SignalDesk/internal/services/advisor"
	"SignalDesk/internal/services/features"
	"SignalDesk/internal/services/marketdata"
	"SignalDesk/internal/services/model"
	"SignalDesk/internal/usecase"
	pkgcache "SignalDesk/pkg/cache"
	pkgch "SignalDesk/pkg/clickhouse"
	"SignalDesk/pkg/config"
	xhttp "SignalDesk/pkg/http"
	pkgkafka "SignalDesk/pkg/kafka"
	applogger "SignalDesk/pkg/logger"
	"SignalDesk/pkg/metrics"
	"SignalDesk/pkg/server"
	"SignalDesk/pkg/util"
)

// ProvideLogger builds the application logger. With the collector enabled,
// repeated errors are aggregated and shipped through the Kafka producer.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:           cfg.Log.Level,
		Format:          cfg.Log.Format,
		Output:          cfg.Log.Output,
		CollectWarnings: cfg.Log.Collector.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.Threshold,
			Topic:          cfg.Log.Collector.Topic,
			Publisher:      producer,
		})
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCacheBackend builds the memory, redis or layered result store.
func ProvideCacheBackend(cfg *config.Config) (pkgcache.Service, func(), error) {
	rc := cfg.Cache.Redis
	backend, err := pkgcache.New(cfg.Cache.Backend,
		[]pkgcache.RedisOption{
			pkgcache.WithRedisHost(rc.Host),
			pkgcache.WithRedisPort(rc.Port),
			pkgcache.WithRedisPassword(rc.Password),
			pkgcache.WithRedisDB(rc.DB),
			pkgcache.WithRedisPool(rc.PoolSize, rc.PoolSize/2, 5*time.Second),
			pkgcache.WithRedisPrefix(rc.Prefix),
		},
		pkgcache.WithMemoryMaxSize(cfg.Cache.MaxEntries),
		pkgcache.WithL1TTL(cfg.Cache.L1TTL),
		pkgcache.WithMemoryCleanup(cfg.Cache.CleanupInterval),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("cache backend: %w", err)
	}
	return backend, func() { _ = backend.Close() }, nil
}

// ProvideResultCache wraps the backend with the configured TTL.
func ProvideResultCache(backend pkgcache.Service, cfg *config.Config, l *applogger.Logger, m repository.Metrics) *icache.ResultCache {
	return icache.NewResultCache(backend, cfg.Cache.TTL, l, m)
}

// ProvideHTTPServiceBase builds the shared rate-limited Yahoo client.
func ProvideHTTPServiceBase(cfg *config.Config, l *applogger.Logger) *marketdata.HTTPServiceBase {
	y := cfg.Source.Yahoo
	return marketdata.NewHTTPServiceBase(marketdata.ClientConfig{
		Timeout:        y.Timeout,
		UserAgent:      y.UserAgent,
		RPS:            y.RPS,
		Burst:          y.Burst,
		MaxRetries:     y.MaxRetries,
		InitialBackoff: y.InitialBackoff,
		MaxBackoff:     y.MaxBackoff,
	}, l)
}

// ProvideClickHouseClient connects only when the series source needs ClickHouse.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if cfg.Source.Kind != "clickhouse" && cfg.Source.Kind != "archive" {
		return nil, func() {}, nil
	}
	ch := cfg.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithHost(ch.Host),
		pkgch.WithPort(ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithAsyncInsert(ch.AsyncInsert, ch.WaitForAsync),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout, ch.WriteTimeout),
		pkgch.WithMaxExecutionTime(ch.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if ch.InitSchema {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		stmts := append([]string{"CREATE DATABASE IF NOT EXISTS " + client.Database()},
			internalrepo.BarsSchema(client.Database(), ch.Table)...)
		if err := client.InitSchema(ctx, stmts); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideSeriesStore selects the price history source.
func ProvideSeriesStore(cfg *config.Config, base *marketdata.HTTPServiceBase, ch *pkgch.Client, l *applogger.Logger) (repository.SeriesStore, error) {
	yahoo := func() repository.SeriesStore {
		return marketdata.NewYahooChart(base, cfg.Source.Yahoo.ChartURL, l)
	}
	chStore := func() (*internalrepo.CHSeriesStore, error) {
		if ch == nil {
			return nil, fmt.Errorf("source %q needs a clickhouse client", cfg.Source.Kind)
		}
		s := internalrepo.NewCHSeriesStore(ch, cfg.ClickHouse.Table)
		s.SetLogger(l)
		return s, nil
	}

	switch cfg.Source.Kind {
	case "yahoo":
		return yahoo(), nil
	case "csv":
		return internalrepo.NewCSVSeriesStore(cfg.Source.CSVDir), nil
	case "clickhouse":
		return chStore()
	case "archive":
		sink, err := chStore()
		if err != nil {
			return nil, err
		}
		return internalrepo.NewArchivingStore(yahoo(), sink, l), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

// ProvideNameLookup resolves display names from config and Yahoo search.
func ProvideNameLookup(cfg *config.Config, base *marketdata.HTTPServiceBase, l *applogger.Logger) repository.NameLookup {
	y := cfg.Source.Yahoo
	return marketdata.NewNameResolver(cfg.Source.Names, base, y.SearchURL, y.NameCacheTTL, l)
}

// ProvideAnalyzerConfig maps the engine block onto the pipeline configuration.
func ProvideAnalyzerConfig(cfg *config.Config) (usecase.AnalyzerConfig, error) {
	e := cfg.Engine
	window := repository.Window{Period: e.HistoryPeriod}
	if e.HistoryPeriod == "" {
		start, err := time.Parse(util.DateLayout, e.HistoryStart)
		if err != nil {
			return usecase.AnalyzerConfig{}, fmt.Errorf("engine.history_start: %w", err)
		}
		window.Start = start
	}
	return usecase.AnalyzerConfig{
		DefaultSymbol: e.DefaultSymbol,
		FeatureSet:    models.FeatureSet(e.FeatureSet),
		Classifier:    e.Classifier,
		Params: model.Params{
			Seed:         e.Seed,
			Trees:        e.Trees,
			MaxDepth:     e.MaxDepth,
			MinLeaf:      e.MinLeaf,
			LearningRate: e.LearningRate,
			Subsample:    e.Subsample,
		},
		Window:     window,
		MinSamples: e.MinSamples,
		Indicators: features.Config{
			RSIPeriod:        e.RSIPeriod,
			SaturateZeroLoss: e.SaturateZeroLoss,
		},
		BandWindow:     e.BandWindow,
		ComputeTimeout: e.ComputeTimeout,
	}, nil
}

// ProvideClassifier builds the configured ensemble family.
func ProvideClassifier(ac usecase.AnalyzerConfig) (domsvc.Classifier, error) {
	return model.New(ac.Classifier, ac.Params)
}

// ProvideAdvisor builds the recommendation policy.
func ProvideAdvisor(cfg *config.Config) (domsvc.Advisor, error) {
	p := advisor.Policy{
		AvoidBelow:           cfg.Policy.AvoidBelow,
		OpportunityAbove:     cfg.Policy.OpportunityAbove,
		AverageDownReturn:    cfg.Policy.AverageDownReturn,
		AverageDownMinProb:   cfg.Policy.AverageDownMinProb,
		TakeProfitReturn:     cfg.Policy.TakeProfitReturn,
		NearSupportFactor:    cfg.Policy.NearSupportFactor,
		NearResistanceFactor: cfg.Policy.NearResistanceFactor,
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	return advisor.New(p), nil
}

// ProvideAnalyzer assembles the engine entry point.
func ProvideAnalyzer(
	ac usecase.AnalyzerConfig,
	store repository.SeriesStore,
	names repository.NameLookup,
	classifier domsvc.Classifier,
	adv domsvc.Advisor,
	results *icache.ResultCache,
	l *applogger.Logger,
	m repository.Metrics,
) *usecase.Analyzer {
	return usecase.NewAnalyzer(ac, store, names, classifier, adv, results, l, m)
}

// ProvideKafkaProducer creates a Kafka producer when Kafka is enabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideKafkaConsumer creates the refresh-request consumer when Kafka is enabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	c := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(c.GroupID),
		pkgkafka.WithConsumerWorkers(c.Workers),
		pkgkafka.WithConsumerBufferSize(c.BufferSize),
		pkgkafka.WithConsumerRetry(c.RetryMax, c.BackoffMin, c.BackoffMax),
		pkgkafka.WithConsumerDLQ(c.DLQTopic),
		pkgkafka.WithConsumerFetch(c.MinBytes, c.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook())
	return consumer, nil
}

// ProvideRefreshHandler consumes recompute requests.
func ProvideRefreshHandler(cfg *config.Config, a *usecase.Analyzer, l *applogger.Logger) *usecase.RefreshHandler {
	return usecase.NewRefreshHandler(cfg.Kafka.RefreshTopic, a, l)
}

// ProvideWarmer schedules watchlist warm-ups.
func ProvideWarmer(cfg *config.Config, a *usecase.Analyzer, l *applogger.Logger) *usecase.Warmer {
	return usecase.NewWarmer(a, cfg.Warmup.Symbols, cfg.Engine.ComputeTimeout, l)
}

// ProvideRateLimiter returns nil when inbound limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.Idle)
}

// ProvideAnalysisHandler exposes the analyzer over HTTP.
func ProvideAnalysisHandler(l *applogger.Logger, a *usecase.Analyzer) *api.AnalysisEchoHandler {
	return api.NewAnalysisEchoHandler(l, a)
}

// ProvideHTTPServer builds the echo server with the standard middleware chain.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.AnalysisEchoHandler, limiter *ratelimit.Limiter) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS, cfg.Server.CORSOrigins...),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithLogger(l),
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	opts = append(opts, xhttp.WithMetricsPath(metricsPath))
	if limiter != nil {
		opts = append(opts, xhttp.WithMiddleware(ratelimit.Middleware(limiter, "/healthz", metricsPath)))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	refresh *usecase.RefreshHandler,
	warmer *usecase.Warmer,
	limiter *ratelimit.Limiter,
) *server.App {
	app := server.New(cfg, l, srv)
	if consumer != nil {
		app.SetConsumer(consumer, refresh)
	}
	if cfg.Warmup.Enabled {
		app.SetWarmer(warmer)
	}
	if limiter != nil {
		app.SetSweeper(limiter)
	}
	return app
}
