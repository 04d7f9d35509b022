//go:build wireinject
// +build wireinject

package di

import (
	"SignalDesk/internal/usecase"
	"SignalDesk/pkg/config"
	"SignalDesk/pkg/server"

	"github.com/google/wire"
)

var engineSet = wire.NewSet(
	// Observability
	ProvideKafkaProducer,
	ProvideLogger,
	ProvideMetrics,

	// Infrastructure clients
	ProvideCacheBackend,
	ProvideClickHouseClient,
	ProvideHTTPServiceBase,

	// Repositories
	ProvideSeriesStore,
	ProvideNameLookup,

	// Engine
	ProvideResultCache,
	ProvideAnalyzerConfig,
	ProvideClassifier,
	ProvideAdvisor,
	ProvideAnalyzer,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		engineSet,

		// Background work
		ProvideKafkaConsumer,
		ProvideRefreshHandler,
		ProvideWarmer,

		// HTTP
		ProvideRateLimiter,
		ProvideAnalysisHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeAnalyzer wires only the engine, for one-shot CLI use.
func InitializeAnalyzer(cfg *config.Config) (*usecase.Analyzer, func(), error) {
	wire.Build(engineSet)
	return nil, nil, nil
}
