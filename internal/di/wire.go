//go:build wireinject
// +build wireinject

package di

import (
	"FinYield/pkg/config"
	"FinYield/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideClickHouseClient,
		ProvideCache,

		// Repositories
		ProvideStore,
		ProvideQuoteStore,
		ProvidePublisher,

		// Use cases
		ProvideValuer,
		ProvideRunnerConfig,
		ProvideValuationRunner,
		ProvideAdhocValuer,
		ProvideQuoteCollector,
		ProvideIndexSync,
		ProvideScheduler,
		ProvideKafkaConsumer,
		ProvideKafkaQuotesHandler,

		// HTTP
		ProvideValuationsHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
