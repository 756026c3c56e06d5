//go:build wireinject
// +build wireinject

package di

import (
	"StockInsight/pkg/config"
	"StockInsight/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideClickHouseClient,
		ProvideCache,

		// Repositories
		ProvideSQLiteStore,
		ProvidePayloadStore,
		ProvideSignalArchive,
		ProvideSignalPublisher,
		ProvideForecastSource,
		ProvideHub,

		// Use cases
		ProvideChartService,
		ProvidePredictionHandler,

		// Transport
		ProvideChartHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
