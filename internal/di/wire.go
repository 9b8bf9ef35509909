//go:build wireinject
// +build wireinject

package di

import (
	"Predictelligence/pkg/config"
	"Predictelligence/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideCache,

		// Data source + ledger
		ProvideMacroSource,
		ProvideLedger,

		// Use cases
		ProvidePipeline,
		ProvideScheduler,

		// HTTP
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
