//go:build wireinject
// +build wireinject

package di

import (
	"AutoValue/pkg/config"
	"AutoValue/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,
		ProvideAPIMetrics,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogShipping,
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideTTLCache,
		ProvideResultCache,

		// Repositories
		ProvideValuationStore,
		ProvideEventPublisher,

		// Use cases
		ProvideValuator,
		ProvideFeedHub,
		ProvideValuationService,
		ProvideRequestsHandler,

		// Transport
		ProvideRateLimiter,
		ProvideValuationsHandler,
		ProvideHTTPServer,
		ProvideKafkaConsumer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
