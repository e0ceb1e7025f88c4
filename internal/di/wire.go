//go:build wireinject
// +build wireinject

package di

import (
	"RiskPulse/pkg/config"
	"RiskPulse/pkg/server"

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
		ProvideRedisCache,
		ProvideCacheService,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideHub,

		// Repositories
		ProvideAssessmentStore,
		ProvideAuditLog,
		ProvideAuditQueue,
		ProvideBroadcaster,
		ProvideAlertCreator,

		// Domain engines
		ProvideRiskEngine,
		ProvidePricer,
		ProvideSimulator,

		// Use cases
		ProvideEventProcessor,
		ProvidePipeline,
		ProvideAssessmentQuery,
		ProvideFeedCollector,
		ProvideKafkaEventsHandler,

		// HTTP surface and application server
		ProvideRiskHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
