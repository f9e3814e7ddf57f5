//go:build wireinject
// +build wireinject

package di

import (
	"FinScout/pkg/config"
	"FinScout/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Foundations
		ProvideLogger,
		ProvideClock,
		ProvideMetrics,
		ProvideCaches,

		// External service clients
		ProvideMarketData,
		ProvideNews,
		ProvideLLM,
		ProvideClassifier,

		// Notification pipeline
		ProvideQueue,
		ProvideNotifier,

		// Persistence and event bus
		ProvideStore,
		ProvidePublisher,

		// Pipeline use cases
		ProvideStages,
		ProvideSynthesizer,
		ProvideResearch,
		ProvideReview,
		ProvidePerformance,
		ProvideExport,

		// Transport and scheduling
		ProvideTickPump,
		ProvideHandler,
		ProvideHTTPServer,
		ProvideScheduler,

		// Application server
		wire.Struct(new(server.Deps), "*"),
		ProvideApp,
	)
	return &server.App{}, nil
}
