// Package di provides dependency injection configuration for the ConvoMark host daemon.
package di

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/convomarkapp/convomark-host/internal/config"
	"github.com/convomarkapp/convomark-host/internal/di/providers"
	"github.com/convomarkapp/convomark-host/internal/logger"
	"github.com/convomarkapp/convomark-host/internal/store"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideFanoutEmitter)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Reminder delivery
	do.Provide(injector, providers.ProvideReminderCoordinator)

	// Workers
	do.Provide(injector, providers.ProvideImportWatcher)

	// Transport
	do.Provide(injector, providers.ProvideRPCServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*store.FanoutEmitter](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)

	// The coordinator must be subscribed to the change stream before the
	// transport starts taking writes, and wakes re-armed before that too.
	coordinator := do.MustInvoke[*providers.ReminderCoordinatorHandle](injector)
	if err := coordinator.RestoreWakes(context.Background()); err != nil {
		return err
	}

	_ = do.MustInvoke[*providers.ImportWatcherHandle](injector)
	_ = do.MustInvoke[*providers.RPCServerHandle](injector)

	// Rebuild the search index from the store after a mapping bump.
	providers.ReplayIndexIfNeeded(injector)

	return nil
}
