package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/convomarkapp/convomark-host/internal/config"
	"github.com/convomarkapp/convomark-host/internal/importwatch"
	"github.com/convomarkapp/convomark-host/internal/logger"
)

// ImportWatcherHandle wraps the snapshot import watcher with its context
// for lifecycle management.
type ImportWatcherHandle struct {
	*importwatch.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *ImportWatcherHandle) Shutdown() error {
	h.cancel()
	return nil
}

// ProvideImportWatcher provides the snapshot drop-directory watcher.
func ProvideImportWatcher(i do.Injector) (*ImportWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	watcher, err := importwatch.New(importwatch.Options{
		Dir:         cfg.Import.WatchDir,
		SettleDelay: cfg.Import.SettleDelay,
		Importer:    storeHandle.Store,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("Import watcher stopped", "error", err)
		}
	}()

	log.Info("Import watcher started", "dir", cfg.Import.WatchDir)

	return &ImportWatcherHandle{Watcher: watcher, cancel: cancel}, nil
}
