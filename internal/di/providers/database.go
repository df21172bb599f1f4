package providers

import (
	"context"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/convomarkapp/convomark-host/internal/config"
	"github.com/convomarkapp/convomark-host/internal/logger"
	"github.com/convomarkapp/convomark-host/internal/store"
)

// ProvideFanoutEmitter provides the change-event fanout. The store emits
// into it at construction time; consumers subscribe as they come up.
func ProvideFanoutEmitter(i do.Injector) (*store.FanoutEmitter, error) {
	return store.NewFanoutEmitter(), nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the annotation store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	fanout := do.MustInvoke[*store.FanoutEmitter](i)

	dbPath := filepath.Join(cfg.Data.BasePath, "db")
	db, err := store.New(store.Options{
		Path:          dbPath,
		CapacityBytes: cfg.Data.CapacityBytes,
		Logger:        log.Logger,
		Emitter:       fanout,
	})
	if err != nil {
		return nil, err
	}

	if err := db.SeedDefaultLabels(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info("Store initialized",
		"path", dbPath,
		"capacity_bytes", cfg.Data.CapacityBytes,
	)

	return &StoreHandle{Store: db}, nil
}
