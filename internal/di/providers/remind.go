package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/convomarkapp/convomark-host/internal/logger"
	"github.com/convomarkapp/convomark-host/internal/remind"
	"github.com/convomarkapp/convomark-host/internal/store"
)

// ReminderCoordinatorHandle wraps the reminder coordinator with its
// notifier and cancel for lifecycle management.
type ReminderCoordinatorHandle struct {
	*remind.Coordinator
	notifier remind.Notifier
	cancel   context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *ReminderCoordinatorHandle) Shutdown() error {
	h.Coordinator.Stop()
	h.cancel()
	if closer, ok := h.notifier.(*remind.DBusNotifier); ok {
		return closer.Close()
	}
	return nil
}

// ProvideReminderCoordinator provides the reminder wake coordinator,
// subscribed to the store's change stream so reminder writes from any
// caller arm or cancel wakes.
func ProvideReminderCoordinator(i do.Injector) (*ReminderCoordinatorHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	fanout := do.MustInvoke[*store.FanoutEmitter](i)

	var notifier remind.Notifier
	dbusNotifier, err := remind.NewDBusNotifier()
	if err != nil {
		log.Warn("Desktop notifications unavailable, reminders will only be logged", "error", err)
		notifier = remind.NoopNotifier{}
	} else {
		notifier = dbusNotifier
	}

	ctx, cancel := context.WithCancel(context.Background())
	coordinator := remind.NewCoordinator(ctx, remind.CoordinatorOptions{
		Store:    storeHandle.Store,
		Notifier: notifier,
		Logger:   log,
	})

	fanout.Subscribe(coordinator)

	return &ReminderCoordinatorHandle{
		Coordinator: coordinator,
		notifier:    notifier,
		cancel:      cancel,
	}, nil
}
