package remind

import (
	"context"
	"errors"
	"time"

	"github.com/convomarkapp/convomark-host/internal/domain"
	apperrors "github.com/convomarkapp/convomark-host/internal/errors"
	"github.com/convomarkapp/convomark-host/internal/logger"
	"github.com/convomarkapp/convomark-host/internal/store"
)

// Store is the slice of the store the coordinator needs.
type Store interface {
	GetReminder(ctx context.Context, id string) (*domain.Reminder, error)
	PutReminder(ctx context.Context, r *domain.Reminder) (*domain.Reminder, error)
	ListActiveRemindersAfter(ctx context.Context, after time.Time) ([]*domain.Reminder, error)
	GetAnnotation(ctx context.Context, id string) (*domain.Annotation, error)
	GetSettings(ctx context.Context) (*domain.Settings, error)
}

// Coordinator owns reminder delivery. It restores wakes at startup, tracks
// reminder writes as they happen, and on each wake marks the reminder
// consumed and notifies the user.
//
// Wakes are armed from the store's change stream, so it does not matter
// which surface created the reminder.
type Coordinator struct {
	store    Store
	notifier Notifier
	logger   *logger.Logger

	sched WakeScheduler
	ctx   context.Context
}

// CoordinatorOptions configures a Coordinator.
type CoordinatorOptions struct {
	Store    Store
	Notifier Notifier
	Logger   *logger.Logger
	// Scheduler overrides the default timer scheduler, for tests.
	Scheduler WakeScheduler
}

// NewCoordinator creates a coordinator. Call RestoreWakes before serving.
func NewCoordinator(ctx context.Context, opts CoordinatorOptions) *Coordinator {
	c := &Coordinator{
		store:    opts.Store,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		ctx:      ctx,
	}
	if opts.Scheduler != nil {
		c.sched = opts.Scheduler
	} else {
		c.sched = NewTimerScheduler(c.wake)
	}
	return c
}

// RestoreWakes rebuilds the wake schedule after a daemon restart; the
// schedule itself is not durable. Reminders that came due while the
// daemon was down are scheduled too and fire one catch-up notification
// immediately, rather than lingering active and silent forever.
func (c *Coordinator) RestoreWakes(ctx context.Context) error {
	reminders, err := c.store.ListActiveRemindersAfter(ctx, time.Time{})
	if err != nil {
		return err
	}

	now := time.Now()
	restored, overdue := 0, 0
	for _, r := range reminders {
		if r.FireAt.After(now) {
			restored++
		} else {
			overdue++
		}
		c.sched.Schedule(r.ID, r.FireAt)
	}

	c.logger.Info("restored reminder wakes", "restored", restored, "overdue", overdue)
	return nil
}

// Emit implements store.EventEmitter. Reminder writes arm or replace
// wakes; reminder deletes disarm them. Other record kinds are ignored.
func (c *Coordinator) Emit(event any) {
	ev, ok := event.(store.ChangeEvent)
	if !ok || ev.Kind != "reminder" {
		return
	}

	switch ev.Op {
	case "put":
		r, err := c.store.GetReminder(c.ctx, ev.ID)
		if err != nil {
			c.logger.Warn("reminder vanished before scheduling", "id", ev.ID, "error", err)
			return
		}
		if r.Active {
			c.sched.Schedule(r.ID, r.FireAt)
		} else {
			c.sched.Cancel(r.ID)
		}
	case "delete":
		c.sched.Cancel(ev.ID)
	}
}

// Stop disarms all wakes.
func (c *Coordinator) Stop() {
	c.sched.Stop()
}

// wake handles one fired reminder: consume it, then notify. A reminder
// whose annotation is gone still fires with whatever is left; dangling
// reminders are an accepted condition.
func (c *Coordinator) wake(reminderID string) {
	ctx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()

	r, err := c.store.GetReminder(ctx, reminderID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			c.logger.WithError(err).Error("failed to load fired reminder", "id", reminderID)
		}
		return
	}
	if !r.Active {
		return
	}

	// Consume before delivering so a notification failure cannot cause a
	// refire loop.
	r.Active = false
	if _, err := c.store.PutReminder(ctx, r); err != nil {
		c.logger.WithError(err).Error("failed to consume reminder", "id", reminderID)
		return
	}

	title, body := c.describe(ctx, r)

	withSound := true
	if settings, err := c.store.GetSettings(ctx); err == nil {
		withSound = settings.ReminderSoundOn
	}

	if err := c.notifier.Deliver(ctx, title, body, withSound); err != nil {
		c.logger.WithError(err).Error("failed to deliver reminder", "id", reminderID)
		return
	}

	c.logger.Info("reminder delivered", "id", reminderID, "annotation", r.AnnotationID)
}

// describe builds the notification text from the reminder's annotation,
// falling back to a generic line when the annotation no longer exists.
func (c *Coordinator) describe(ctx context.Context, r *domain.Reminder) (title, body string) {
	a, err := c.store.GetAnnotation(ctx, r.AnnotationID)
	if err != nil || a == nil {
		return "ConvoMark reminder", "A conversation you marked needs attention"
	}

	title = "Reminder: " + a.DisplayName
	if a.Note != "" {
		return title, a.Note
	}
	return title, "You marked this conversation on " + string(a.Origin)
}
