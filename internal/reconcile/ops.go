package reconcile

import (
	"context"
	"time"

	"github.com/convomarkapp/convomark-host/internal/domain"
	apperrors "github.com/convomarkapp/convomark-host/internal/errors"
	"github.com/convomarkapp/convomark-host/internal/id"
)

// The operations below are what the user-facing surface invokes. Each one
// writes through to the store and then reconciles immediately instead of
// waiting for the idle window, so the user sees their own action land.

// Mark annotates a conversation by its rendered display name.
func (e *Engine) Mark(ctx context.Context, displayName string, labels ...string) (*domain.Annotation, error) {
	fp := e.fp.Fingerprint(displayName)
	a := domain.NewAnnotation(e.adapter.Origin(), fp, displayName)
	a.SetLabels(labels)

	stored, err := e.store.PutAnnotation(ctx, a)
	if err != nil {
		return nil, err
	}
	e.reconcileNow()
	return stored, nil
}

// Unmark removes a conversation's annotation, reporting whether one
// existed.
func (e *Engine) Unmark(ctx context.Context, displayName string) (bool, error) {
	deleted, err := e.store.DeleteAnnotation(ctx, e.annotationID(displayName))
	if err != nil {
		return false, err
	}
	e.reconcileNow()
	return deleted, nil
}

// SetNote attaches a note to an already-marked conversation.
func (e *Engine) SetNote(ctx context.Context, displayName, note string) (*domain.Annotation, error) {
	a, err := e.fetch(ctx, displayName)
	if err != nil {
		return nil, err
	}

	a.Note = note
	stored, err := e.store.PutAnnotation(ctx, a)
	if err != nil {
		return nil, err
	}
	e.reconcileNow()
	return stored, nil
}

// SetLabels replaces the label set on an already-marked conversation.
func (e *Engine) SetLabels(ctx context.Context, displayName string, labels []string) (*domain.Annotation, error) {
	a, err := e.fetch(ctx, displayName)
	if err != nil {
		return nil, err
	}

	a.SetLabels(labels)
	stored, err := e.store.PutAnnotation(ctx, a)
	if err != nil {
		return nil, err
	}
	e.reconcileNow()
	return stored, nil
}

// SetReminder schedules a wake against an already-marked conversation.
// The store accepts any fire time; rejecting past times is this caller's
// job, before the reminder ever reaches the wire.
func (e *Engine) SetReminder(ctx context.Context, displayName string, fireAt time.Time) (*domain.Reminder, error) {
	if !fireAt.After(time.Now()) {
		return nil, apperrors.Validationf("reminder time %s is not in the future", fireAt.Format(time.RFC3339))
	}

	a, err := e.fetch(ctx, displayName)
	if err != nil {
		return nil, err
	}

	r := domain.NewReminder(id.MustGenerate("rem"), a.ID, fireAt)
	return e.store.PutReminder(ctx, r)
}

// annotationID derives the composite store key for a display name.
func (e *Engine) annotationID(displayName string) string {
	return domain.AnnotationID(e.adapter.Origin(), e.fp.Fingerprint(displayName))
}

// fetch loads the annotation for a display name, failing with NOT_FOUND
// when the conversation was never marked.
func (e *Engine) fetch(ctx context.Context, displayName string) (*domain.Annotation, error) {
	a, err := e.store.GetAnnotation(ctx, e.annotationID(displayName))
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperrors.NotFoundf("no annotation for %q", displayName)
	}
	return a, nil
}

// reconcileNow runs a pass immediately if the engine is subscribed.
// Operations invoked before Start still persist; the initial pass picks
// them up.
func (e *Engine) reconcileNow() {
	if e.ctx != nil {
		e.runPass()
	}
}
