package rpc

import (
	"context"

	"github.com/convomarkapp/convomark-host/internal/domain"
	"github.com/convomarkapp/convomark-host/internal/search"
	"github.com/convomarkapp/convomark-host/internal/store"
)

// StoreClient gives callers the store's API over the wire. Method
// signatures mirror the store so engine code is indifferent to whether it
// holds the store or a connection to it.
type StoreClient struct {
	c *Client
}

// NewStoreClient wraps a connected client.
func NewStoreClient(c *Client) *StoreClient {
	return &StoreClient{c: c}
}

// Close closes the underlying transport.
func (sc *StoreClient) Close() error {
	return sc.c.Close()
}

// Ping round-trips a liveness probe.
func (sc *StoreClient) Ping(ctx context.Context) error {
	return sc.c.Ping(ctx)
}

// PutAnnotation upserts a conversation annotation and returns the stored
// record with server-assigned timestamps.
func (sc *StoreClient) PutAnnotation(ctx context.Context, a *domain.Annotation) (*domain.Annotation, error) {
	var stored domain.Annotation
	if _, err := sc.c.CallInto(ctx, ActionPutAnnotation, a, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// GetAnnotation fetches one annotation. Absent records return (nil, nil).
func (sc *StoreClient) GetAnnotation(ctx context.Context, annotationID string) (*domain.Annotation, error) {
	var a domain.Annotation
	found, err := sc.c.CallInto(ctx, ActionGetAnnotation, IDPayload{ID: annotationID}, &a)
	if err != nil || !found {
		return nil, err
	}
	return &a, nil
}

// ListAnnotations lists annotations matching the given filters.
func (sc *StoreClient) ListAnnotations(ctx context.Context, p ListAnnotationsPayload) ([]*domain.Annotation, error) {
	var out []*domain.Annotation
	if _, err := sc.c.CallInto(ctx, ActionListAnnotations, p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAnnotation removes an annotation, reporting whether it existed.
func (sc *StoreClient) DeleteAnnotation(ctx context.Context, annotationID string) (bool, error) {
	var d DeletedPayload
	if _, err := sc.c.CallInto(ctx, ActionDeleteAnnotation, IDPayload{ID: annotationID}, &d); err != nil {
		return false, err
	}
	return d.Deleted, nil
}

// PutMessageAnnotation upserts a message annotation.
func (sc *StoreClient) PutMessageAnnotation(ctx context.Context, m *domain.MessageAnnotation) (*domain.MessageAnnotation, error) {
	var stored domain.MessageAnnotation
	if _, err := sc.c.CallInto(ctx, ActionPutMessageAnnotation, m, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// GetMessageAnnotation fetches one message annotation. Absent records
// return (nil, nil).
func (sc *StoreClient) GetMessageAnnotation(ctx context.Context, annotationID string) (*domain.MessageAnnotation, error) {
	var m domain.MessageAnnotation
	found, err := sc.c.CallInto(ctx, ActionGetMessageAnnotation, IDPayload{ID: annotationID}, &m)
	if err != nil || !found {
		return nil, err
	}
	return &m, nil
}

// ListMessageAnnotations lists message annotations matching the filters.
func (sc *StoreClient) ListMessageAnnotations(ctx context.Context, p ListAnnotationsPayload) ([]*domain.MessageAnnotation, error) {
	var out []*domain.MessageAnnotation
	if _, err := sc.c.CallInto(ctx, ActionListMessageAnnotations, p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteMessageAnnotation removes a message annotation.
func (sc *StoreClient) DeleteMessageAnnotation(ctx context.Context, annotationID string) (bool, error) {
	var d DeletedPayload
	if _, err := sc.c.CallInto(ctx, ActionDeleteMessageAnnotation, IDPayload{ID: annotationID}, &d); err != nil {
		return false, err
	}
	return d.Deleted, nil
}

// PutReminder upserts a reminder.
func (sc *StoreClient) PutReminder(ctx context.Context, r *domain.Reminder) (*domain.Reminder, error) {
	var stored domain.Reminder
	if _, err := sc.c.CallInto(ctx, ActionPutReminder, r, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// ListReminders lists every stored reminder.
func (sc *StoreClient) ListReminders(ctx context.Context) ([]*domain.Reminder, error) {
	var out []*domain.Reminder
	if _, err := sc.c.CallInto(ctx, ActionListReminders, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteReminder removes a reminder.
func (sc *StoreClient) DeleteReminder(ctx context.Context, reminderID string) (bool, error) {
	var d DeletedPayload
	if _, err := sc.c.CallInto(ctx, ActionDeleteReminder, IDPayload{ID: reminderID}, &d); err != nil {
		return false, err
	}
	return d.Deleted, nil
}

// PutLabel upserts a label.
func (sc *StoreClient) PutLabel(ctx context.Context, l *domain.Label) (*domain.Label, error) {
	var stored domain.Label
	if _, err := sc.c.CallInto(ctx, ActionPutLabel, l, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// ListLabels lists every stored label.
func (sc *StoreClient) ListLabels(ctx context.Context) ([]*domain.Label, error) {
	var out []*domain.Label
	if _, err := sc.c.CallInto(ctx, ActionListLabels, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteLabel removes a label.
func (sc *StoreClient) DeleteLabel(ctx context.Context, labelID string) (bool, error) {
	var d DeletedPayload
	if _, err := sc.c.CallInto(ctx, ActionDeleteLabel, IDPayload{ID: labelID}, &d); err != nil {
		return false, err
	}
	return d.Deleted, nil
}

// GetSettings fetches the effective settings record.
func (sc *StoreClient) GetSettings(ctx context.Context) (*domain.Settings, error) {
	var s domain.Settings
	if _, err := sc.c.CallInto(ctx, ActionGetSettings, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// PatchSettings applies a partial settings update and returns the merged
// record.
func (sc *StoreClient) PatchSettings(ctx context.Context, patch *domain.SettingsPatch) (*domain.Settings, error) {
	var s domain.Settings
	if _, err := sc.c.CallInto(ctx, ActionPatchSettings, patch, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ExportAll fetches a full snapshot of the store.
func (sc *StoreClient) ExportAll(ctx context.Context) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	if _, err := sc.c.CallInto(ctx, ActionExportAll, nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ImportAll replaces store contents from a snapshot.
func (sc *StoreClient) ImportAll(ctx context.Context, snap *domain.Snapshot) error {
	_, err := sc.c.Call(ctx, ActionImportAll, snap)
	return err
}

// SearchAnnotations runs a full-text query against the daemon's index.
func (sc *StoreClient) SearchAnnotations(ctx context.Context, params search.Params) (*search.Result, error) {
	var result search.Result
	if _, err := sc.c.CallInto(ctx, ActionSearchAnnotations, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Stats fetches record counts and quota usage.
func (sc *StoreClient) Stats(ctx context.Context) (*store.Stats, error) {
	var stats store.Stats
	if _, err := sc.c.CallInto(ctx, ActionGetStats, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
