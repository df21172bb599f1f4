package store

import (
	"context"
	"time"

	"github.com/convomarkapp/convomark-host/internal/domain"
	"github.com/convomarkapp/convomark-host/internal/errors"
)

// ExportAll dumps the full store state into a versioned snapshot.
func (s *Store) ExportAll(ctx context.Context) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{
		Version:            domain.SnapshotVersion,
		ExportedAt:         time.Now(),
		Annotations:        make(map[string]*domain.Annotation),
		MessageAnnotations: make(map[string]*domain.MessageAnnotation),
		Reminders:          make(map[string]*domain.Reminder),
	}

	for a, err := range streamEntities[domain.Annotation](s.db, ctx, annotationPrefix) {
		if err != nil {
			return nil, err
		}
		snap.Annotations[a.ID] = a
	}
	for m, err := range streamEntities[domain.MessageAnnotation](s.db, ctx, msgAnnotationPrefix) {
		if err != nil {
			return nil, err
		}
		snap.MessageAnnotations[m.ID] = m
	}
	for r, err := range streamEntities[domain.Reminder](s.db, ctx, reminderPrefix) {
		if err != nil {
			return nil, err
		}
		snap.Reminders[r.ID] = r
	}

	labels, err := s.ListLabels(ctx)
	if err != nil {
		return nil, err
	}
	snap.Labels = labels

	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	snap.Settings = settings

	if s.logger != nil {
		a, m, r, l := snap.Counts()
		s.logger.Info("exported snapshot",
			"annotations", a, "message_annotations", m, "reminders", r, "labels", l)
	}
	return snap, nil
}

// ImportAll restores store state from a snapshot. Each top-level kind
// present in the snapshot replaces the stored kind wholesale; absent kinds
// are left untouched. An absent or unrecognized version is rejected with
// SCHEMA_MISMATCH before anything is modified.
func (s *Store) ImportAll(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return errors.SchemaMismatch("snapshot is nil")
	}
	if snap.Version != domain.SnapshotVersion {
		return errors.SchemaMismatchf("unsupported snapshot version %q (want %q)", snap.Version, domain.SnapshotVersion)
	}

	if snap.Annotations != nil {
		if err := s.deleteByPrefix(ctx, annotationPrefix); err != nil {
			return err
		}
		for id, a := range snap.Annotations {
			if a == nil || a.ID == "" {
				return errors.InvalidRecordf("snapshot annotation %q is missing an id", id)
			}
			if err := s.set([]byte(annotationPrefix+a.ID), a); err != nil {
				return err
			}
			s.indexAnnotation(ctx, a)
		}
	}

	if snap.MessageAnnotations != nil {
		if err := s.deleteByPrefix(ctx, msgAnnotationPrefix); err != nil {
			return err
		}
		for id, m := range snap.MessageAnnotations {
			if m == nil || m.ID == "" {
				return errors.InvalidRecordf("snapshot message annotation %q is missing an id", id)
			}
			if err := s.set([]byte(msgAnnotationPrefix+m.ID), m); err != nil {
				return err
			}
		}
	}

	if snap.Reminders != nil {
		if err := s.deleteByPrefix(ctx, reminderPrefix); err != nil {
			return err
		}
		for id, r := range snap.Reminders {
			if r == nil || r.ID == "" {
				return errors.InvalidRecordf("snapshot reminder %q is missing an id", id)
			}
			if err := s.set([]byte(reminderPrefix+r.ID), r); err != nil {
				return err
			}
		}
	}

	if snap.Labels != nil {
		if err := s.deleteByPrefix(ctx, labelPrefix); err != nil {
			return err
		}
		for _, l := range snap.Labels {
			if l == nil || l.ID == "" {
				return errors.InvalidRecord("snapshot label is missing an id")
			}
			if err := s.set([]byte(labelPrefix+l.ID), l); err != nil {
				return err
			}
		}
	}

	if snap.Settings != nil {
		if err := s.set([]byte(keySettings), snap.Settings); err != nil {
			return err
		}
	}

	s.emit(ChangeEvent{Kind: "snapshot", Op: "put", ID: ""})

	if s.logger != nil {
		a, m, r, l := snap.Counts()
		s.logger.Info("imported snapshot",
			"annotations", a, "message_annotations", m, "reminders", r, "labels", l)
	}
	return nil
}
