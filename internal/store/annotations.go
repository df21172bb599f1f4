package store

import (
	"context"
	"time"

	"github.com/convomarkapp/convomark-host/internal/domain"
	"github.com/convomarkapp/convomark-host/internal/errors"
)

// PutAnnotation upserts a conversation annotation by id. CreatedAt is set
// only if absent; UpdatedAt is always bumped to now. Returns the stored
// record. The only structural requirement is a non-empty id.
func (s *Store) PutAnnotation(ctx context.Context, a *domain.Annotation) (*domain.Annotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a == nil || a.ID == "" {
		return nil, errors.InvalidRecord("annotation is missing an id")
	}
	if err := a.Validate(); err != nil {
		return nil, errors.ErrInvalidRecord.WithCause(err)
	}

	stamp(&a.CreatedAt, &a.UpdatedAt)

	if err := s.set([]byte(annotationPrefix+a.ID), a); err != nil {
		return nil, err
	}

	s.emit(ChangeEvent{Kind: "annotation", Op: "put", ID: a.ID})
	s.indexAnnotation(ctx, a)
	return a, nil
}

// GetAnnotation retrieves an annotation by id.
// Returns errors.ErrNotFound if absent; absence is an expected outcome and
// the RPC owner answers it with null data rather than a failure.
func (s *Store) GetAnnotation(ctx context.Context, id string) (*domain.Annotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var a domain.Annotation
	if err := s.get([]byte(annotationPrefix+id), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAnnotations returns all conversation annotations matching every
// given filter. Filters compose as logical AND; no filters means all.
func (s *Store) ListAnnotations(ctx context.Context, filters ...Filter) ([]*domain.Annotation, error) {
	out := make([]*domain.Annotation, 0)
	for a, err := range streamEntities[domain.Annotation](s.db, ctx, annotationPrefix) {
		if err != nil {
			return nil, err
		}
		if matchesAll(a, filters) {
			out = append(out, a)
		}
	}
	return out, nil
}

// DeleteAnnotation removes an annotation by id. Idempotent; reports
// whether a record existed. Reminders referencing the annotation are left
// in place, dangling reminders are an accepted condition.
func (s *Store) DeleteAnnotation(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	existed, err := s.delete([]byte(annotationPrefix + id))
	if err != nil {
		return false, err
	}
	if existed {
		s.emit(ChangeEvent{Kind: "annotation", Op: "delete", ID: id})
		s.unindexAnnotation(ctx, id)
	}
	return existed, nil
}

// PutMessageAnnotation upserts a message-level annotation by id.
func (s *Store) PutMessageAnnotation(ctx context.Context, m *domain.MessageAnnotation) (*domain.MessageAnnotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m == nil || m.ID == "" {
		return nil, errors.InvalidRecord("message annotation is missing an id")
	}
	if err := m.Validate(); err != nil {
		return nil, errors.ErrInvalidRecord.WithCause(err)
	}

	stamp(&m.CreatedAt, &m.UpdatedAt)

	if err := s.set([]byte(msgAnnotationPrefix+m.ID), m); err != nil {
		return nil, err
	}

	s.emit(ChangeEvent{Kind: "msg-annotation", Op: "put", ID: m.ID})
	return m, nil
}

// GetMessageAnnotation retrieves a message annotation by id.
func (s *Store) GetMessageAnnotation(ctx context.Context, id string) (*domain.MessageAnnotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var m domain.MessageAnnotation
	if err := s.get([]byte(msgAnnotationPrefix+id), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessageAnnotations returns all message annotations matching every filter.
// Filters apply to the embedded conversation-level fields.
func (s *Store) ListMessageAnnotations(ctx context.Context, filters ...Filter) ([]*domain.MessageAnnotation, error) {
	out := make([]*domain.MessageAnnotation, 0)
	for m, err := range streamEntities[domain.MessageAnnotation](s.db, ctx, msgAnnotationPrefix) {
		if err != nil {
			return nil, err
		}
		if matchesAll(&m.Annotation, filters) {
			out = append(out, m)
		}
	}
	return out, nil
}

// DeleteMessageAnnotation removes a message annotation by id. Idempotent.
func (s *Store) DeleteMessageAnnotation(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	existed, err := s.delete([]byte(msgAnnotationPrefix + id))
	if err != nil {
		return false, err
	}
	if existed {
		s.emit(ChangeEvent{Kind: "msg-annotation", Op: "delete", ID: id})
	}
	return existed, nil
}

// stamp fills CreatedAt if zero and bumps UpdatedAt, preserving the
// invariant UpdatedAt >= CreatedAt.
func stamp(createdAt, updatedAt *time.Time) {
	now := time.Now()
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
	if updatedAt.Before(*createdAt) {
		*updatedAt = *createdAt
	}
}
