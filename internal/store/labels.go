package store

import (
	"context"

	"github.com/convomarkapp/convomark-host/internal/domain"
	"github.com/convomarkapp/convomark-host/internal/errors"
)

// PutLabel upserts a label by id.
func (s *Store) PutLabel(ctx context.Context, l *domain.Label) (*domain.Label, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l == nil || l.ID == "" {
		return nil, errors.InvalidRecord("label is missing an id")
	}

	stamp(&l.CreatedAt, &l.UpdatedAt)

	if err := s.set([]byte(labelPrefix+l.ID), l); err != nil {
		return nil, err
	}

	s.emit(ChangeEvent{Kind: "label", Op: "put", ID: l.ID})
	return l, nil
}

// GetLabel retrieves a label by id.
func (s *Store) GetLabel(ctx context.Context, id string) (*domain.Label, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var l domain.Label
	if err := s.get([]byte(labelPrefix+id), &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLabels returns all labels.
func (s *Store) ListLabels(ctx context.Context) ([]*domain.Label, error) {
	out := make([]*domain.Label, 0)
	for l, err := range streamEntities[domain.Label](s.db, ctx, labelPrefix) {
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// DeleteLabel removes a label by id. Idempotent. Annotations referencing
// the label keep the stale id; the presentation layer skips unknown ids.
func (s *Store) DeleteLabel(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	existed, err := s.delete([]byte(labelPrefix + id))
	if err != nil {
		return false, err
	}
	if existed {
		s.emit(ChangeEvent{Kind: "label", Op: "delete", ID: id})
	}
	return existed, nil
}

// SeedDefaultLabels writes the starter label set if no labels exist yet.
func (s *Store) SeedDefaultLabels(ctx context.Context) error {
	existing, err := s.ListLabels(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, l := range domain.DefaultLabels() {
		if _, err := s.PutLabel(ctx, l); err != nil {
			return err
		}
	}
	return nil
}
