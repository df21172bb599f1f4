package store

import (
	"context"
	"time"

	"github.com/convomarkapp/convomark-host/internal/domain"
	"github.com/convomarkapp/convomark-host/internal/errors"
)

// PutReminder upserts a reminder by id. The store does not validate that
// FireAt is in the future; that is the creating surface's responsibility.
// AnnotationID is not checked for existence either; reminders may dangle.
func (s *Store) PutReminder(ctx context.Context, r *domain.Reminder) (*domain.Reminder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r == nil || r.ID == "" {
		return nil, errors.InvalidRecord("reminder is missing an id")
	}

	stamp(&r.CreatedAt, &r.UpdatedAt)

	if err := s.set([]byte(reminderPrefix+r.ID), r); err != nil {
		return nil, err
	}

	s.emit(ChangeEvent{Kind: "reminder", Op: "put", ID: r.ID})
	return r, nil
}

// GetReminder retrieves a reminder by id.
func (s *Store) GetReminder(ctx context.Context, id string) (*domain.Reminder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var r domain.Reminder
	if err := s.get([]byte(reminderPrefix+id), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReminders returns all reminders.
func (s *Store) ListReminders(ctx context.Context) ([]*domain.Reminder, error) {
	out := make([]*domain.Reminder, 0)
	for r, err := range streamEntities[domain.Reminder](s.db, ctx, reminderPrefix) {
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// ListActiveRemindersAfter returns active reminders with FireAt strictly
// after the given time. Used to rebuild the wake schedule on restart.
func (s *Store) ListActiveRemindersAfter(ctx context.Context, after time.Time) ([]*domain.Reminder, error) {
	out := make([]*domain.Reminder, 0)
	for r, err := range streamEntities[domain.Reminder](s.db, ctx, reminderPrefix) {
		if err != nil {
			return nil, err
		}
		if r.Active && r.FireAt.After(after) {
			out = append(out, r)
		}
	}
	return out, nil
}

// DeleteReminder removes a reminder by id. Idempotent.
func (s *Store) DeleteReminder(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	existed, err := s.delete([]byte(reminderPrefix + id))
	if err != nil {
		return false, err
	}
	if existed {
		s.emit(ChangeEvent{Kind: "reminder", Op: "delete", ID: id})
	}
	return existed, nil
}
