package domain

import "time"

// Reminder is a time-based wake attached to an annotation.
//
// AnnotationID may dangle: reminders are not cascade-deleted when their
// owning annotation is removed. A dangling reminder still fires with
// whatever stale data remains.
//
// The store does not enforce that FireAt is in the future; that check
// belongs to whichever surface creates the reminder.
type Reminder struct {
	ID           string    `json:"id"`
	AnnotationID string    `json:"annotation_id"`
	FireAt       time.Time `json:"fire_at"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewReminder creates an active reminder for the given annotation.
func NewReminder(id, annotationID string, fireAt time.Time) *Reminder {
	now := time.Now()
	return &Reminder{
		ID:           id,
		AnnotationID: annotationID,
		FireAt:       fireAt,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Touch updates the UpdatedAt timestamp.
func (r *Reminder) Touch() {
	r.UpdatedAt = time.Now()
}

// Due reports whether the reminder should fire at or before the given time.
func (r *Reminder) Due(at time.Time) bool {
	return r.Active && !r.FireAt.After(at)
}
