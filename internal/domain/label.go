package domain

import "time"

// Label is a user-editable category that annotations reference by ID.
type Label struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Color       string    `json:"color"` // CSS hex color, e.g. "#d9480f"
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (l *Label) Touch() {
	l.UpdatedAt = time.Now()
}

// DefaultLabels is the starter label set seeded into a fresh store.
// Users can edit or remove these like any other label.
func DefaultLabels() []*Label {
	now := time.Now()
	mk := func(id, name, color string) *Label {
		return &Label{ID: id, DisplayName: name, Color: color, CreatedAt: now, UpdatedAt: now}
	}
	return []*Label{
		mk("urgent", "Urgent", "#e03131"),
		mk("follow-up", "Follow up", "#f08c00"),
		mk("work", "Work", "#1971c2"),
		mk("personal", "Personal", "#2f9e44"),
	}
}
