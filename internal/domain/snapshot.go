package domain

import "time"

// SnapshotVersion is the export format version. Incremented on breaking
// schema changes; imports with any other (or missing) version are rejected.
const SnapshotVersion = "1.1"

// Snapshot is the full-state export/import format. Import replaces each
// top-level kind wholesale when the key is present and leaves absent kinds
// untouched; it is a restore, not a merge.
type Snapshot struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`

	Annotations        map[string]*Annotation        `json:"annotations,omitempty"`
	MessageAnnotations map[string]*MessageAnnotation `json:"message_annotations,omitempty"`
	Reminders          map[string]*Reminder          `json:"reminders,omitempty"`
	Settings           *Settings                     `json:"settings,omitempty"`
	Labels             []*Label                      `json:"labels,omitempty"`
}

// Counts summarizes snapshot contents for logging and validation.
func (s *Snapshot) Counts() (annotations, messageAnnotations, reminders, labels int) {
	return len(s.Annotations), len(s.MessageAnnotations), len(s.Reminders), len(s.Labels)
}
