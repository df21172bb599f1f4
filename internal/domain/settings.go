package domain

import "time"

// Settings is the flat host-wide settings record. Reads always go through
// DefaultSettings plus the stored overlay, so callers never observe a
// partially absent record; a missing key surfaces as its default, never
// as a zero "undefined".
type Settings struct {
	IndicatorStyle      string `json:"indicator_style"`       // "dot" or "badge"
	ShowNotePreview     bool   `json:"show_note_preview"`     // render note excerpt in the indicator tooltip
	ReminderSoundOn     bool   `json:"reminder_sound_on"`     // play a sound with reminder notifications
	ReconcileIdleMs     int    `json:"reconcile_idle_ms"`     // mutation-burst quiet window
	QuotaWarnPercent    int    `json:"quota_warn_percent"`    // warn when bytes in use exceed this share of capacity
	RetainDismissedDays int    `json:"retain_dismissed_days"` // how long fired reminders are kept

	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultSettings returns the hard-coded defaults every read is merged with.
func DefaultSettings() *Settings {
	return &Settings{
		IndicatorStyle:      "dot",
		ShowNotePreview:     true,
		ReminderSoundOn:     true,
		ReconcileIdleMs:     300,
		QuotaWarnPercent:    80,
		RetainDismissedDays: 30,
	}
}

// SettingsPatch is a partial settings update. Nil fields are left unchanged.
type SettingsPatch struct {
	IndicatorStyle      *string `json:"indicator_style,omitempty"`
	ShowNotePreview     *bool   `json:"show_note_preview,omitempty"`
	ReminderSoundOn     *bool   `json:"reminder_sound_on,omitempty"`
	ReconcileIdleMs     *int    `json:"reconcile_idle_ms,omitempty"`
	QuotaWarnPercent    *int    `json:"quota_warn_percent,omitempty"`
	RetainDismissedDays *int    `json:"retain_dismissed_days,omitempty"`
}

// Apply merges the patch into settings and bumps UpdatedAt.
func (p *SettingsPatch) Apply(s *Settings) {
	if p.IndicatorStyle != nil {
		s.IndicatorStyle = *p.IndicatorStyle
	}
	if p.ShowNotePreview != nil {
		s.ShowNotePreview = *p.ShowNotePreview
	}
	if p.ReminderSoundOn != nil {
		s.ReminderSoundOn = *p.ReminderSoundOn
	}
	if p.ReconcileIdleMs != nil {
		s.ReconcileIdleMs = *p.ReconcileIdleMs
	}
	if p.QuotaWarnPercent != nil {
		s.QuotaWarnPercent = *p.QuotaWarnPercent
	}
	if p.RetainDismissedDays != nil {
		s.RetainDismissedDays = *p.RetainDismissedDays
	}
	s.UpdatedAt = time.Now()
}
