package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// NoteMaxLen is the maximum note length in Unicode code points.
const NoteMaxLen = 500

// Annotation is a conversation-level mark with labels, a free-text note,
// and timestamps. The ID is the composite key "origin:fingerprint" and is
// immutable once created; two annotations must never share an ID.
//
// ConversationFingerprint is a content-derived identity. It is stable
// across page reloads but NOT guaranteed stable across host UI redesigns;
// a redesign that changes the extracted display name orphans the
// annotation. This is a documented weak invariant, not a bug: display
// text is the only identity the host exposes.
type Annotation struct {
	ID                      string    `json:"id"`
	Origin                  Origin    `json:"origin"`
	ConversationFingerprint string    `json:"conversation_fingerprint"`
	DisplayName             string    `json:"display_name"` // last-observed label, may be stale
	Labels                  []string  `json:"labels,omitempty"`
	Note                    string    `json:"note,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// AnnotationID builds the composite key for a conversation annotation.
func AnnotationID(origin Origin, fingerprint string) string {
	return string(origin) + ":" + fingerprint
}

// NewAnnotation creates a conversation annotation with its composite ID set.
func NewAnnotation(origin Origin, fingerprint, displayName string) *Annotation {
	now := time.Now()
	return &Annotation{
		ID:                      AnnotationID(origin, fingerprint),
		Origin:                  origin,
		ConversationFingerprint: fingerprint,
		DisplayName:             displayName,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
}

// Touch updates the UpdatedAt timestamp.
func (a *Annotation) Touch() {
	a.UpdatedAt = time.Now()
}

// HasLabel reports whether the annotation carries the given label id.
// Label order is irrelevant; Labels has set semantics.
func (a *Annotation) HasLabel(labelID string) bool {
	return slices.Contains(a.Labels, labelID)
}

// SetLabels replaces the label set, dropping duplicates while keeping
// first-seen order for stable serialization.
func (a *Annotation) SetLabels(labels []string) {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	a.Labels = out
}

// Validate checks structural invariants before a write.
func (a *Annotation) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("annotation id is empty")
	}
	if utf8.RuneCountInString(a.Note) > NoteMaxLen {
		return fmt.Errorf("note exceeds %d code points", NoteMaxLen)
	}
	return nil
}

// MessageAnnotation is the message-level variant of Annotation. It is
// structurally identical with added sender and content components; its ID
// appends ":senderID:unixMillis:digest" to the conversation key.
type MessageAnnotation struct {
	Annotation

	SenderID      string    `json:"sender_id"`
	SentAt        time.Time `json:"sent_at"`
	ContentDigest string    `json:"content_digest"`
}

// MessageAnnotationID builds the composite key for a message annotation.
func MessageAnnotationID(origin Origin, fingerprint, senderID string, sentAt time.Time, digest string) string {
	return strings.Join([]string{
		AnnotationID(origin, fingerprint),
		senderID,
		strconv.FormatInt(sentAt.UnixMilli(), 10),
		digest,
	}, ":")
}

// NewMessageAnnotation creates a message annotation with its composite ID set.
func NewMessageAnnotation(origin Origin, fingerprint, senderID string, sentAt time.Time, digest string) *MessageAnnotation {
	now := time.Now()
	return &MessageAnnotation{
		Annotation: Annotation{
			ID:                      MessageAnnotationID(origin, fingerprint, senderID, sentAt, digest),
			Origin:                  origin,
			ConversationFingerprint: fingerprint,
			CreatedAt:               now,
			UpdatedAt:               now,
		},
		SenderID:      senderID,
		SentAt:        sentAt,
		ContentDigest: digest,
	}
}
