// Package search provides full-text search over annotations using Bleve.
// Conversation and message annotations are indexed as unified documents
// with type discrimination, supporting fuzzy matching, prefix queries for
// autocomplete, and faceted filtering by origin and label.
package search

import (
	"github.com/convomarkapp/convomark-host/internal/domain"
)

// DocType represents the type of document in the unified index.
type DocType string

// Document types for the search index.
const (
	DocTypeConversation DocType = "conversation"
	DocTypeMessage      DocType = "message"
)

// Document is the unified document structure for the Bleve index.
// Both annotation kinds are indexed as Documents with type discrimination.
type Document struct {
	// Identity
	ID   string  `json:"id"`
	Type DocType `json:"type"`

	// Primary searchable text: the captured conversation display name.
	Name string `json:"name"`

	// Note text attached to the annotation.
	Note string `json:"note,omitempty"`

	// Exact-match fields for filtering.
	Origin string   `json:"origin"`
	Labels []string `json:"labels,omitempty"`

	// Message-specific fields (empty for conversation annotations).
	SenderID string `json:"sender_id,omitempty"`

	// Timestamps for sorting. Unix millis.
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// DocumentFromAnnotation converts a conversation annotation to an index document.
func DocumentFromAnnotation(a *domain.Annotation) *Document {
	return &Document{
		ID:        a.ID,
		Type:      DocTypeConversation,
		Name:      a.DisplayName,
		Note:      a.Note,
		Origin:    string(a.Origin),
		Labels:    a.Labels,
		CreatedAt: a.CreatedAt.UnixMilli(),
		UpdatedAt: a.UpdatedAt.UnixMilli(),
	}
}

// DocumentFromMessageAnnotation converts a message annotation to an index document.
func DocumentFromMessageAnnotation(m *domain.MessageAnnotation) *Document {
	doc := DocumentFromAnnotation(&m.Annotation)
	doc.Type = DocTypeMessage
	doc.SenderID = m.SenderID
	return doc
}

// ToMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but our
// mapping uses lowercase names, so we convert explicitly.
func (d *Document) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"type":       string(d.Type),
		"name":       d.Name,
		"origin":     d.Origin,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
	}
	if d.Note != "" {
		m["note"] = d.Note
	}
	if len(d.Labels) > 0 {
		m["labels"] = d.Labels
	}
	if d.SenderID != "" {
		m["sender_id"] = d.SenderID
	}
	return m
}
