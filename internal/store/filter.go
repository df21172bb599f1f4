package store

import (
	"strings"
	"time"

	"github.com/convomarkapp/convomark-host/internal/domain"
)

// Filter is a pure predicate over annotations. List operations apply
// filters as a logical-AND chain.
type Filter func(*domain.Annotation) bool

// matchesAll reports whether the annotation satisfies every filter.
func matchesAll(a *domain.Annotation, filters []Filter) bool {
	for _, f := range filters {
		if !f(a) {
			return false
		}
	}
	return true
}

// ByOrigin matches annotations created on the given platform.
func ByOrigin(origin domain.Origin) Filter {
	return func(a *domain.Annotation) bool {
		return a.Origin == origin
	}
}

// ByLabel matches annotations carrying the given label id.
func ByLabel(labelID string) Filter {
	return func(a *domain.Annotation) bool {
		return a.HasLabel(labelID)
	}
}

// ByText matches annotations whose display name or note contains the
// given substring, case-folded.
func ByText(query string) Filter {
	q := strings.ToLower(query)
	return func(a *domain.Annotation) bool {
		return strings.Contains(strings.ToLower(a.DisplayName), q) ||
			strings.Contains(strings.ToLower(a.Note), q)
	}
}

// ByUpdatedWithin matches annotations updated inside the given window
// relative to now.
func ByUpdatedWithin(window time.Duration) Filter {
	cutoff := time.Now().Add(-window)
	return func(a *domain.Annotation) bool {
		return a.UpdatedAt.After(cutoff)
	}
}

// ByFingerprint matches annotations with the given conversation fingerprint.
func ByFingerprint(fp string) Filter {
	return func(a *domain.Annotation) bool {
		return a.ConversationFingerprint == fp
	}
}
