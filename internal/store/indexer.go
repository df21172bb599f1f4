package store

import (
	"context"

	"github.com/convomarkapp/convomark-host/internal/domain"
)

// SearchIndexer is the interface for updating the full-text search index.
// The store uses this to keep search in sync without depending on the
// search implementation.
type SearchIndexer interface {
	IndexAnnotation(ctx context.Context, a *domain.Annotation) error
	DeleteAnnotation(ctx context.Context, id string) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

// IndexAnnotation is a no-op.
func (NoopSearchIndexer) IndexAnnotation(context.Context, *domain.Annotation) error { return nil }

// DeleteAnnotation is a no-op.
func (NoopSearchIndexer) DeleteAnnotation(context.Context, string) error { return nil }

// indexAnnotation updates the search index, logging failures rather than
// failing the write. Search is a derived view, never the source of truth.
func (s *Store) indexAnnotation(ctx context.Context, a *domain.Annotation) {
	if s.searchIndexer == nil {
		return
	}
	if err := s.searchIndexer.IndexAnnotation(ctx, a); err != nil && s.logger != nil {
		s.logger.Warn("search index update failed", "id", a.ID, "error", err)
	}
}

// unindexAnnotation removes an annotation from the search index.
func (s *Store) unindexAnnotation(ctx context.Context, id string) {
	if s.searchIndexer == nil {
		return
	}
	if err := s.searchIndexer.DeleteAnnotation(ctx, id); err != nil && s.logger != nil {
		s.logger.Warn("search index delete failed", "id", id, "error", err)
	}
}
