package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/convomarkapp/convomark-host/internal/config"
	"github.com/convomarkapp/convomark-host/internal/logger"
	"github.com/convomarkapp/convomark-host/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index and wires it into the
// store so annotation writes are indexed as they happen.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	index, err := search.NewIndex(search.Options{
		DataPath: cfg.Data.BasePath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	storeHandle.SetSearchIndexer(index)

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{Index: index}, nil
}

// ReplayIndexIfNeeded rebuilds the search index from the store when the
// index is empty but annotations exist. That happens after a mapping
// version bump or when the index directory was lost.
func ReplayIndexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := indexHandle.DocumentCount()
	if docCount > 0 {
		return
	}

	ctx := context.Background()
	annotations, err := storeHandle.ListAnnotations(ctx)
	if err != nil {
		log.Error("Index replay aborted, listing annotations failed", "error", err)
		return
	}
	messages, err := storeHandle.ListMessageAnnotations(ctx)
	if err != nil {
		log.Error("Index replay aborted, listing message annotations failed", "error", err)
		return
	}
	if len(annotations) == 0 && len(messages) == 0 {
		return
	}

	log.Info("Search index is empty but annotations exist, replaying store",
		"annotations", len(annotations),
		"message_annotations", len(messages),
	)

	go func() {
		docs := make([]*search.Document, 0, len(annotations)+len(messages))
		for _, a := range annotations {
			docs = append(docs, search.DocumentFromAnnotation(a))
		}
		for _, m := range messages {
			docs = append(docs, search.DocumentFromMessageAnnotation(m))
		}
		if err := indexHandle.IndexDocuments(docs); err != nil {
			log.Error("Search index replay failed", "error", err)
			return
		}
		count, _ := indexHandle.DocumentCount()
		log.Info("Search index replay completed", "documents", count)
	}()
}
