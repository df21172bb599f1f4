package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convomarkapp/convomark-host/internal/domain"
)

// setupTestIndex creates an in-memory search index for testing.
func setupTestIndex(t *testing.T) *Index {
	t.Helper()

	index, err := NewIndex(Options{InMemory: true})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = index.Close()
	})

	return index
}

func testAnnotation(name, note string, labels ...string) *domain.Annotation {
	a := &domain.Annotation{
		Origin:                  domain.OriginWhatsApp,
		ConversationFingerprint: "fp-" + name,
		DisplayName:             name,
		Note:                    note,
		Labels:                  labels,
		CreatedAt:               time.Now(),
		UpdatedAt:               time.Now(),
	}
	a.ID = domain.AnnotationID(a.Origin, a.ConversationFingerprint)
	return a
}

func TestNewIndex(t *testing.T) {
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestIndex_IndexAnnotation(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	err := index.IndexAnnotation(ctx, testAnnotation("Alice Johnson", "follow up on invoice"))
	require.NoError(t, err)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestIndex_DeleteAnnotation(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	a := testAnnotation("Alice Johnson", "")
	require.NoError(t, index.IndexAnnotation(ctx, a))

	require.NoError(t, index.DeleteAnnotation(ctx, a.ID))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestIndex_IndexDocuments_Batch(t *testing.T) {
	index := setupTestIndex(t)

	docs := []*Document{
		DocumentFromAnnotation(testAnnotation("Alice Johnson", "")),
		DocumentFromAnnotation(testAnnotation("Bob Stone", "")),
		DocumentFromAnnotation(testAnnotation("Team Standup", "")),
	}

	require.NoError(t, index.IndexDocuments(docs))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestIndex_Search_ByName(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.IndexAnnotation(ctx, testAnnotation("Alice Johnson", "")))
	require.NoError(t, index.IndexAnnotation(ctx, testAnnotation("Bob Stone", "")))

	params := DefaultParams()
	params.Query = "alice"

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "Alice Johnson", result.Hits[0].Name)
	assert.Equal(t, DocTypeConversation, result.Hits[0].Type)
}

func TestIndex_Search_ByNote(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.IndexAnnotation(ctx, testAnnotation("Alice Johnson", "send the invoice tomorrow")))
	require.NoError(t, index.IndexAnnotation(ctx, testAnnotation("Bob Stone", "birthday next week")))

	params := DefaultParams()
	params.Query = "invoice"

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "Alice Johnson", result.Hits[0].Name)
}

func TestIndex_Search_FuzzyTypo(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.IndexAnnotation(ctx, testAnnotation("Alice Johnson", "")))

	params := DefaultParams()
	params.Query = "alise"

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "Alice Johnson", result.Hits[0].Name)
}

func TestIndex_Search_LabelFilter(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.IndexAnnotation(ctx, testAnnotation("Alice Johnson", "", "urgent")))
	require.NoError(t, index.IndexAnnotation(ctx, testAnnotation("Bob Stone", "", "follow-up")))
	require.NoError(t, index.IndexAnnotation(ctx, testAnnotation("Carol Day", "")))

	params := DefaultParams()
	params.Labels = []string{"follow-up"}

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "Bob Stone", result.Hits[0].Name)
}

func TestIndex_Search_OriginFilter(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	a := testAnnotation("Alice Johnson", "")
	b := testAnnotation("Bob Stone", "")
	b.Origin = domain.OriginTelegram
	b.ID = domain.AnnotationID(b.Origin, b.ConversationFingerprint)

	require.NoError(t, index.IndexAnnotation(ctx, a))
	require.NoError(t, index.IndexAnnotation(ctx, b))

	params := DefaultParams()
	params.Origins = []string{string(domain.OriginTelegram)}

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "Bob Stone", result.Hits[0].Name)
}

func TestIndex_Search_MessageDocuments(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	m := &domain.MessageAnnotation{
		Annotation: *testAnnotation("Alice Johnson", "check this quote"),
		SenderID:   "sender-42",
		SentAt:     time.Now(),
	}
	m.ID = domain.MessageAnnotationID(m.Origin, m.ConversationFingerprint, m.SenderID, m.SentAt, "digest1")

	require.NoError(t, index.IndexDocument(DocumentFromMessageAnnotation(m)))
	require.NoError(t, index.IndexAnnotation(ctx, testAnnotation("Bob Stone", "")))

	params := DefaultParams()
	params.Types = []string{string(DocTypeMessage)}

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, DocTypeMessage, result.Hits[0].Type)
	assert.Equal(t, "sender-42", result.Hits[0].SenderID)
}

func TestIndex_Search_Facets(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.IndexAnnotation(ctx, testAnnotation("Alice Johnson", "", "urgent")))
	require.NoError(t, index.IndexAnnotation(ctx, testAnnotation("Bob Stone", "", "urgent")))
	require.NoError(t, index.IndexAnnotation(ctx, testAnnotation("Carol Day", "", "work")))

	params := DefaultParams()

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	require.NotEmpty(t, result.Facets.Labels)

	counts := make(map[string]int)
	for _, f := range result.Facets.Labels {
		counts[f.Value] = f.Count
	}
	assert.Equal(t, 2, counts["urgent"])
	assert.Equal(t, 1, counts["work"])
}

func TestIndex_Search_Highlighting(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.IndexAnnotation(ctx, testAnnotation("Alice Johnson", "remember the invoice")))

	params := DefaultParams()
	params.Query = "invoice"

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Contains(t, result.Hits[0].Highlights, "note")
}

func TestIndex_Upsert_ReplacesDocument(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	a := testAnnotation("Alice Johnson", "old note")
	require.NoError(t, index.IndexAnnotation(ctx, a))

	a.Note = "new note"
	require.NoError(t, index.IndexAnnotation(ctx, a))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	params := DefaultParams()
	params.Query = "old"
	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}
