package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/convomarkapp/convomark-host/internal/store"
)

// setupTestStore creates an in-memory store for tests.
func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(store.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// setupQuotaStore creates an in-memory store with a capacity ceiling.
func setupQuotaStore(t *testing.T, capacity int64) *store.Store {
	t.Helper()

	s, err := store.New(store.Options{InMemory: true, CapacityBytes: capacity})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// recordingEmitter captures change events for assertions.
type recordingEmitter struct {
	events []any
}

func (r *recordingEmitter) Emit(event any) {
	r.events = append(r.events, event)
}

func TestStore_EmitsChangeEvents(t *testing.T) {
	emitter := &recordingEmitter{}
	s, err := store.New(store.Options{InMemory: true, Emitter: emitter})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	a := newTestAnnotation("jo")
	_, err = s.PutAnnotation(ctx, a)
	require.NoError(t, err)

	_, err = s.DeleteAnnotation(ctx, a.ID)
	require.NoError(t, err)

	require.Len(t, emitter.events, 2)
	put, ok := emitter.events[0].(store.ChangeEvent)
	require.True(t, ok)
	require.Equal(t, "annotation", put.Kind)
	require.Equal(t, "put", put.Op)
	require.Equal(t, a.ID, put.ID)

	del, ok := emitter.events[1].(store.ChangeEvent)
	require.True(t, ok)
	require.Equal(t, "delete", del.Op)
}
