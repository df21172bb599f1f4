package rpc

import (
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convomarkapp/convomark-host/internal/color"
	"github.com/convomarkapp/convomark-host/internal/domain"
	apperrors "github.com/convomarkapp/convomark-host/internal/errors"
	"github.com/convomarkapp/convomark-host/internal/logger"
	"github.com/convomarkapp/convomark-host/internal/search"
	"github.com/convomarkapp/convomark-host/internal/store"
)

// setupRPC wires a server and client over an in-process pipe, backed by an
// in-memory store and search index.
func setupRPC(t *testing.T) (*StoreClient, *store.Store) {
	t.Helper()

	log := logger.New(logger.Config{Writer: io.Discard})

	st, err := store.New(store.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	idx, err := search.NewIndex(search.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	st.SetSearchIndexer(idx)

	srv := NewServer(ServerOptions{Logger: log})
	RegisterStoreHandlers(srv, st, idx)

	serverConn, clientConn := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = srv.ServeConn(ctx, "test-conn", serverConn)
	}()

	client := NewClient(clientConn, ClientOptions{Logger: log})
	t.Cleanup(func() {
		_ = client.Close()
		cancel()
		_ = serverConn.Close()
	})

	return NewStoreClient(client), st
}

func newTestAnnotation(name string) *domain.Annotation {
	return domain.NewAnnotation(domain.OriginWhatsApp, "fp-"+name, name)
}

func TestRPC_Ping(t *testing.T) {
	sc, _ := setupRPC(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, sc.Ping(ctx))
}

func TestRPC_AnnotationRoundTrip(t *testing.T) {
	sc, _ := setupRPC(t)
	ctx := context.Background()

	a := newTestAnnotation("Alice Johnson")
	a.Note = "send invoice"

	stored, err := sc.PutAnnotation(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, a.ID, stored.ID)
	assert.False(t, stored.UpdatedAt.IsZero())

	got, err := sc.GetAnnotation(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Alice Johnson", got.DisplayName)
	assert.Equal(t, "send invoice", got.Note)

	list, err := sc.ListAnnotations(ctx, ListAnnotationsPayload{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	deleted, err := sc.DeleteAnnotation(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err = sc.GetAnnotation(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRPC_GetMissingAnswersNull(t *testing.T) {
	sc, _ := setupRPC(t)
	ctx := context.Background()

	got, err := sc.GetAnnotation(ctx, "whatsapp-web:nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	r, err := sc.GetMessageAnnotation(ctx, "whatsapp-web:nope:s:0:d")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestRPC_ListFilterCrossesWire(t *testing.T) {
	sc, _ := setupRPC(t)
	ctx := context.Background()

	a := newTestAnnotation("Alice Johnson")
	a.SetLabels([]string{"urgent"})
	_, err := sc.PutAnnotation(ctx, a)
	require.NoError(t, err)

	b := newTestAnnotation("Bob Stone")
	_, err = sc.PutAnnotation(ctx, b)
	require.NoError(t, err)

	list, err := sc.ListAnnotations(ctx, ListAnnotationsPayload{Label: "urgent"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Alice Johnson", list[0].DisplayName)

	list, err = sc.ListAnnotations(ctx, ListAnnotationsPayload{Origin: string(domain.OriginTelegram)})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRPC_ValidationErrorCrossesWire(t *testing.T) {
	sc, _ := setupRPC(t)
	ctx := context.Background()

	a := newTestAnnotation("Alice Johnson")
	a.Note = strings.Repeat("x", domain.NoteMaxLen+1)

	_, err := sc.PutAnnotation(ctx, a)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRecord)
}

func TestRPC_BadOriginFilterRejected(t *testing.T) {
	sc, _ := setupRPC(t)
	ctx := context.Background()

	_, err := sc.ListAnnotations(ctx, ListAnnotationsPayload{Origin: "myspace"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRPC_UnknownAction(t *testing.T) {
	sc, _ := setupRPC(t)
	ctx := context.Background()

	_, err := sc.c.Call(ctx, "no-such-action", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRPC_SettingsOverWire(t *testing.T) {
	sc, _ := setupRPC(t)
	ctx := context.Background()

	s, err := sc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings().IndicatorStyle, s.IndicatorStyle)

	style := "badge"
	s, err = sc.PatchSettings(ctx, &domain.SettingsPatch{IndicatorStyle: &style})
	require.NoError(t, err)
	assert.Equal(t, "badge", s.IndicatorStyle)
}

func TestRPC_SnapshotOverWire(t *testing.T) {
	sc, _ := setupRPC(t)
	ctx := context.Background()

	_, err := sc.PutAnnotation(ctx, newTestAnnotation("Alice Johnson"))
	require.NoError(t, err)

	snap, err := sc.ExportAll(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, domain.SnapshotVersion, snap.Version)
	assert.Len(t, snap.Annotations, 1)

	// A mismatched version is rejected before touching the store
	bad := &domain.Snapshot{Version: "99"}
	err = sc.ImportAll(ctx, bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSchemaMismatch)

	list, err := sc.ListAnnotations(ctx, ListAnnotationsPayload{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRPC_SearchOverWire(t *testing.T) {
	sc, _ := setupRPC(t)
	ctx := context.Background()

	a := newTestAnnotation("Alice Johnson")
	a.Note = "remember the invoice"
	_, err := sc.PutAnnotation(ctx, a)
	require.NoError(t, err)

	params := search.DefaultParams()
	params.Query = "invoice"

	result, err := sc.SearchAnnotations(ctx, params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, a.ID, result.Hits[0].ID)
}

func TestRPC_RemindersAndLabelsOverWire(t *testing.T) {
	sc, _ := setupRPC(t)
	ctx := context.Background()

	a := newTestAnnotation("Alice Johnson")
	_, err := sc.PutAnnotation(ctx, a)
	require.NoError(t, err)

	r := domain.NewReminder("rem-1", a.ID, time.Now().Add(time.Hour))
	stored, err := sc.PutReminder(ctx, r)
	require.NoError(t, err)
	assert.True(t, stored.Active)

	reminders, err := sc.ListReminders(ctx)
	require.NoError(t, err)
	assert.Len(t, reminders, 1)

	deleted, err := sc.DeleteReminder(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = sc.PutLabel(ctx, &domain.Label{ID: "billing", DisplayName: "Billing", Color: "#aa0000"})
	require.NoError(t, err)

	labels, err := sc.ListLabels(ctx)
	require.NoError(t, err)
	assert.Len(t, labels, 1)
}

func TestRPC_LabelSlugAndColorDerived(t *testing.T) {
	sc, _ := setupRPC(t)
	ctx := context.Background()

	stored, err := sc.PutLabel(ctx, &domain.Label{DisplayName: " Follow Up! "})
	require.NoError(t, err)
	assert.Equal(t, "follow-up", stored.ID)
	assert.Equal(t, color.ForLabel("follow-up"), stored.Color)

	// Same display name resolves to the same label.
	again, err := sc.PutLabel(ctx, &domain.Label{DisplayName: "follow up"})
	require.NoError(t, err)
	assert.Equal(t, stored.ID, again.ID)

	_, err = sc.PutLabel(ctx, &domain.Label{DisplayName: "Billing", Color: "red"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = sc.PutLabel(ctx, &domain.Label{Color: "#aa0000"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = sc.PutLabel(ctx, &domain.Label{DisplayName: "!!!"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRPC_StatsOverWire(t *testing.T) {
	sc, _ := setupRPC(t)
	ctx := context.Background()

	_, err := sc.PutAnnotation(ctx, newTestAnnotation("Alice Johnson"))
	require.NoError(t, err)

	stats, err := sc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Annotations)
	assert.Greater(t, stats.BytesInUse, int64(0))
}

func TestRPC_ConcurrentCalls(t *testing.T) {
	sc, _ := setupRPC(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := newTestAnnotation(string(rune('A'+i)) + " Contact")
			if _, err := sc.PutAnnotation(ctx, a); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	list, err := sc.ListAnnotations(ctx, ListAnnotationsPayload{})
	require.NoError(t, err)
	assert.Len(t, list, 20)
}

func TestClient_InvalidatedWhenPeerCloses(t *testing.T) {
	log := logger.New(logger.Config{Writer: io.Discard})
	serverConn, clientConn := net.Pipe()

	client := NewClient(clientConn, ClientOptions{Logger: log})
	t.Cleanup(func() { _ = client.Close() })

	// In-flight call fails once the peer goes away
	done := make(chan error, 1)
	go func() {
		_, err := client.Call(context.Background(), ActionPing, nil)
		done <- err
	}()

	// Let the call register and write its frame, then drop the transport
	time.Sleep(50 * time.Millisecond)
	_ = serverConn.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, apperrors.ErrContextInvalidated)
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight call did not fail after peer close")
	}

	// Subsequent calls fail immediately
	_, err := client.Call(context.Background(), ActionPing, nil)
	assert.ErrorIs(t, err, apperrors.ErrContextInvalidated)
	assert.True(t, client.Invalidated())
}

func TestClient_LivenessDetectsDeadPeer(t *testing.T) {
	log := logger.New(logger.Config{Writer: io.Discard})
	serverConn, clientConn := net.Pipe()

	client := NewClient(clientConn, ClientOptions{
		Logger:           log,
		LivenessInterval: 20 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })

	// A peer that never answers and then disappears
	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = serverConn.Close()
	}()

	require.Eventually(t, client.Invalidated, 2*time.Second, 10*time.Millisecond)
}

func TestFrameCodec_RoundTrip(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	writer := newFrameWriter(clientConn)
	reader := newFrameReader(serverConn)

	go func() {
		_ = writer.Write(Request{ID: "req-1", Action: ActionPing})
	}()

	var req Request
	require.NoError(t, reader.Read(&req))
	assert.Equal(t, "req-1", req.ID)
	assert.Equal(t, ActionPing, req.Action)
}

func TestFrameCodec_RejectsOversizedHeader(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	go func() {
		// Header claims a frame far beyond the cap
		_, _ = clientConn.Write([]byte{0xff, 0xff, 0xff, 0xff})
	}()

	reader := newFrameReader(serverConn)
	var req Request
	err := reader.Read(&req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds limit")
}
