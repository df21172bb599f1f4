package store_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convomarkapp/convomark-host/internal/domain"
	"github.com/convomarkapp/convomark-host/internal/errors"
)

func TestStats_Counts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.PutAnnotation(ctx, newTestAnnotation("Jo"))
	require.NoError(t, err)
	_, err = s.PutAnnotation(ctx, newTestAnnotation("Sam"))
	require.NoError(t, err)
	_, err = s.PutReminder(ctx, domain.NewReminder("rem-1", "whatsapp-web:fp-jo", time.Now().Add(time.Hour)))
	require.NoError(t, err)
	require.NoError(t, s.SeedDefaultLabels(ctx))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Annotations)
	assert.Equal(t, 0, st.MessageAnnotations)
	assert.Equal(t, 1, st.Reminders)
	assert.Equal(t, len(domain.DefaultLabels()), st.Labels)
	assert.Positive(t, st.BytesInUse)
}

func TestStats_QuotaHeadroom(t *testing.T) {
	s := setupQuotaStore(t, 64*1024)
	ctx := context.Background()

	_, err := s.PutAnnotation(ctx, newTestAnnotation("Jo"))
	require.NoError(t, err)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(64*1024), st.CapacityBytes)
	assert.Positive(t, st.BytesAvailable)
	assert.Equal(t, st.CapacityBytes-st.BytesInUse, st.BytesAvailable)
}

func TestPut_QuotaExceeded(t *testing.T) {
	// Capacity large enough for one small record but not a second big one.
	s := setupQuotaStore(t, 400)
	ctx := context.Background()

	small := newTestAnnotation("Jo")
	_, err := s.PutAnnotation(ctx, small)
	require.NoError(t, err)

	big := newTestAnnotation("Sam")
	big.Note = strings.Repeat("n", domain.NoteMaxLen)
	_, err = s.PutAnnotation(ctx, big)
	require.ErrorIs(t, err, errors.ErrQuotaExceeded)

	// Previously stored records remain readable unchanged.
	got, err := s.GetAnnotation(ctx, small.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jo", got.DisplayName)
}
