package remind

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convomarkapp/convomark-host/internal/domain"
	"github.com/convomarkapp/convomark-host/internal/logger"
	"github.com/convomarkapp/convomark-host/internal/store"
)

// recordingNotifier captures deliveries for assertions.
type recordingNotifier struct {
	mu         sync.Mutex
	deliveries []delivery
}

type delivery struct {
	title     string
	body      string
	withSound bool
}

func (n *recordingNotifier) Deliver(_ context.Context, title, body string, withSound bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = append(n.deliveries, delivery{title: title, body: body, withSound: withSound})
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.deliveries)
}

func (n *recordingNotifier) last() delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.deliveries[len(n.deliveries)-1]
}

// setupCoordinator wires an in-memory store whose change stream feeds the
// coordinator, the way the daemon wires it.
func setupCoordinator(t *testing.T) (*Coordinator, *store.Store, *recordingNotifier) {
	t.Helper()

	log := logger.New(logger.Config{Writer: io.Discard})
	fanout := store.NewFanoutEmitter()

	st, err := store.New(store.Options{InMemory: true, Emitter: fanout})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	notifier := &recordingNotifier{}
	c := NewCoordinator(context.Background(), CoordinatorOptions{
		Store:    st,
		Notifier: notifier,
		Logger:   log,
	})
	t.Cleanup(c.Stop)
	fanout.Subscribe(c)

	return c, st, notifier
}

func putAnnotation(t *testing.T, st *store.Store, name string) *domain.Annotation {
	t.Helper()
	a, err := st.PutAnnotation(context.Background(),
		domain.NewAnnotation(domain.OriginWhatsApp, "fp-"+name, name))
	require.NoError(t, err)
	return a
}

func TestTimerScheduler_FiresAtDueTime(t *testing.T) {
	fired := make(chan string, 1)
	s := NewTimerScheduler(func(id string) { fired <- id })
	defer s.Stop()

	s.Schedule("rem-1", time.Now().Add(30*time.Millisecond))
	assert.Equal(t, 1, s.Armed())

	select {
	case id := <-fired:
		assert.Equal(t, "rem-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("wake never fired")
	}
	assert.Equal(t, 0, s.Armed())
}

func TestTimerScheduler_PastTimesFireImmediately(t *testing.T) {
	fired := make(chan string, 1)
	s := NewTimerScheduler(func(id string) { fired <- id })
	defer s.Stop()

	s.Schedule("rem-1", time.Now().Add(-time.Hour))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("past-due wake never fired")
	}
}

func TestTimerScheduler_RescheduleReplaces(t *testing.T) {
	fired := make(chan string, 2)
	s := NewTimerScheduler(func(id string) { fired <- id })
	defer s.Stop()

	s.Schedule("rem-1", time.Now().Add(time.Hour))
	s.Schedule("rem-1", time.Now().Add(20*time.Millisecond))
	assert.Equal(t, 1, s.Armed())

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("rescheduled wake never fired")
	}

	// The original hour-long wake must not fire as well
	select {
	case <-fired:
		t.Fatal("replaced wake fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTimerScheduler_Cancel(t *testing.T) {
	fired := make(chan string, 1)
	s := NewTimerScheduler(func(id string) { fired <- id })
	defer s.Stop()

	s.Schedule("rem-1", time.Now().Add(30*time.Millisecond))
	s.Cancel("rem-1")

	select {
	case <-fired:
		t.Fatal("canceled wake fired")
	case <-time.After(150 * time.Millisecond):
	}
	assert.Equal(t, 0, s.Armed())
}

func TestCoordinator_DeliversAndConsumesReminder(t *testing.T) {
	_, st, notifier := setupCoordinator(t)
	ctx := context.Background()

	a := putAnnotation(t, st, "Alice Johnson")
	a.Note = "send the invoice"
	_, err := st.PutAnnotation(ctx, a)
	require.NoError(t, err)

	// Writing the reminder arms the wake through the change stream
	r := domain.NewReminder("rem-1", a.ID, time.Now().Add(30*time.Millisecond))
	_, err = st.PutReminder(ctx, r)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return notifier.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	got := notifier.last()
	assert.Equal(t, "Reminder: Alice Johnson", got.title)
	assert.Equal(t, "send the invoice", got.body)
	assert.True(t, got.withSound)

	// The reminder is consumed, not deleted
	stored, err := st.GetReminder(ctx, "rem-1")
	require.NoError(t, err)
	assert.False(t, stored.Active)

	// And a consumed reminder never refires
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, notifier.count())
}

func TestCoordinator_DanglingAnnotationStillDelivers(t *testing.T) {
	_, st, notifier := setupCoordinator(t)
	ctx := context.Background()

	r := domain.NewReminder("rem-1", "whatsapp-web:gone", time.Now().Add(20*time.Millisecond))
	_, err := st.PutReminder(ctx, r)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return notifier.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "ConvoMark reminder", notifier.last().title)
}

func TestCoordinator_DeletedReminderNeverFires(t *testing.T) {
	_, st, notifier := setupCoordinator(t)
	ctx := context.Background()

	a := putAnnotation(t, st, "Alice Johnson")
	r := domain.NewReminder("rem-1", a.ID, time.Now().Add(60*time.Millisecond))
	_, err := st.PutReminder(ctx, r)
	require.NoError(t, err)

	_, err = st.DeleteReminder(ctx, "rem-1")
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, notifier.count())
}

func TestCoordinator_SoundFollowsSettings(t *testing.T) {
	_, st, notifier := setupCoordinator(t)
	ctx := context.Background()

	off := false
	_, err := st.PatchSettings(ctx, &domain.SettingsPatch{ReminderSoundOn: &off})
	require.NoError(t, err)

	a := putAnnotation(t, st, "Alice Johnson")
	r := domain.NewReminder("rem-1", a.ID, time.Now().Add(20*time.Millisecond))
	_, err = st.PutReminder(ctx, r)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return notifier.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.False(t, notifier.last().withSound)
}

func TestCoordinator_RestoreWakes(t *testing.T) {
	log := logger.New(logger.Config{Writer: io.Discard})

	// A store written before the coordinator exists, as after a restart
	st, err := store.New(store.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	a := putAnnotation(t, st, "Alice Johnson")

	_, err = st.PutReminder(ctx, domain.NewReminder("rem-future", a.ID, time.Now().Add(40*time.Millisecond)))
	require.NoError(t, err)
	_, err = st.PutReminder(ctx, domain.NewReminder("rem-overdue", a.ID, time.Now().Add(-time.Hour)))
	require.NoError(t, err)

	consumed := domain.NewReminder("rem-done", a.ID, time.Now().Add(-time.Hour))
	consumed.Active = false
	_, err = st.PutReminder(ctx, consumed)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	c := NewCoordinator(ctx, CoordinatorOptions{Store: st, Notifier: notifier, Logger: log})
	t.Cleanup(c.Stop)

	require.NoError(t, c.RestoreWakes(ctx))

	// The overdue reminder fires immediately, the future one at its due
	// time, and the consumed one not at all
	require.Eventually(t, func() bool {
		return notifier.count() == 2
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 2, notifier.count())
}
