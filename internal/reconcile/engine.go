// Package reconcile keeps a live chat page's indicators in sync with the
// annotation store. The engine observes the page for mutations, debounces
// them into passes, and during each pass maps stored annotations onto the
// conversation rows currently rendered. Passes are idempotent: running one
// against an already-consistent page changes nothing.
package reconcile

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/html"

	"github.com/convomarkapp/convomark-host/internal/adapter"
	"github.com/convomarkapp/convomark-host/internal/domain"
	apperrors "github.com/convomarkapp/convomark-host/internal/errors"
	"github.com/convomarkapp/convomark-host/internal/htmlpage"
	"github.com/convomarkapp/convomark-host/internal/logger"
	"github.com/convomarkapp/convomark-host/internal/rpc"
)

// Store is the slice of the daemon's API the engine needs. Satisfied by
// *rpc.StoreClient; engine code never knows whether the store is local or
// at the far end of a socket.
type Store interface {
	PutAnnotation(ctx context.Context, a *domain.Annotation) (*domain.Annotation, error)
	GetAnnotation(ctx context.Context, id string) (*domain.Annotation, error)
	DeleteAnnotation(ctx context.Context, id string) (bool, error)
	ListAnnotations(ctx context.Context, p rpc.ListAnnotationsPayload) ([]*domain.Annotation, error)
	PutReminder(ctx context.Context, r *domain.Reminder) (*domain.Reminder, error)
	GetSettings(ctx context.Context) (*domain.Settings, error)
}

// Options configures an Engine.
type Options struct {
	Document      *htmlpage.Document
	Adapter       adapter.Adapter
	Fingerprinter adapter.Fingerprinter // nil uses the display-name default
	Store         Store
	Logger        *logger.Logger

	// IdleWindow is how long the page must stay quiet after a mutation
	// before a pass runs. Bursts of mutations collapse into one pass.
	IdleWindow time.Duration
	// SubscribeCeiling bounds how long Start waits for the conversation
	// list to appear before giving up with NOT_READY.
	SubscribeCeiling time.Duration
}

// Engine reconciles one page against the store.
type Engine struct {
	doc     *htmlpage.Document
	adapter adapter.Adapter
	fp      adapter.Fingerprinter
	store   Store
	logger  *logger.Logger

	idleWindow       time.Duration
	subscribeCeiling time.Duration

	ctx       context.Context
	cancelCtx context.CancelFunc
	cancelObs func()

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	queued  bool

	// mutations the engine itself makes must not schedule another pass
	selfMutating atomic.Bool

	passes atomic.Int64
}

// subscribeBaseDelay is the first retry interval while waiting for the
// conversation list; it doubles each attempt.
const subscribeBaseDelay = 50 * time.Millisecond

// New creates an engine. Call Start to subscribe it to the page.
func New(opts Options) *Engine {
	fp := opts.Fingerprinter
	if fp == nil {
		fp = adapter.NewNameFingerprinter()
	}
	idle := opts.IdleWindow
	if idle <= 0 {
		idle = 300 * time.Millisecond
	}
	ceiling := opts.SubscribeCeiling
	if ceiling <= 0 {
		ceiling = 30 * time.Second
	}

	return &Engine{
		doc:              opts.Document,
		adapter:          opts.Adapter,
		fp:               fp,
		store:            opts.Store,
		logger:           opts.Logger,
		idleWindow:       idle,
		subscribeCeiling: ceiling,
	}
}

// Start waits for the page's conversation list, subscribes to mutations,
// and runs the initial pass. If the list never appears within the ceiling
// it returns NOT_READY; the caller decides when to try again.
func (e *Engine) Start(ctx context.Context) error {
	deadline := time.Now().Add(e.subscribeCeiling)
	delay := subscribeBaseDelay

	for {
		var found bool
		e.doc.Read(func(root *html.Node) {
			found = e.adapter.Scope(root) != nil
		})
		if found {
			break
		}

		if time.Now().Add(delay).After(deadline) {
			return apperrors.NotReady("conversation list did not appear")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	e.ctx, e.cancelCtx = context.WithCancel(ctx)
	e.cancelObs = e.doc.Observe(e.onMutation)

	e.logger.Debug("engine subscribed", "origin", e.adapter.Origin())
	e.runPass()
	return nil
}

// Stop unsubscribes and cancels any pending pass. In-flight passes finish.
func (e *Engine) Stop() {
	if e.cancelObs != nil {
		e.cancelObs()
	}
	if e.cancelCtx != nil {
		e.cancelCtx()
	}
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
	}
	e.mu.Unlock()
}

// Passes reports how many reconciliation passes have completed.
func (e *Engine) Passes() int64 {
	return e.passes.Load()
}

// onMutation is the observer callback. Every mutation resets the idle
// timer, so a burst of page churn costs one pass once it settles.
func (e *Engine) onMutation() {
	if e.selfMutating.Load() {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.timer == nil {
		e.timer = time.AfterFunc(e.idleWindow, e.runPass)
		return
	}
	e.timer.Reset(e.idleWindow)
}

// runPass executes one pass, or queues one if a pass is already running.
// The queued flag collapses any number of requests into a single rerun.
func (e *Engine) runPass() {
	e.mu.Lock()
	if e.running {
		e.queued = true
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	for {
		if err := e.pass(e.ctx); err != nil && e.ctx.Err() == nil {
			e.logger.Warn("reconciliation pass failed", "error", err)
		}
		e.passes.Add(1)

		e.mu.Lock()
		if !e.queued {
			e.running = false
			e.mu.Unlock()
			return
		}
		e.queued = false
		e.mu.Unlock()
	}
}
