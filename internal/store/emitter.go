package store

import "sync"

// FanoutEmitter relays store events to any number of subscribers. The
// store takes its emitter at construction, but interested components come
// up afterwards; they subscribe here instead.
type FanoutEmitter struct {
	mu   sync.RWMutex
	subs []EventEmitter
}

// NewFanoutEmitter creates an emitter with no subscribers.
func NewFanoutEmitter() *FanoutEmitter {
	return &FanoutEmitter{}
}

// Subscribe adds a recipient for all future events.
func (f *FanoutEmitter) Subscribe(e EventEmitter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, e)
}

// Emit relays the event to every subscriber in subscription order.
func (f *FanoutEmitter) Emit(event any) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.subs {
		s.Emit(event)
	}
}
