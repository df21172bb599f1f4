// Package remind turns stored reminders into delivered notifications. A
// WakeScheduler holds one armed timer per reminder; the Coordinator reacts
// to store changes, arms and disarms wakes, and hands due reminders to a
// Notifier.
package remind

import (
	"sync"
	"time"
)

// WakeScheduler arms wakes for reminder ids. Implementations must
// tolerate Schedule being called again for an already-armed id; the new
// time replaces the old one.
type WakeScheduler interface {
	Schedule(reminderID string, at time.Time)
	Cancel(reminderID string)
	Stop()
}

// TimerScheduler is the in-process WakeScheduler. Times in the past fire
// immediately.
type TimerScheduler struct {
	fire func(reminderID string)
	now  func() time.Time

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

// NewTimerScheduler creates a scheduler that calls fire once per wake.
func NewTimerScheduler(fire func(reminderID string)) *TimerScheduler {
	return &TimerScheduler{
		fire:   fire,
		now:    time.Now,
		timers: make(map[string]*time.Timer),
	}
}

// Schedule arms a wake, replacing any existing wake for the same id.
func (s *TimerScheduler) Schedule(reminderID string, at time.Time) {
	delay := at.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	if existing, ok := s.timers[reminderID]; ok {
		existing.Stop()
	}
	s.timers[reminderID] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, reminderID)
		s.mu.Unlock()
		s.fire(reminderID)
	})
}

// Cancel disarms a wake. Unknown ids are a no-op.
func (s *TimerScheduler) Cancel(reminderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[reminderID]; ok {
		t.Stop()
		delete(s.timers, reminderID)
	}
}

// Stop disarms everything and refuses new wakes.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// Armed reports how many wakes are currently pending.
func (s *TimerScheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
