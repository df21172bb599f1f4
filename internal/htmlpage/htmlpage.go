// Package htmlpage wraps a parsed HTML tree with guarded access and
// mutation notification. The reconciliation engine treats a Document the
// way a content script treats the live page: reads and writes go through
// the lock, and observers hear about every mutation batch so they can
// schedule work.
package htmlpage

import (
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Document is a mutable HTML tree. All access goes through Read and
// Mutate; holding *html.Node pointers across calls is allowed, the host
// page owns node lifetime, but dereferencing them outside the lock is not.
type Document struct {
	mu      sync.RWMutex
	root    *html.Node
	version uint64

	obsMu     sync.Mutex
	observers map[int]func()
	nextObsID int
}

// Parse builds a Document from an HTML stream.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{
		root:      root,
		observers: make(map[int]func()),
	}, nil
}

// ParseString builds a Document from HTML source.
func ParseString(src string) (*Document, error) {
	return Parse(strings.NewReader(src))
}

// Read runs fn with shared access to the tree.
func (d *Document) Read(fn func(root *html.Node)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn(d.root)
}

// Mutate runs fn with exclusive access, then notifies observers. Observers
// run outside the lock, so they may schedule further mutations.
func (d *Document) Mutate(fn func(root *html.Node)) {
	d.mu.Lock()
	fn(d.root)
	d.version++
	d.mu.Unlock()

	d.notify()
}

// Version counts mutation batches. Two reads straddling a mutation see
// different versions.
func (d *Document) Version() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Observe registers a callback fired after every mutation batch. The
// returned cancel func unregisters it.
func (d *Document) Observe(fn func()) (cancel func()) {
	d.obsMu.Lock()
	id := d.nextObsID
	d.nextObsID++
	d.observers[id] = fn
	d.obsMu.Unlock()

	return func() {
		d.obsMu.Lock()
		delete(d.observers, id)
		d.obsMu.Unlock()
	}
}

func (d *Document) notify() {
	d.obsMu.Lock()
	callbacks := make([]func(), 0, len(d.observers))
	for _, fn := range d.observers {
		callbacks = append(callbacks, fn)
	}
	d.obsMu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// Render serializes the tree, mainly for tests and debugging.
func (d *Document) Render() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var sb strings.Builder
	if err := html.Render(&sb, d.root); err != nil {
		return "", err
	}
	return sb.String(), nil
}
