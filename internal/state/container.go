// Package state holds the slice machinery shared by the client stores: a
// single-writer container that hands out snapshots and notifies subscribers,
// the pending/fulfilled/rejected bookkeeping every slice carries, and request
// sequencing for discarding stale fetches.
package state

import (
	"errors"
	"maps"
	"sync"
	"sync/atomic"

	dErrors "taskportal/pkg/domain-errors"
)

// ErrSuperseded is returned by a fenced fetch whose response arrived after a
// newer fetch of the same slice had been started. Its payload was discarded.
var ErrSuperseded = errors.New("superseded by a newer request")

// Cloner is implemented by slice state types. Clone must return a copy that
// shares no mutable memory with the receiver.
type Cloner[S any] interface {
	Clone() S
}

// Container owns one slice of state. Only Update mutates it; readers get
// snapshots. Subscribers run after each update, outside the state lock, in
// update order, and must not call Update synchronously.
type Container[S Cloner[S]] struct {
	notify sync.Mutex
	mu     sync.RWMutex
	state  S
	subs   map[uint64]func(S)
	nextID uint64
}

// New creates a container holding initial.
func New[S Cloner[S]](initial S) *Container[S] {
	return &Container[S]{state: initial, subs: map[uint64]func(S){}}
}

// Get returns a snapshot of the current state.
func (c *Container[S]) Get() S {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Clone()
}

// Update applies reduce to the state and notifies subscribers with the result.
func (c *Container[S]) Update(reduce func(s *S)) S {
	c.notify.Lock()
	defer c.notify.Unlock()

	c.mu.Lock()
	reduce(&c.state)
	snap := c.state.Clone()
	subs := make([]func(S), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snap.Clone())
	}
	return snap
}

// Subscribe registers fn for future updates and returns its cancel function.
func (c *Container[S]) Subscribe(fn func(S)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Sequence tags requests with monotonically increasing numbers.
type Sequence struct {
	n atomic.Uint64
}

// Next starts a new request and returns its tag.
func (s *Sequence) Next() uint64 {
	return s.n.Add(1)
}

// IsLatest reports whether tag belongs to the most recently started request.
func (s *Sequence) IsLatest(tag uint64) bool {
	return s.n.Load() == tag
}

// Meta is the request lifecycle part of a slice.
type Meta struct {
	Loading bool
	// Error is a general, banner-level message.
	Error string
	// FieldErrors maps form fields to inline messages.
	FieldErrors map[string]string
}

// Begin marks a fetch as pending.
func (m *Meta) Begin() {
	m.Loading = true
	m.ClearErrors()
}

// Resolve marks a fetch as fulfilled.
func (m *Meta) Resolve() {
	m.Loading = false
}

// Reject marks a fetch as failed and records err.
func (m *Meta) Reject(err error) {
	m.Loading = false
	m.Record(err)
}

// ClearErrors drops any recorded failure.
func (m *Meta) ClearErrors() {
	m.Error = ""
	m.FieldErrors = nil
}

// Record stores err either as a field map or as a general message.
func (m *Meta) Record(err error) {
	if fields := dErrors.Fields(err); len(fields) > 0 {
		m.FieldErrors = fields
		m.Error = ""
		return
	}
	m.FieldErrors = nil
	m.Error = dErrors.Message(err)
}

// Clone copies the meta, including the field map.
func (m Meta) Clone() Meta {
	m.FieldErrors = maps.Clone(m.FieldErrors)
	return m
}
