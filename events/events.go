// Package events is the event dispatch contract a command buffer flush
// drains into (spec.md §1, "event dispatch layer... beyond the
// command-buffer contract" is explicitly out of scope for anything richer
// than this). Grounded on cardinal/events/events.go's EventHub, stripped of
// its websocket broadcast transport.
package events

import (
	"sync"

	"github.com/rotisserie/eris"
)

// Listener receives every payload batched under one event name during a
// single flush, in the order they were appended.
type Listener func(payloads []any)

// ListenerID is the opaque handle AddListener returns, identifying one
// registration so it can later be removed without disturbing any other
// listener registered under the same name.
type ListenerID uint64

var ErrListenerNotRegistered = eris.New("listener not registered for event")

type entry struct {
	id ListenerID
	fn Listener
}

// Dispatcher fans batched event payloads out to registered listeners. One
// Dispatcher belongs to one Store; there is no process-wide instance.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[string][]entry
	nextID    ListenerID
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[string][]entry)}
}

// AddListener registers fn to be invoked whenever name is dispatched,
// returning a handle that RemoveListener can later use to drop this
// registration specifically, leaving any other listener on name untouched.
func (d *Dispatcher) AddListener(name string, fn Listener) ListenerID {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.listeners[name] = append(d.listeners[name], entry{id: id, fn: fn})
	return id
}

// RemoveListener drops the single listener identified by id from name's
// channel, per spec.md:236's remove_listener(name, callable) contract. It is
// a no-op if id is not currently registered under name.
func (d *Dispatcher) RemoveListener(name string, id ListenerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries := d.listeners[name]
	for i, e := range entries {
		if e.id == id {
			d.listeners[name] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// Dispatch looks up name's listeners once and hands every listener the full
// payload batch, per spec.md §4.4 ("dispatch each event name's payloads...
// in a single lookup per name").
func (d *Dispatcher) Dispatch(name string, payloads []any) {
	d.mu.RLock()
	entries := d.listeners[name]
	d.mu.RUnlock()

	for _, e := range entries {
		e.fn(payloads)
	}
}
