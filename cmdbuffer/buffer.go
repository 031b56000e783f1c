// Package cmdbuffer is the deferred command buffer, the sole conduit for
// structural store changes during parallel execution (spec.md §1, §4.4).
// Grounded on cardinal/gamestate/doc.go's pending-vs-committed description
// (the idea, not its Redis mechanics) and the teacher's general pattern of
// a buffer filled off-thread and drained on one thread.
package cmdbuffer

import (
	"github.com/rotisserie/eris"

	"pkg.world.dev/ecscore/types"
)

type opKind int

const (
	opSpawn opKind = iota
	opAddToNew
	opAddComp
	opRmComp
	opRmAll
	opDestroy
	opDefer
)

type op struct {
	kind   opKind
	entity types.EntityID
	name   types.ComponentTypeName // empty means "deduce from component"
	comp   types.Component
	fn     func() error
}

var ErrNoPrecedingSpawn = eris.New("ADD_TO_NEW with no preceding SPAWN")

// Buffer accumulates a typed, ordered opcode stream plus a per-event-name
// payload batch. It is safe to fill from any goroutine as long as the
// caller supplies its own synchronization for concurrent writers — systems
// running in the same parallel batch each own a private Buffer and never
// share one, per spec.md §5.
type Buffer struct {
	ops    []op
	events map[string][]any
	// eventOrder preserves first-seen event name order so Flush dispatches
	// deterministically even though events is a map.
	eventOrder []string
}

// New returns an empty command buffer.
func New() *Buffer {
	return &Buffer{events: make(map[string][]any)}
}

// IsEmpty reports whether the buffer has no pending operations or events.
func (b *Buffer) IsEmpty() bool {
	return len(b.ops) == 0 && len(b.events) == 0
}

// Clear drops every pending operation and event, as Flush does implicitly
// at the end of a successful flush.
func (b *Buffer) Clear() {
	b.ops = nil
	b.events = make(map[string][]any)
	b.eventOrder = nil
}

// Merge appends other's opcode stream verbatim, then concatenates its
// per-event payload lists onto the receiver's, per spec.md §4.4. other is
// left untouched.
func (b *Buffer) Merge(other *Buffer) {
	b.ops = append(b.ops, other.ops...)
	for _, name := range other.eventOrder {
		if _, exists := b.events[name]; !exists {
			b.eventOrder = append(b.eventOrder, name)
		}
		b.events[name] = append(b.events[name], other.events[name]...)
	}
}

// Emit appends payload to the batch for event name.
func (b *Buffer) Emit(name string, payload any) {
	if _, exists := b.events[name]; !exists {
		b.eventOrder = append(b.eventOrder, name)
	}
	b.events[name] = append(b.events[name], payload)
}

// Spawn appends a SPAWN opcode and returns a fluent sub-scope for attaching
// components to the entity it will create at flush time. The builder never
// touches the store itself, per spec.md §4.4.
func (b *Buffer) Spawn() *SpawnBuilder {
	b.ops = append(b.ops, op{kind: opSpawn})
	return &SpawnBuilder{buf: b}
}

// Destroy appends a DESTROY opcode for id.
func (b *Buffer) Destroy(id types.EntityID) {
	b.ops = append(b.ops, op{kind: opDestroy, entity: id})
}

// Defer appends a DEFER opcode; fn runs once on the flush thread, in order
// relative to every other queued operation.
func (b *Buffer) Defer(fn func() error) {
	b.ops = append(b.ops, op{kind: opDefer, fn: fn})
}

// For returns a fluent sub-scope for queuing ADD_COMP/RM_COMP/RM_ALL
// operations against an already-existing entity id.
func (b *Buffer) For(id types.EntityID) *EntityBuilder {
	return &EntityBuilder{buf: b, entity: id}
}

// SpawnBuilder is the fluent sub-scope returned by Buffer.Spawn.
type SpawnBuilder struct {
	buf *Buffer
}

// Add queues an ADD_TO_NEW opcode. If name is empty it is deduced from
// comp.Name() at flush time.
func (s *SpawnBuilder) Add(name types.ComponentTypeName, comp types.Component) *SpawnBuilder {
	s.buf.ops = append(s.buf.ops, op{kind: opAddToNew, name: name, comp: comp})
	return s
}

// EntityBuilder is the fluent sub-scope returned by Buffer.For.
type EntityBuilder struct {
	buf    *Buffer
	entity types.EntityID
}

// Add queues an ADD_COMP opcode against the builder's entity.
func (e *EntityBuilder) Add(name types.ComponentTypeName, comp types.Component) *EntityBuilder {
	e.buf.ops = append(e.buf.ops, op{kind: opAddComp, entity: e.entity, name: name, comp: comp})
	return e
}

// Remove queues an RM_COMP opcode against the builder's entity.
func (e *EntityBuilder) Remove(name types.ComponentTypeName) *EntityBuilder {
	e.buf.ops = append(e.buf.ops, op{kind: opRmComp, entity: e.entity, name: name})
	return e
}

// RemoveAll queues an RM_ALL opcode against the builder's entity.
func (e *EntityBuilder) RemoveAll() *EntityBuilder {
	e.buf.ops = append(e.buf.ops, op{kind: opRmAll, entity: e.entity})
	return e
}

// Destroy queues a DESTROY opcode against the builder's entity.
func (e *EntityBuilder) Destroy() *EntityBuilder {
	e.buf.ops = append(e.buf.ops, op{kind: opDestroy, entity: e.entity})
	return e
}
