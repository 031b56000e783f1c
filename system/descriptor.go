// Package system defines the schedulable unit the dependency builder and
// scheduler operate on (spec.md §4.5). Grounded on
// cardinal/system_manager.go's System func type and its
// reflection-based, name-derivation-and-uniqueness-checking registration
// idiom; the access table, before/after edges, group id, and parallel flag
// are new fields the teacher's sequential-only systems have no equivalent
// for.
package system

import (
	"path/filepath"
	"reflect"
	"runtime"

	"github.com/rotisserie/eris"

	"pkg.world.dev/ecscore/cmdbuffer"
	"pkg.world.dev/ecscore/search"
	"pkg.world.dev/ecscore/types"
)

// Access is the declared mode a descriptor uses a component type under.
type Access int

const (
	ReadOnly Access = iota
	ReadWrite
)

// AccessTable is the descriptor's declared read/write set, the source of
// truth the scheduler trusts for conflict detection (§4.5, "Rationale").
type AccessTable map[types.ComponentTypeName]Access

var ErrEmptyAccessTable = eris.New("descriptor access table must not be empty")

// Body is invoked once per matched view record. A parallel descriptor's
// calls each receive their own sub-buffer; a sequential descriptor's calls
// all write to the descriptor's single root buffer.
type Body func(view search.Record, commands *cmdbuffer.Buffer) error

// Descriptor is a schedulable system: its declared access, its ordering
// edges, and its body.
type Descriptor struct {
	name     string
	access   AccessTable
	before   []string
	after    []string
	group    int
	parallel bool
	body     Body
}

// Option configures a Descriptor at construction time.
type Option func(*Descriptor)

func Name(name string) Option {
	return func(d *Descriptor) { d.name = name }
}

func Before(names ...string) Option {
	return func(d *Descriptor) { d.before = append(d.before, names...) }
}

func After(names ...string) Option {
	return func(d *Descriptor) { d.after = append(d.after, names...) }
}

func Group(id int) Option {
	return func(d *Descriptor) { d.group = id }
}

func Parallel() Option {
	return func(d *Descriptor) { d.parallel = true }
}

// New builds a Descriptor. The name defaults to the body function's own
// name via reflection, matching the teacher's registration idiom; pass
// Name(...) to override it (closures don't carry a useful name).
func New(body Body, access AccessTable, opts ...Option) (*Descriptor, error) {
	if len(access) == 0 {
		return nil, ErrEmptyAccessTable
	}

	d := &Descriptor{
		name:   filepath.Base(runtime.FuncForPC(reflect.ValueOf(body).Pointer()).Name()),
		access: access,
		body:   body,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Descriptor) Name() string        { return d.name }
func (d *Descriptor) Access() AccessTable { return d.access }
func (d *Descriptor) Before() []string    { return d.before }
func (d *Descriptor) After() []string     { return d.after }
func (d *Descriptor) Group() int          { return d.group }
func (d *Descriptor) Parallel() bool      { return d.parallel }
func (d *Descriptor) Body() Body          { return d.body }

// AccessNames returns the descriptor's declared component names, the input
// to multi_view(access_table.keys()) in §4.5 step 1.
func (d *Descriptor) AccessNames() []types.ComponentTypeName {
	names := make([]types.ComponentTypeName, 0, len(d.access))
	for name := range d.access {
		names = append(names, name)
	}
	return names
}
