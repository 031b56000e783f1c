// Package component provides the type->name registry used to resolve a
// component instance to its registered ComponentMetadata, per DESIGN NOTES
// §9 ("class-name-as-type-key resolution... translate as a type->name
// registry initialised at startup").
package component

import (
	"reflect"

	"github.com/rotisserie/eris"

	"pkg.world.dev/ecscore/types"
)

var _ types.ComponentMetadata = (*metadata[types.Component])(nil)

// metadata is the concrete ComponentMetadata for a single component type T.
type metadata[T types.Component] struct {
	isIDSet  bool
	id       types.ComponentID
	compType reflect.Type
	name     string
}

// NewMetadata builds the ComponentMetadata for component type T. The name
// comes from a zero-valued T's Name() method, matching the teacher's
// reflection-free name derivation in component/component.go.
func NewMetadata[T types.Component]() types.ComponentMetadata {
	var zero T
	return &metadata[T]{
		compType: reflect.TypeOf(zero),
		name:     zero.Name(),
	}
}

func (m *metadata[T]) Name() string { return m.name }
func (m *metadata[T]) ID() types.ComponentID { return m.id }

func (m *metadata[T]) SetID(id types.ComponentID) error {
	if m.isIDSet {
		if id == m.id {
			return nil
		}
		return eris.Errorf("id for component %q is already set to %d, cannot change to %d", m.name, m.id, id)
	}
	m.id = id
	m.isIDSet = true
	return nil
}
