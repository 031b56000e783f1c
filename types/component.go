package types

// ComponentTypeName is the interned string key identifying a component type.
// Names must be unique within a store.
type ComponentTypeName = string

// ComponentID is the small integer assigned to a component type at
// registration time. It is stable for the lifetime of a single store/
// registry instance; it is not meant to be stable across processes.
type ComponentID uint16

// Component is implemented by every concrete component type. The store
// never inspects a component's interior beyond this method.
type Component interface {
	// Name returns the component type's symbolic name.
	Name() string
}

// Packable is an optional extension a component type may implement to give
// the external snapshot collaborator (§6) a serialization hook. The store
// itself never calls these methods.
type Packable interface {
	Pack() ([]byte, error)
	Unpack([]byte) error
}

// ComponentMetadata is what the component registry hands back once a type
// has been registered: its name and registry-assigned id.
type ComponentMetadata interface {
	Name() string
	ID() ComponentID
	SetID(ComponentID) error
}

// Observer receives store mutation notifications. Implemented by the query
// cache registry and anything else that needs to react to structural
// changes, per DESIGN NOTES §9 ("Signals... observer trait plus an observer
// registry").
type Observer interface {
	// OnComponentChanged is invoked once per (entity, component name) pair
	// that was just added (added=true) or removed (added=false). Called only
	// from the flush thread.
	OnComponentChanged(entity EntityID, name ComponentTypeName, added bool)
	// OnEntityRemoved is invoked after all of an entity's components have
	// been removed and the entity row itself has been deleted.
	OnEntityRemoved(entity EntityID)
	// OnStoreCleared is invoked once when the owning store's Clear method
	// runs. The query cache registry responds by emptying every cache in
	// place rather than trying to replay a per-entity teardown.
	OnStoreCleared()
}
