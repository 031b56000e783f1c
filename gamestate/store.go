// Package gamestate is the ECS data store: entities, components, and the
// indices that make typed queries cheap (spec.md §4.1). It intentionally
// does not implement an archetype layout — entities are indexed per
// component type, not grouped by exact component set — per the Non-goal
// "an archetype-based storage layout".
package gamestate

import (
	"sync"

	"github.com/rotisserie/eris"

	"pkg.world.dev/ecscore/component"
	"pkg.world.dev/ecscore/internal/assert"
	"pkg.world.dev/ecscore/types"
)

// Store holds the entity table, the per-component-type component store, and
// the entity index, plus the component registry and observer fan-out. All
// three indices are kept in agreement under a single lock (P1 in spec.md
// §8): readers take RLock, structural writers take Lock.
type Store struct {
	mu sync.RWMutex

	nextID types.EntityID
	live   map[types.EntityID]struct{}

	// componentStore[name][entityID] = component instance
	componentStore map[types.ComponentTypeName]map[types.EntityID]types.Component
	// entityIndex[entityID] = set of component names attached to it
	entityIndex map[types.EntityID]map[types.ComponentTypeName]struct{}

	components *component.Manager

	observers []types.Observer
}

// New creates an empty store. A fresh store per test, per DESIGN NOTES §9:
// there is no global/package-level state here.
func New() *Store {
	return &Store{
		nextID:         1,
		live:           make(map[types.EntityID]struct{}),
		componentStore: make(map[types.ComponentTypeName]map[types.EntityID]types.Component),
		entityIndex:    make(map[types.EntityID]map[types.ComponentTypeName]struct{}),
		components:     component.NewManager(),
	}
}

// Components exposes the store's component type registry so components can
// be registered before use.
func (s *Store) Components() *component.Manager {
	return s.components
}

// Subscribe registers an observer to be notified of every add/remove. Called
// once at setup time by the query cache registry (search.Registry) and by
// anything else that needs to react to structural changes.
func (s *Store) Subscribe(o types.Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

func (s *Store) notifyComponentChanged(id types.EntityID, name types.ComponentTypeName, added bool) {
	for _, o := range s.observers {
		o.OnComponentChanged(id, name, added)
	}
}

func (s *Store) notifyEntityRemoved(id types.EntityID) {
	for _, o := range s.observers {
		o.OnEntityRemoved(id)
	}
}

// Clear drops every entity and component, resets the id counter, and
// notifies observers once so that any query cache built on top of this
// store is emptied in one step rather than by replaying per-entity
// teardown.
func (s *Store) Clear() {
	s.mu.Lock()
	s.nextID = 1
	s.live = make(map[types.EntityID]struct{})
	s.componentStore = make(map[types.ComponentTypeName]map[types.EntityID]types.Component)
	s.entityIndex = make(map[types.EntityID]map[types.ComponentTypeName]struct{})
	observers := s.observers
	s.mu.Unlock()

	for _, o := range observers {
		o.OnStoreCleared()
	}
}

// CreateEntity allocates a new entity id, or uses the supplied one if
// non-zero. If an entity already exists at that id it is destroyed first
// (components removed, notifications fired) per spec.md §4.1. Passing an
// id outside [1, 2^32-1] is a programming error (spec.md §7) and aborts
// rather than returning an error.
func (s *Store) CreateEntity(id types.EntityID) (types.Entity, error) {
	assert.Assertf(id == types.InvalidEntityID || id <= types.MaxEntityID,
		"%v: id %d", types.ErrEntityIDOutOfRange, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if id == types.InvalidEntityID {
		id = s.nextID
		s.nextID++
	} else if _, exists := s.live[id]; exists {
		s.removeEntityLocked(id)
	} else if id >= s.nextID {
		s.nextID = id + 1
	}

	s.live[id] = struct{}{}
	s.entityIndex[id] = make(map[types.ComponentTypeName]struct{})

	return types.NewEntity(id, s), nil
}

// RemoveEntity removes all of an entity's components (firing remove
// notifications) then deletes the entity row. Returns whether the entity
// existed.
func (s *Store) RemoveEntity(id types.EntityID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeEntityLocked(id)
}

func (s *Store) removeEntityLocked(id types.EntityID) bool {
	if _, exists := s.live[id]; !exists {
		return false
	}

	for name := range s.entityIndex[id] {
		delete(s.componentStore[name], id)
		s.notifyComponentChanged(id, name, false)
	}

	delete(s.entityIndex, id)
	delete(s.live, id)
	s.notifyEntityRemoved(id)
	return true
}

func (s *Store) HasEntity(id types.EntityID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.live[id]
	return ok
}

func (s *Store) GetEntity(id types.EntityID) (types.Entity, bool) {
	if !s.HasEntity(id) {
		return types.Entity{}, false
	}
	return types.NewEntity(id, s), true
}

// EntityIDs returns a snapshot slice of every live entity id. Order is not
// specified.
func (s *Store) EntityIDs() []types.EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]types.EntityID, 0, len(s.live))
	for id := range s.live {
		ids = append(ids, id)
	}
	return ids
}

// Watermark returns the next id that will be allocated, for snapshot
// introspection per spec.md §6.
func (s *Store) Watermark() types.EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID
}

// SetWatermark restores the allocation counter, so a snapshot restore
// reproduces id allocation semantics.
func (s *Store) SetWatermark(next types.EntityID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = next
}

// AddComponent attaches comp to entity id under name. Fails if id is not
// live. Attaching a name already on the entity is a programming error
// (spec.md §3: "Attempting to attach an already-attached instance is a
// programming error") and aborts rather than returning an error.
func (s *Store) AddComponent(id types.EntityID, name types.ComponentTypeName, comp types.Component) error {
	s.mu.Lock()
	if _, exists := s.live[id]; !exists {
		s.mu.Unlock()
		return eris.Wrapf(types.ErrEntityDoesNotExist, "entity %d", id)
	}
	_, attached := s.entityIndex[id][name]
	if !attached {
		if s.componentStore[name] == nil {
			s.componentStore[name] = make(map[types.EntityID]types.Component)
		}
		s.componentStore[name][id] = comp
		s.entityIndex[id][name] = struct{}{}
	}
	s.mu.Unlock()

	assert.Assertf(!attached, "%v: entity %d, component %q", types.ErrComponentAlreadyOnEntity, id, name)

	s.notifyComponentChanged(id, name, true)
	return nil
}

// RemoveComponent detaches the named component from id.
func (s *Store) RemoveComponent(id types.EntityID, name types.ComponentTypeName) error {
	s.mu.Lock()
	if _, exists := s.live[id]; !exists {
		s.mu.Unlock()
		return eris.Wrapf(types.ErrEntityDoesNotExist, "entity %d", id)
	}
	if _, attached := s.entityIndex[id][name]; !attached {
		s.mu.Unlock()
		return eris.Wrapf(types.ErrComponentNotOnEntity, "entity %d, component %q", id, name)
	}

	delete(s.componentStore[name], id)
	delete(s.entityIndex[id], name)
	s.mu.Unlock()

	s.notifyComponentChanged(id, name, false)
	return nil
}

// RemoveAllComponents detaches every component from id. Iterates over a
// snapshot of the entity's component name set, per spec.md §4.1 ("live
// mutation of the underlying map while iterating is forbidden").
func (s *Store) RemoveAllComponents(id types.EntityID) error {
	s.mu.RLock()
	if _, exists := s.live[id]; !exists {
		s.mu.RUnlock()
		return eris.Wrapf(types.ErrEntityDoesNotExist, "entity %d", id)
	}
	names := make([]types.ComponentTypeName, 0, len(s.entityIndex[id]))
	for name := range s.entityIndex[id] {
		names = append(names, name)
	}
	s.mu.RUnlock()

	for _, name := range names {
		if err := s.RemoveComponent(id, name); err != nil {
			return err
		}
	}
	return nil
}

// GetComponent returns the component instance attached to id under name.
func (s *Store) GetComponent(id types.EntityID, name types.ComponentTypeName) (types.Component, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.live[id]; !exists {
		return nil, eris.Wrapf(types.ErrEntityDoesNotExist, "entity %d", id)
	}
	byEntity, ok := s.componentStore[name]
	if !ok {
		return nil, eris.Wrapf(types.ErrComponentNotOnEntity, "entity %d, component %q", id, name)
	}
	comp, ok := byEntity[id]
	if !ok {
		return nil, eris.Wrapf(types.ErrComponentNotOnEntity, "entity %d, component %q", id, name)
	}
	return comp, nil
}

// GetComponents returns every (name, component) pair attached to id.
func (s *Store) GetComponents(id types.EntityID) (map[types.ComponentTypeName]types.Component, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.live[id]; !exists {
		return nil, eris.Wrapf(types.ErrEntityDoesNotExist, "entity %d", id)
	}
	out := make(map[types.ComponentTypeName]types.Component, len(s.entityIndex[id]))
	for name := range s.entityIndex[id] {
		out[name] = s.componentStore[name][id]
	}
	return out, nil
}

func (s *Store) HasComponent(id types.EntityID, name types.ComponentTypeName) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entityIndex[id][name]
	return ok
}

// View linearly scans every component of the given type. No filtering, no
// cache, order unspecified.
func (s *Store) View(name types.ComponentTypeName) map[types.EntityID]types.Component {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byEntity := s.componentStore[name]
	out := make(map[types.EntityID]types.Component, len(byEntity))
	for id, comp := range byEntity {
		out[id] = comp
	}
	return out
}

// ComponentNamesOf returns a snapshot of the component-type names attached
// to entity id. Order is not specified.
func (s *Store) ComponentNamesOf(id types.EntityID) []types.ComponentTypeName {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]types.ComponentTypeName, 0, len(s.entityIndex[id]))
	for name := range s.entityIndex[id] {
		names = append(names, name)
	}
	return names
}

// ComponentCount returns how many entities currently carry the named
// component type. Used by the cache's initial-build admission to pick the
// smallest candidate type list (spec.md §4.2).
func (s *Store) ComponentCount(name types.ComponentTypeName) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.componentStore[name])
}
