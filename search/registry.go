package search

import (
	"sync"

	"pkg.world.dev/ecscore/gamestate"
	"pkg.world.dev/ecscore/types"
)

var _ types.Observer = (*Registry)(nil)

// Registry owns every Cache for one Store, keyed by normalised signature.
// It subscribes to the store as a types.Observer and fans incoming
// notifications out to every cache whose signature is affected, per
// spec.md §4.2. There is one Registry per Store; nothing here is global.
type Registry struct {
	mu    sync.Mutex
	store *gamestate.Store
	byKey map[string]*Cache

	// byName maps each component name to every cache that mentions it, so
	// onComponentChanged doesn't have to scan every cache on every change.
	byName map[types.ComponentTypeName][]*Cache
}

// NewRegistry builds a Registry and subscribes it to store.
func NewRegistry(store *gamestate.Store) *Registry {
	r := &Registry{
		store:  store,
		byKey:  make(map[string]*Cache),
		byName: make(map[types.ComponentTypeName][]*Cache),
	}
	store.Subscribe(r)
	return r
}

// Cache returns the cache for the normalised signature of names, building
// it lazily on first request, per spec.md §3 ("created lazily the first
// time a signature is queried").
func (r *Registry) Cache(names []types.ComponentTypeName) *Cache {
	sig := Signature(names)
	key := signatureKey(sig)

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.byKey[key]; ok {
		return c
	}

	c := newCache(r.store, sig)
	r.byKey[key] = c
	for _, name := range sig {
		r.byName[name] = append(r.byName[name], c)
	}
	return c
}

// OnComponentChanged implements types.Observer.
func (r *Registry) OnComponentChanged(entity types.EntityID, name types.ComponentTypeName, added bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.byName[name] {
		c.onComponentChanged(r.store, entity, name, added)
	}
}

// OnEntityRemoved implements types.Observer.
func (r *Registry) OnEntityRemoved(entity types.EntityID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.byKey {
		c.onEntityRemoved(entity)
	}
}

// OnStoreCleared implements types.Observer: every cache is emptied in place
// rather than being recreated, preserving the stable-identity guarantee for
// callers holding a *Cache across a clear.
func (r *Registry) OnStoreCleared() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.byKey {
		c.clear()
	}
}
