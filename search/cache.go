// Package search provides the reactive query cache and the query builder on
// top of it (spec.md §4.2, §4.3). Cardinal's own search package is
// archetype-based and has no equivalent of an incrementally-maintained
// cache, so this file is a fresh design grounded on the general
// observer/registry idiom the teacher uses elsewhere (see DESIGN.md).
package search

import (
	"sort"
	"strings"

	"pkg.world.dev/ecscore/gamestate"
	"pkg.world.dev/ecscore/types"
)

// Record is one row of a Cache's materialised result: the entity plus its
// component instance for every name in the cache's signature.
type Record struct {
	Entity     types.Entity
	Components map[types.ComponentTypeName]types.Component
}

// Signature normalises a set of component names into the sorted,
// deduplicated key used to identify and share caches (spec.md §3,
// "[A,B] and [B,A] share one cache").
func Signature(names []types.ComponentTypeName) []types.ComponentTypeName {
	set := make(map[types.ComponentTypeName]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	out := make([]types.ComponentTypeName, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// signatureKey turns a normalised signature into a map key.
func signatureKey(sig []types.ComponentTypeName) string {
	return strings.Join(sig, "\x00")
}

// Cache holds the materialised result for one normalised signature. Its
// identity is stable: callers that hold a *Cache see later mutations
// in place, per spec.md §4.2.
type Cache struct {
	signature []types.ComponentTypeName

	// results is the stable-identity container. Appends happen at the end;
	// evictions swap the last record into the removed slot then truncate,
	// keeping the operation O(1).
	results []Record
	// index maps entity id to its position in results.
	index map[types.EntityID]int
}

// newCache builds and populates a cache for sig from the current contents of
// store, per the §4.2 "initial build" algorithm: locate the smallest
// candidate type list in the signature and enumerate it, admitting an
// entity iff every other name in the signature is also present.
func newCache(store *gamestate.Store, sig []types.ComponentTypeName) *Cache {
	c := &Cache{
		signature: sig,
		index:     make(map[types.EntityID]int),
	}
	if len(sig) == 0 {
		return c
	}

	smallest := sig[0]
	for _, name := range sig[1:] {
		if store.ComponentCount(name) < store.ComponentCount(smallest) {
			smallest = name
		}
	}

	for id, comp := range store.View(smallest) {
		if !store.HasEntity(id) {
			continue
		}
		comps, ok := c.buildRecordComponents(store, id)
		if !ok {
			continue
		}
		comps[smallest] = comp
		c.appendLocked(id, comps, store)
	}
	return c
}

// buildRecordComponents checks that every name in the signature is present
// on id, and if so returns the full component map for the record.
func (c *Cache) buildRecordComponents(store *gamestate.Store, id types.EntityID) (map[types.ComponentTypeName]types.Component, bool) {
	comps := make(map[types.ComponentTypeName]types.Component, len(c.signature))
	for _, name := range c.signature {
		comp, err := store.GetComponent(id, name)
		if err != nil {
			return nil, false
		}
		comps[name] = comp
	}
	return comps, true
}

func (c *Cache) appendLocked(id types.EntityID, comps map[types.ComponentTypeName]types.Component, store *gamestate.Store) {
	entity, ok := store.GetEntity(id)
	if !ok {
		return
	}
	c.index[id] = len(c.results)
	c.results = append(c.results, Record{Entity: entity, Components: comps})
}

// onComponentChanged is the incremental-maintenance half of §4.2. It is
// invoked by the owning Registry under its lock, once per (entity, name)
// change that is relevant to this cache's signature.
func (c *Cache) onComponentChanged(store *gamestate.Store, id types.EntityID, name types.ComponentTypeName, added bool) {
	inSignature := false
	for _, n := range c.signature {
		if n == name {
			inSignature = true
			break
		}
	}
	if !inSignature {
		return
	}

	if added {
		if _, cached := c.index[id]; cached {
			return
		}
		comps, ok := c.buildRecordComponents(store, id)
		if !ok {
			return
		}
		c.appendLocked(id, comps, store)
		return
	}

	c.evict(id)
}

// evict removes id from the cache using swap-with-last-then-pop, per
// spec.md §4.2.
func (c *Cache) evict(id types.EntityID) {
	pos, cached := c.index[id]
	if !cached {
		return
	}
	last := len(c.results) - 1
	if pos != last {
		c.results[pos] = c.results[last]
		c.index[c.results[pos].Entity.ID()] = pos
	}
	c.results = c.results[:last]
	delete(c.index, id)
}

// onEntityRemoved drops id from the cache if present, without requiring the
// caller to know which of the entity's components mattered.
func (c *Cache) onEntityRemoved(id types.EntityID) {
	c.evict(id)
}

// clear empties the cache in place, preserving its identity.
func (c *Cache) clear() {
	c.results = c.results[:0]
	c.index = make(map[types.EntityID]int)
}

// Results returns the cache's current materialised records. The returned
// slice aliases the cache's internal storage and must not be retained past
// the next store mutation.
func (c *Cache) Results() []Record {
	return c.results
}

// Len reports how many entities currently satisfy the cache's signature.
func (c *Cache) Len() int {
	return len(c.results)
}
