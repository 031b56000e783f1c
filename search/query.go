package search

import (
	"pkg.world.dev/ecscore/gamestate"
	"pkg.world.dev/ecscore/types"
)

// Predicate is a user-defined record-level filter, the `filter` clause of
// spec.md §4.3.
type Predicate func(Record) bool

// Query is an immediate-mode builder over a Registry's caches. It carries
// up to four optional clauses and is evaluated fresh on every call to
// Each/Count/First — it never caches its own result, mirroring the
// teacher's search.Search value (cardinal/search/search.go), which wraps a
// cache handle rather than owning one.
type Query struct {
	registry *Registry
	store    *gamestate.Store

	with    []types.ComponentTypeName
	without []types.ComponentTypeName
	anyOf   []types.ComponentTypeName
	filter  Predicate
}

// NewQuery starts a builder bound to registry.
func NewQuery(registry *Registry, store *gamestate.Store) *Query {
	return &Query{registry: registry, store: store}
}

func (q *Query) With(names ...types.ComponentTypeName) *Query {
	q.with = append(q.with, names...)
	return q
}

func (q *Query) Without(names ...types.ComponentTypeName) *Query {
	q.without = append(q.without, names...)
	return q
}

func (q *Query) AnyOf(names ...types.ComponentTypeName) *Query {
	q.anyOf = append(q.anyOf, names...)
	return q
}

func (q *Query) Filter(pred Predicate) *Query {
	q.filter = pred
	return q
}

// evaluate runs the three-branch execution rule from spec.md §4.3.
func (q *Query) evaluate() []Record {
	switch {
	case len(q.with) > 0:
		return q.evaluateWith()
	case len(q.anyOf) > 0:
		return q.evaluateAnyOf()
	default:
		return nil
	}
}

func (q *Query) evaluateWith() []Record {
	cache := q.registry.Cache(q.with)
	out := make([]Record, 0, cache.Len())
	for _, rec := range cache.Results() {
		if q.rejectedByWithout(rec) {
			continue
		}
		if !q.satisfiesAnyOf(rec) {
			continue
		}
		if q.filter != nil && !q.filter(rec) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (q *Query) evaluateAnyOf() []Record {
	seen := make(map[types.EntityID]struct{})
	var out []Record

	for _, name := range q.anyOf {
		for id, comp := range q.store.View(name) {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			entity, ok := q.store.GetEntity(id)
			if !ok {
				continue
			}
			rec := Record{Entity: entity, Components: map[types.ComponentTypeName]types.Component{name: comp}}
			for _, other := range q.anyOf {
				if other == name {
					continue
				}
				if c, err := q.store.GetComponent(id, other); err == nil {
					rec.Components[other] = c
				}
			}

			if q.rejectedByWithout(rec) {
				continue
			}
			if q.filter != nil && !q.filter(rec) {
				continue
			}
			out = append(out, rec)
		}
	}
	return out
}

func (q *Query) rejectedByWithout(rec Record) bool {
	for _, name := range q.without {
		if q.store.HasComponent(rec.Entity.ID(), name) {
			return true
		}
	}
	return false
}

func (q *Query) satisfiesAnyOf(rec Record) bool {
	if len(q.anyOf) == 0 {
		return true
	}
	for _, name := range q.anyOf {
		if q.store.HasComponent(rec.Entity.ID(), name) {
			return true
		}
	}
	return false
}

// Each visits every matching record in unspecified order.
func (q *Query) Each(fn func(Record)) {
	for _, rec := range q.evaluate() {
		fn(rec)
	}
}

// Count returns the number of matching records.
func (q *Query) Count() int {
	return len(q.evaluate())
}

// First returns the first matching record, if any.
func (q *Query) First() (Record, bool) {
	results := q.evaluate()
	if len(results) == 0 {
		return Record{}, false
	}
	return results[0], true
}
