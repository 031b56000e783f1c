// Dependency builder: a modified Kahn topological sort with conflict-aware
// batch admission (spec.md §4.6). No teacher or pack equivalent exists —
// Cardinal's systems are unordered and strictly sequential — so this file
// is implemented directly from the algorithm description.
package scheduler

import (
	"sort"

	"pkg.world.dev/ecscore/internal/assert"
	"pkg.world.dev/ecscore/system"
)

// Plan is the dependency builder's output: an ordered list of batches, each
// an unordered set of descriptor names that may execute concurrently.
type Plan struct {
	batches    [][]string
	batchIndex map[string]int
}

// Batches returns the plan's ordered batch list.
func (p *Plan) Batches() [][]string {
	return p.batches
}

// BatchIndex returns which batch a descriptor name landed in, or -1 if the
// builder never placed it (e.g. it was part of an unresolved cycle).
func (p *Plan) BatchIndex(name string) int {
	if idx, ok := p.batchIndex[name]; ok {
		return idx
	}
	return -1
}

// buildPlan runs the dependency builder over descriptors, in registration
// order. It always returns the best partial plan it could produce,
// alongside ErrCycle or ErrDeadlock if either condition was hit — per
// spec.md §7, both are non-fatal. Calling it with no descriptors at all is a
// programming error (spec.md §7) and aborts rather than returning an error.
func buildPlan(descriptors []*system.Descriptor) (*Plan, error) {
	assert.Assertf(len(descriptors) > 0, "scheduler: build called with no registered descriptors")
	if len(descriptors) == 1 {
		name := descriptors[0].Name()
		return &Plan{
			batches:    [][]string{{name}},
			batchIndex: map[string]int{name: 0},
		}, nil
	}

	byName := make(map[string]*system.Descriptor, len(descriptors))
	order := make(map[string]int, len(descriptors))
	for i, d := range descriptors {
		byName[d.Name()] = d
		order[d.Name()] = i
	}

	successors := make(map[string][]string)
	inDegree := make(map[string]int, len(descriptors))
	for _, d := range descriptors {
		inDegree[d.Name()] = 0
	}

	addEdge := func(u, v string) {
		if _, ok := byName[u]; !ok {
			return
		}
		if _, ok := byName[v]; !ok {
			return
		}
		successors[u] = append(successors[u], v)
		inDegree[v]++
	}
	for _, d := range descriptors {
		for _, v := range d.Before() {
			addEdge(d.Name(), v)
		}
		for _, u := range d.After() {
			addEdge(u, d.Name())
		}
	}

	groupOf := func(name string) int { return byName[name].Group() }
	sortByGroupThenOrder := func(names []string) {
		sort.SliceStable(names, func(i, j int) bool {
			gi, gj := groupOf(names[i]), groupOf(names[j])
			if gi != gj {
				return gi < gj
			}
			return order[names[i]] < order[names[j]]
		})
	}

	var ready []string
	for _, d := range descriptors {
		if inDegree[d.Name()] == 0 {
			ready = append(ready, d.Name())
		}
	}
	sortByGroupThenOrder(ready)

	plan := &Plan{batchIndex: make(map[string]int, len(descriptors))}
	placed := make(map[string]bool, len(descriptors))

	for len(ready) > 0 {
		var batch []string
		var rejected []string
		reads := make(map[string]bool)
		writes := make(map[string]bool)

		for _, name := range ready {
			access := byName[name].Access()
			if conflicts(access, reads, writes) {
				rejected = append(rejected, name)
				continue
			}
			batch = append(batch, name)
			for comp, mode := range access {
				if mode == system.ReadWrite {
					writes[comp] = true
				} else {
					reads[comp] = true
				}
			}
		}

		if len(batch) == 0 {
			return plan, ErrDeadlock
		}

		batchIdx := len(plan.batches)
		plan.batches = append(plan.batches, batch)
		for _, name := range batch {
			placed[name] = true
			plan.batchIndex[name] = batchIdx
		}

		var newlyUnlocked []string
		for _, name := range batch {
			for _, succ := range successors[name] {
				inDegree[succ]--
				if inDegree[succ] == 0 {
					newlyUnlocked = append(newlyUnlocked, succ)
				}
			}
		}
		sortByGroupThenOrder(newlyUnlocked)

		ready = append(rejected, newlyUnlocked...)
	}

	if len(placed) < len(descriptors) {
		return plan, ErrCycle
	}
	return plan, nil
}

// conflicts applies the §4.6 conflict test: reject the candidate if any
// component it touches is already in writes, or if it declares a write on
// any component already in reads.
func conflicts(access system.AccessTable, reads, writes map[string]bool) bool {
	for comp, mode := range access {
		if writes[comp] {
			return true
		}
		if mode == system.ReadWrite && reads[comp] {
			return true
		}
	}
	return false
}
