package scheduler

import (
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	// ErrCycle is returned (non-fatal) when the dependency builder's ready
	// queue empties with placements still pending — a structural cycle in
	// the before/after edges, per spec.md §4.6/§7.
	ErrCycle = eris.New("scheduler: dependency graph has a cycle")
	// ErrDeadlock is returned (non-fatal) when a non-empty ready queue
	// admits nothing into a batch — every remaining candidate conflicts
	// with every other, per spec.md §4.6/§7.
	ErrDeadlock = eris.New("scheduler: unsolvable same-batch conflict")
)

// PanicError wraps a recovered panic from a worker-pool task body, keeping
// the index of the task that panicked for diagnostics: the system's
// position in its batch for a scheduler-level task, or the view record's
// index for a task inside a parallel system.
type PanicError struct {
	Index int
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task %d panicked: %v", e.Index, e.Value)
}
