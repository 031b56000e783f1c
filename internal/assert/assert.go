// Package assert is the programming-error escape hatch spec.md §7 requires:
// conditions that should never occur at runtime (attaching an
// already-attached component, creating an entity with an out-of-range id,
// building a scheduler with no registered descriptors) abort immediately
// rather than being threaded through an ordinary error return, mirroring
// the teacher's logAndPanic pattern (cardinal/entity.go).
package assert

import (
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

// Assertf panics with an eris-wrapped, stack-aware error built from format
// and args if cond is false. Intended to abort development builds per
// spec.md §7's "Programming error" row; it must never fire on a correctly
// used public API.
func Assertf(cond bool, format string, args ...any) {
	if cond {
		return
	}
	err := eris.Errorf(format, args...)
	log.Error().Stack().Err(err).Msg("programming error")
	panic(err)
}
