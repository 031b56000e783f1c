package events_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pkg.world.dev/ecscore/events"
)

// TestRemoveListenerTargetsOneCallable covers spec.md:236's
// remove_listener(name, callable) contract: two independent listeners
// registered under the same name must be removable one at a time.
func TestRemoveListenerTargetsOneCallable(t *testing.T) {
	d := events.NewDispatcher()

	var gotA, gotB []any
	idA := d.AddListener("evt", func(payloads []any) { gotA = payloads })
	d.AddListener("evt", func(payloads []any) { gotB = payloads })

	d.RemoveListener("evt", idA)
	d.Dispatch("evt", []any{1})

	require.Nil(t, gotA)
	require.Equal(t, []any{1}, gotB)
}

// TestRemoveListenerUnknownIDIsNoOp mirrors the non-fatal "missing referent"
// handling used elsewhere in the module: removing a handle that was never
// registered (or already removed) must not panic or affect other listeners.
func TestRemoveListenerUnknownIDIsNoOp(t *testing.T) {
	d := events.NewDispatcher()

	var got []any
	d.AddListener("evt", func(payloads []any) { got = payloads })

	d.RemoveListener("evt", events.ListenerID(9999))
	d.Dispatch("evt", []any{"x"})

	require.Equal(t, []any{"x"}, got)
}
