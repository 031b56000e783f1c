package cmdbuffer_test

import (
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"pkg.world.dev/ecscore/cmdbuffer"
	"pkg.world.dev/ecscore/events"
	"pkg.world.dev/ecscore/gamestate"
	"pkg.world.dev/ecscore/types"
)

type Health struct{ Value int }

func (Health) Name() string { return "Health" }

// Pack/Unpack implement types.Packable via the module's default goccy/go-json
// codec, exercised here as the event-payload encoding path a host uses to
// hand a struct across the DEFER/event boundary (spec.md §6).
func (h Health) Pack() ([]byte, error) { return types.EncodeJSON(h) }
func (h *Health) Unpack(data []byte) error { return types.DecodeJSON(data, h) }

func testLogger() *zerolog.Logger {
	l := zerolog.New(os.Stderr)
	return &l
}

// TestSequentialConsistencyAtFlush is scenario S4 from spec.md §8.
func TestSequentialConsistencyAtFlush(t *testing.T) {
	store := gamestate.New()
	dispatcher := events.NewDispatcher()
	logger := testLogger()

	entity, err := store.CreateEntity(types.InvalidEntityID)
	require.NoError(t, err)

	buf := cmdbuffer.New()
	buf.For(entity.ID()).Destroy()

	var observed bool
	buf.Defer(func() error {
		observed = store.HasEntity(entity.ID())
		return nil
	})

	require.True(t, store.HasEntity(entity.ID()))

	require.NoError(t, buf.Flush(store, dispatcher, logger))

	require.False(t, store.HasEntity(entity.ID()))
	require.False(t, observed)
	require.True(t, buf.IsEmpty())
}

func TestSpawnAndAddToNew(t *testing.T) {
	store := gamestate.New()
	dispatcher := events.NewDispatcher()
	logger := testLogger()

	buf := cmdbuffer.New()
	buf.Spawn().Add("Health", Health{Value: 42})

	require.NoError(t, buf.Flush(store, dispatcher, logger))

	ids := store.EntityIDs()
	require.Len(t, ids, 1)
	comp, err := store.GetComponent(ids[0], "Health")
	require.NoError(t, err)
	require.Equal(t, 42, comp.(Health).Value)
}

// TestAddToNewWithoutSpawnIsNonFatal reuses a SpawnBuilder across a Flush,
// which is the only way the public API can produce an ADD_TO_NEW with no
// preceding SPAWN in its (now-cleared) stream. spec.md §7 requires this be
// logged and skipped, not fatal.
func TestAddToNewWithoutSpawnIsNonFatal(t *testing.T) {
	store := gamestate.New()
	dispatcher := events.NewDispatcher()
	logger := testLogger()

	buf := cmdbuffer.New()
	spawner := buf.Spawn()
	spawner.Add("Health", Health{Value: 1})
	require.NoError(t, buf.Flush(store, dispatcher, logger))
	require.Len(t, store.EntityIDs(), 1)

	spawner.Add("Health", Health{Value: 2})
	require.NoError(t, buf.Flush(store, dispatcher, logger))
	require.Len(t, store.EntityIDs(), 1)
}

func TestMergeConcatenatesOpsAndEvents(t *testing.T) {
	store := gamestate.New()
	dispatcher := events.NewDispatcher()
	logger := testLogger()

	var gotA, gotB []any
	dispatcher.AddListener("a", func(payloads []any) { gotA = payloads })
	dispatcher.AddListener("b", func(payloads []any) { gotB = payloads })

	a := cmdbuffer.New()
	a.Emit("a", 1)
	a.Emit("a", 2)

	b := cmdbuffer.New()
	b.Emit("a", 3)
	b.Emit("b", "x")

	a.Merge(b)
	require.NoError(t, a.Flush(store, dispatcher, logger))

	require.Equal(t, []any{1, 2, 3}, gotA)
	require.Equal(t, []any{"x"}, gotB)
}

// TestEventPayloadPackedCodecRoundTrips covers the Packable hook from
// spec.md §6: a component's Pack/Unpack default codec round-trips through
// an event payload batched in a buffer and dispatched by Flush, as a snapshot
// collaborator would serialize a component crossing a process boundary.
func TestEventPayloadPackedCodecRoundTrips(t *testing.T) {
	store := gamestate.New()
	dispatcher := events.NewDispatcher()
	logger := testLogger()

	var _ types.Packable = &Health{}
	packed, err := Health{Value: 7}.Pack()
	require.NoError(t, err)

	a := cmdbuffer.New()
	a.Emit("health-packed", packed)

	var got []any
	dispatcher.AddListener("health-packed", func(payloads []any) { got = payloads })

	require.NoError(t, a.Flush(store, dispatcher, logger))
	require.Len(t, got, 1)

	var unpacked Health
	require.NoError(t, unpacked.Unpack(got[0].([]byte)))
	require.Equal(t, Health{Value: 7}, unpacked)
}

// TestFlushSkipsFailingDeferAndStillCompletes covers the non-fatal handling
// of a DEFER callable that returns an error (spec.md §4.4's flush-is-atomic
// contract, §7's default of log-and-continue): prior structural ops in the
// same stream must still apply, events must still dispatch, and the buffer
// must still be cleared, even though one Defer call failed.
func TestFlushSkipsFailingDeferAndStillCompletes(t *testing.T) {
	store := gamestate.New()
	dispatcher := events.NewDispatcher()
	logger := testLogger()

	var gotEvt []any
	dispatcher.AddListener("evt", func(payloads []any) { gotEvt = payloads })

	buf := cmdbuffer.New()
	buf.Spawn().Add("Health", Health{Value: 1})
	buf.Emit("evt", "x")

	var secondRan bool
	buf.Defer(func() error { return errors.New("boom") })
	buf.Defer(func() error {
		secondRan = true
		return nil
	})

	require.NoError(t, buf.Flush(store, dispatcher, logger))

	require.Len(t, store.EntityIDs(), 1)
	require.Equal(t, []any{"x"}, gotEvt)
	require.True(t, secondRan)
	require.True(t, buf.IsEmpty())
}

func TestIsEmptyAndClear(t *testing.T) {
	buf := cmdbuffer.New()
	require.True(t, buf.IsEmpty())

	buf.Emit("evt", 1)
	require.False(t, buf.IsEmpty())

	buf.Clear()
	require.True(t, buf.IsEmpty())
}
