package scheduler_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"pkg.world.dev/ecscore/cmdbuffer"
	"pkg.world.dev/ecscore/events"
	"pkg.world.dev/ecscore/gamestate"
	"pkg.world.dev/ecscore/scheduler"
	"pkg.world.dev/ecscore/search"
	"pkg.world.dev/ecscore/system"
	"pkg.world.dev/ecscore/types"
)

func noopLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func contextBackground() context.Context { return context.Background() }

type Val struct{ Data int }

func (Val) Name() string { return "Val" }

// TestSchedulerDependencyOrder is scenario S5 from spec.md §8: a Producer
// that writes Val and a Consumer that reads it, ordered by an explicit
// After edge, run across two ticks.
func TestSchedulerDependencyOrder(t *testing.T) {
	store := gamestate.New()
	registry := search.NewRegistry(store)
	dispatcher := events.NewDispatcher()
	logger := noopLogger()
	sched := scheduler.New(store, registry, dispatcher, scheduler.NewErrgroupPool(), logger)

	for i := 0; i < 10; i++ {
		entity, err := store.CreateEntity(types.InvalidEntityID)
		require.NoError(t, err)
		require.NoError(t, store.AddComponent(entity.ID(), "Val", &Val{Data: 0}))
	}

	var sum int

	// Producer holds READ_WRITE on Val and each Val is stored by pointer, so
	// the increment mutates the instance in place (spec.md §5) and is
	// visible to Consumer in the next batch of the same tick. Command
	// buffer effects would only land at end of tick.
	producer, err := system.New(
		func(view search.Record, commands *cmdbuffer.Buffer) error {
			view.Components["Val"].(*Val).Data++
			return nil
		},
		system.AccessTable{"Val": system.ReadWrite},
		system.Name("Producer"),
	)
	require.NoError(t, err)

	consumer, err := system.New(
		func(view search.Record, commands *cmdbuffer.Buffer) error {
			sum += view.Components["Val"].(*Val).Data
			return nil
		},
		system.AccessTable{"Val": system.ReadOnly},
		system.Name("Consumer"),
		system.After("Producer"),
	)
	require.NoError(t, err)

	require.NoError(t, sched.AddSystems(producer, consumer))
	_, err = sched.Build()
	require.NoError(t, err)

	sum = 0
	require.NoError(t, sched.Run(context.Background(), 0))
	require.Equal(t, 10, sum)

	sum = 0
	require.NoError(t, sched.Run(context.Background(), 0))
	require.Equal(t, 20, sum)
}

// TestRunFlushesCommandsAtEndOfTick exercises spec.md §4.7/§5's end-of-tick
// flush: structural changes queued by a body are invisible to the store
// until after the batch join, and visible once Run returns.
func TestRunFlushesCommandsAtEndOfTick(t *testing.T) {
	store := gamestate.New()
	registry := search.NewRegistry(store)
	dispatcher := events.NewDispatcher()
	sched := scheduler.New(store, registry, dispatcher, scheduler.NewErrgroupPool(), noopLogger())

	entity, err := store.CreateEntity(types.InvalidEntityID)
	require.NoError(t, err)
	require.NoError(t, store.AddComponent(entity.ID(), "Val", Val{}))

	spawner, err := system.New(
		func(view search.Record, commands *cmdbuffer.Buffer) error {
			commands.Spawn().Add("Val", Val{Data: 99})
			return nil
		},
		system.AccessTable{"Val": system.ReadWrite},
		system.Name("Spawner"),
	)
	require.NoError(t, err)

	require.NoError(t, sched.AddSystems(spawner))
	_, err = sched.Build()
	require.NoError(t, err)

	require.Equal(t, 1, len(store.EntityIDs()))
	require.NoError(t, sched.Run(context.Background(), 0))
	require.Equal(t, 2, len(store.EntityIDs()))
}

// TestRunRecoversPanickingBody covers spec.md §7: a failing body does not
// invalidate the store's invariants and the batch join still completes.
func TestRunRecoversPanickingBody(t *testing.T) {
	store := gamestate.New()
	registry := search.NewRegistry(store)
	dispatcher := events.NewDispatcher()
	sched := scheduler.New(store, registry, dispatcher, scheduler.NewErrgroupPool(), noopLogger())

	entity, err := store.CreateEntity(types.InvalidEntityID)
	require.NoError(t, err)
	require.NoError(t, store.AddComponent(entity.ID(), "Val", Val{}))

	panicky, err := system.New(
		func(view search.Record, commands *cmdbuffer.Buffer) error {
			panic("boom")
		},
		system.AccessTable{"Val": system.ReadWrite},
		system.Name("Panicky"),
	)
	require.NoError(t, err)

	require.NoError(t, sched.AddSystems(panicky))
	_, err = sched.Build()
	require.NoError(t, err)

	runErr := sched.Run(context.Background(), 0)
	require.Error(t, runErr)
	require.True(t, store.HasEntity(entity.ID()))
}

// TestClearResetsScheduler covers Scheduler.Clear dropping descriptors, the
// batch plan, and the dependency/conflict tables, per spec.md §4.7.
func TestClearResetsScheduler(t *testing.T) {
	store := gamestate.New()
	registry := search.NewRegistry(store)
	dispatcher := events.NewDispatcher()
	sched := scheduler.New(store, registry, dispatcher, scheduler.NewErrgroupPool(), noopLogger())

	d, err := system.New(noopBody, system.AccessTable{"X": system.ReadOnly}, system.Name("Solo"))
	require.NoError(t, err)

	require.NoError(t, sched.AddSystems(d))
	_, err = sched.Build()
	require.NoError(t, err)
	require.Equal(t, []string{"Solo"}, sched.GetRegisteredSystems())

	sched.Clear()
	require.Empty(t, sched.GetRegisteredSystems())
	require.NoError(t, sched.AddSystems(d))
}

// TestAddSystemsRejectsDuplicateNames covers the all-or-nothing registration
// guarantee documented on Scheduler.AddSystems.
func TestAddSystemsRejectsDuplicateNames(t *testing.T) {
	store := gamestate.New()
	registry := search.NewRegistry(store)
	dispatcher := events.NewDispatcher()
	sched := scheduler.New(store, registry, dispatcher, scheduler.NewErrgroupPool(), noopLogger())

	d1, err := system.New(noopBody, system.AccessTable{"X": system.ReadOnly}, system.Name("Dup"))
	require.NoError(t, err)
	d2, err := system.New(noopBody, system.AccessTable{"Y": system.ReadOnly}, system.Name("Dup"))
	require.NoError(t, err)

	require.NoError(t, sched.AddSystems(d1))
	err = sched.AddSystems(d2)
	require.True(t, errors.Is(err, scheduler.ErrDuplicateSystem))
	require.Empty(t, sched.GetRegisteredSystems()[1:])
}
