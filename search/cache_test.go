package search_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pkg.world.dev/ecscore/gamestate"
	"pkg.world.dev/ecscore/search"
	"pkg.world.dev/ecscore/types"
)

type Health struct{ Value int }

func (Health) Name() string { return "Health" }

type Pos struct{ X, Y int }

func (Pos) Name() string { return "Pos" }

type Mana struct{ Value int }

func (Mana) Name() string { return "Mana" }

// TestMultiViewCache is scenario S2 from spec.md §8.
func TestMultiViewCache(t *testing.T) {
	store := gamestate.New()
	registry := search.NewRegistry(store)

	e1, _ := store.CreateEntity(types.InvalidEntityID)
	require.NoError(t, store.AddComponent(e1.ID(), "Health", Health{Value: 10}))
	require.NoError(t, store.AddComponent(e1.ID(), "Pos", Pos{}))

	e2, _ := store.CreateEntity(types.InvalidEntityID)
	require.NoError(t, store.AddComponent(e2.ID(), "Health", Health{Value: 20}))
	require.NoError(t, store.AddComponent(e2.ID(), "Mana", Mana{}))

	e3, _ := store.CreateEntity(types.InvalidEntityID)
	require.NoError(t, store.AddComponent(e3.ID(), "Pos", Pos{}))
	require.NoError(t, store.AddComponent(e3.ID(), "Mana", Mana{}))

	e4, _ := store.CreateEntity(types.InvalidEntityID)
	require.NoError(t, store.AddComponent(e4.ID(), "Health", Health{Value: 30}))

	require.Equal(t, 3, len(store.View("Health")))

	healthPos := registry.Cache([]types.ComponentTypeName{"Health", "Pos"})
	require.Equal(t, 1, healthPos.Len())
	require.Equal(t, e1.ID(), healthPos.Results()[0].Entity.ID())

	q := search.NewQuery(registry, store).With("Health").Without("Pos")
	require.Equal(t, 2, q.Count())

	q2 := search.NewQuery(registry, store).AnyOf("Pos", "Mana")
	require.Equal(t, 3, q2.Count())

	q3 := search.NewQuery(registry, store).With("Health").Filter(func(rec search.Record) bool {
		return rec.Components["Health"].(Health).Value > 15
	})
	require.Equal(t, 2, q3.Count())
}

// TestReactiveCache is scenario S3 from spec.md §8.
func TestReactiveCache(t *testing.T) {
	store := gamestate.New()
	registry := search.NewRegistry(store)

	entity, _ := store.CreateEntity(types.InvalidEntityID)
	require.NoError(t, store.AddComponent(entity.ID(), "Health", Health{Value: 1}))

	cache := registry.Cache([]types.ComponentTypeName{"Health", "Pos"})
	require.Equal(t, 0, cache.Len())

	require.NoError(t, store.AddComponent(entity.ID(), "Pos", Pos{}))
	require.Equal(t, 1, cache.Len())
	require.Equal(t, entity.ID(), cache.Results()[0].Entity.ID())

	require.NoError(t, store.RemoveComponent(entity.ID(), "Pos"))
	require.Equal(t, 0, cache.Len())

	require.NoError(t, store.AddComponent(entity.ID(), "Pos", Pos{}))
	require.Equal(t, 1, cache.Len())

	store.RemoveEntity(entity.ID())
	require.Equal(t, 0, cache.Len())
}

func TestCacheSwapAndPopEviction(t *testing.T) {
	store := gamestate.New()
	registry := search.NewRegistry(store)

	cache := registry.Cache([]types.ComponentTypeName{"Health"})

	var entities []types.EntityID
	for i := 0; i < 3; i++ {
		entity, _ := store.CreateEntity(types.InvalidEntityID)
		require.NoError(t, store.AddComponent(entity.ID(), "Health", Health{Value: i}))
		entities = append(entities, entity.ID())
	}
	require.Equal(t, 3, cache.Len())

	// Evict the first (non-last) record and confirm the swap rewires the
	// moved record's index rather than leaving it stale.
	require.NoError(t, store.RemoveComponent(entities[0], "Health"))
	require.Equal(t, 2, cache.Len())

	remaining := map[types.EntityID]bool{}
	for _, rec := range cache.Results() {
		remaining[rec.Entity.ID()] = true
	}
	require.True(t, remaining[entities[1]])
	require.True(t, remaining[entities[2]])
	require.False(t, remaining[entities[0]])
}

func TestQueryWithNoClausesReturnsEmpty(t *testing.T) {
	store := gamestate.New()
	registry := search.NewRegistry(store)

	entity, _ := store.CreateEntity(types.InvalidEntityID)
	require.NoError(t, store.AddComponent(entity.ID(), "Health", Health{}))

	q := search.NewQuery(registry, store)
	require.Equal(t, 0, q.Count())
}
