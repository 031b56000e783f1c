package cmdbuffer

import (
	"github.com/rs/zerolog"

	"pkg.world.dev/ecscore/events"
	"pkg.world.dev/ecscore/gamestate"
	"pkg.world.dev/ecscore/types"
)

// Flush processes the opcode stream strictly in order on the calling
// goroutine, then dispatches each event name's payloads through dispatcher,
// and finally clears both streams — spec.md §4.4. Flush must only ever be
// called from the single owning thread; it performs no locking of its own
// beyond what Store already provides.
//
// A handful of malformed sequences are non-fatal by design (spec.md §7 and
// the Open Question this module resolved toward the stricter codification):
// an ADD_TO_NEW with no preceding SPAWN, or an ADD_COMP/RM_COMP/RM_ALL/
// DESTROY targeting an entity already destroyed earlier in the same
// buffer. Both are logged and the offending opcode is skipped; flush
// continues. A DEFER callable that returns an error is treated the same
// way — logged and skipped — so a single bad callback can never leave the
// stream partially applied with its events undispatched and the buffer
// uncleared.
func (b *Buffer) Flush(store *gamestate.Store, dispatcher *events.Dispatcher, logger *zerolog.Logger) error {
	var currentSpawn types.EntityID
	var haveSpawn bool

	for _, o := range b.ops {
		switch o.kind {
		case opSpawn:
			entity, err := store.CreateEntity(types.InvalidEntityID)
			if err != nil {
				return err
			}
			currentSpawn = entity.ID()
			haveSpawn = true

		case opAddToNew:
			if !haveSpawn {
				logger.Warn().Msg("ADD_TO_NEW with no preceding SPAWN, skipping")
				continue
			}
			name := o.name
			if name == "" {
				name = o.comp.Name()
			}
			if err := store.AddComponent(currentSpawn, name, o.comp); err != nil {
				logger.Warn().Err(err).Uint32("entity_id", uint32(currentSpawn)).Msg("ADD_TO_NEW failed, skipping")
			}

		case opAddComp:
			if !store.HasEntity(o.entity) {
				logger.Warn().Uint32("entity_id", uint32(o.entity)).Msg("ADD_COMP on missing entity, skipping")
				continue
			}
			name := o.name
			if name == "" {
				name = o.comp.Name()
			}
			if err := store.AddComponent(o.entity, name, o.comp); err != nil {
				logger.Warn().Err(err).Uint32("entity_id", uint32(o.entity)).Msg("ADD_COMP failed, skipping")
			}

		case opRmComp:
			if !store.HasEntity(o.entity) {
				logger.Warn().Uint32("entity_id", uint32(o.entity)).Msg("RM_COMP on missing entity, skipping")
				continue
			}
			if err := store.RemoveComponent(o.entity, o.name); err != nil {
				logger.Warn().Err(err).Uint32("entity_id", uint32(o.entity)).Msg("RM_COMP failed, skipping")
			}

		case opRmAll:
			if !store.HasEntity(o.entity) {
				logger.Warn().Uint32("entity_id", uint32(o.entity)).Msg("RM_ALL on missing entity, skipping")
				continue
			}
			if err := store.RemoveAllComponents(o.entity); err != nil {
				logger.Warn().Err(err).Uint32("entity_id", uint32(o.entity)).Msg("RM_ALL failed, skipping")
			}

		case opDestroy:
			if !store.RemoveEntity(o.entity) {
				logger.Warn().Uint32("entity_id", uint32(o.entity)).Msg("DESTROY on missing entity, skipping")
			}

		case opDefer:
			if err := o.fn(); err != nil {
				logger.Warn().Err(err).Msg("DEFER callback failed, skipping")
			}
		}
	}

	for _, name := range b.eventOrder {
		dispatcher.Dispatch(name, b.events[name])
	}

	b.Clear()
	return nil
}
