// Package ecscore ties the store, query registry, event dispatcher, and
// scheduler together into one entry point, grounded on
// cardinal/cardinal.go and cardinal/world.go's free-function generic API
// surface (Create/SetComponent/GetComponent/AddComponentTo/
// RemoveComponentFrom) layered over a *World owner.
package ecscore

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"pkg.world.dev/ecscore/component"
	"pkg.world.dev/ecscore/events"
	"pkg.world.dev/ecscore/gamestate"
	"pkg.world.dev/ecscore/scheduler"
	"pkg.world.dev/ecscore/search"
	"pkg.world.dev/ecscore/system"
	"pkg.world.dev/ecscore/types"
	"pkg.world.dev/ecscore/worldstage"
)

var (
	ErrMutationBeforeReady = eris.New("cannot register components or systems after the world has left Init")
	ErrComponentWrongType  = eris.New("stored component does not match the requested type")
)

// World owns one store, its query registry, its event dispatcher, and the
// scheduler that runs systems against them.
type World struct {
	store      *gamestate.Store
	registry   *search.Registry
	dispatcher *events.Dispatcher
	scheduler  *scheduler.Scheduler
	logger     *zerolog.Logger
}

// New builds a fresh, empty World. pool lets the caller choose the worker
// pool implementation (scheduler.NewErrgroupPool() for the default).
func New(pool scheduler.Pool) *World {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	store := gamestate.New()
	registry := search.NewRegistry(store)
	dispatcher := events.NewDispatcher()
	sched := scheduler.New(store, registry, dispatcher, pool, &logger)

	return &World{
		store:      store,
		registry:   registry,
		dispatcher: dispatcher,
		scheduler:  sched,
		logger:     &logger,
	}
}

func (w *World) Store() *gamestate.Store        { return w.store }
func (w *World) Registry() *search.Registry     { return w.registry }
func (w *World) Events() *events.Dispatcher     { return w.dispatcher }
func (w *World) Scheduler() *scheduler.Scheduler { return w.scheduler }
func (w *World) Logger() *zerolog.Logger        { return w.logger }

// GetRegisteredComponents implements log.Loggable.
func (w *World) GetRegisteredComponents() []types.ComponentMetadata {
	return w.store.Components().All()
}

// GetRegisteredSystems implements log.Loggable.
func (w *World) GetRegisteredSystems() []string {
	return w.scheduler.GetRegisteredSystems()
}

func requireInit(w *World, action string) error {
	if w.scheduler.Stage().Current() != worldstage.Init {
		return eris.Errorf("world stage is %s, expected %s to %s", w.scheduler.Stage().Current(), worldstage.Init, action)
	}
	return nil
}

// RegisterComponent registers component type T with w's store.
func RegisterComponent[T types.Component](w *World) error {
	if err := requireInit(w, "register component"); err != nil {
		return err
	}
	return w.store.Components().Register(component.NewMetadata[T]())
}

// RegisterSystems adds descriptors to w's scheduler.
func RegisterSystems(w *World, descriptors ...*system.Descriptor) error {
	if err := requireInit(w, "register systems"); err != nil {
		return err
	}
	return w.scheduler.AddSystems(descriptors...)
}

// Create creates a single entity carrying components, returning its
// handle. At least one component is expected by convention, though the
// store itself does not enforce it at creation time.
func Create(w *World, components ...types.Component) (types.Entity, error) {
	entity, err := w.store.CreateEntity(types.InvalidEntityID)
	if err != nil {
		return types.Entity{}, err
	}
	for _, comp := range components {
		if err := w.store.AddComponent(entity.ID(), comp.Name(), comp); err != nil {
			return types.Entity{}, eris.Wrapf(err, "creating entity with component %q", comp.Name())
		}
	}
	return entity, nil
}

// GetComponent fetches entity id's component of type T.
func GetComponent[T types.Component](w *World, id types.EntityID) (*T, error) {
	var zero T
	comp, err := w.store.GetComponent(id, zero.Name())
	if err != nil {
		return nil, err
	}
	return asPointer[T](comp)
}

// UpdateComponent fetches entity id's component of type T and applies fn to
// it. If the stored instance was registered as a pointer type, the
// mutation is visible to every other holder of that pointer with no
// separate write-back, per spec.md §5 ("bodies may mutate the interior of
// component instances they hold READ_WRITE access to"). If it was
// registered by value, fn only affects the copy returned here — register
// component types by pointer when in-place mutation across holders
// matters.
func UpdateComponent[T types.Component](w *World, id types.EntityID, fn func(*T)) (*T, error) {
	comp, err := GetComponent[T](w, id)
	if err != nil {
		return nil, err
	}
	fn(comp)
	return comp, nil
}

// AddComponentTo attaches a zero-valued T to entity id, mirroring the
// teacher's AddComponentTo[T] (cardinal/cardinal.go), which likewise adds a
// default-valued component rather than taking one from the caller.
func AddComponentTo[T types.Component](w *World, id types.EntityID) error {
	var zero T
	return w.store.AddComponent(id, zero.Name(), zero)
}

// RemoveComponentFrom detaches T from entity id.
func RemoveComponentFrom[T types.Component](w *World, id types.EntityID) error {
	var zero T
	return w.store.RemoveComponent(id, zero.Name())
}

// Remove removes entity id from w's store.
func Remove(w *World, id types.EntityID) bool {
	return w.store.RemoveEntity(id)
}

func asPointer[T types.Component](comp types.Component) (*T, error) {
	if ptr, ok := any(comp).(*T); ok {
		return ptr, nil
	}
	if val, ok := comp.(T); ok {
		return &val, nil
	}
	return nil, eris.Wrapf(ErrComponentWrongType, "got %T", comp)
}
