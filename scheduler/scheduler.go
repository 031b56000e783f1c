// Package scheduler builds a dependency/conflict-aware batch plan over a
// set of system descriptors and runs it tick by tick (spec.md §4.6, §4.7).
// Grounded on the fan-out/join shape of golang.org/x/sync/errgroup usage in
// Argus-Labs-world-engine/v2/cardinal.go's syncLoop and
// zeusync-zeusync/pkg/concurrent/concurrent.go; the DAG builder itself has
// no teacher equivalent (see plan.go).
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"pkg.world.dev/ecscore/cmdbuffer"
	"pkg.world.dev/ecscore/events"
	"pkg.world.dev/ecscore/gamestate"
	"pkg.world.dev/ecscore/log"
	"pkg.world.dev/ecscore/search"
	"pkg.world.dev/ecscore/system"
	"pkg.world.dev/ecscore/worldstage"
)

var ErrDuplicateSystem = eris.New("system name already registered")

// descriptorState holds the command buffers owned by one descriptor across
// a tick: the single root buffer for sequential bodies, and the
// per-view-record sub-buffer array for parallel bodies, grown to |views| on
// demand and never shrunk below that (spec.md §4.5 step 2).
type descriptorState struct {
	root    *cmdbuffer.Buffer
	subBufs []*cmdbuffer.Buffer
}

func newDescriptorState() *descriptorState {
	return &descriptorState{root: cmdbuffer.New()}
}

func (s *descriptorState) subBuffer(i int) *cmdbuffer.Buffer {
	for len(s.subBufs) <= i {
		s.subBufs = append(s.subBufs, cmdbuffer.New())
	}
	return s.subBufs[i]
}

// Scheduler owns a set of descriptors, the dependency builder's batch plan,
// and a worker pool reference, per spec.md §4.7.
type Scheduler struct {
	store      *gamestate.Store
	registry   *search.Registry
	dispatcher *events.Dispatcher
	pool       Pool
	logger     *zerolog.Logger
	stage      *worldstage.Manager

	descriptors []*system.Descriptor
	byName      map[string]*system.Descriptor
	states      map[string]*descriptorState

	plan      *Plan
	lastDelta time.Duration
}

// LastDelta returns the delta passed to the most recent Run call.
func (s *Scheduler) LastDelta() time.Duration { return s.lastDelta }

// New builds a Scheduler bound to store, its query registry, and an event
// dispatcher, using pool for fan-out. logger is tagged with a "batch" field
// per invocation via log.CreateBatchLogger.
func New(store *gamestate.Store, registry *search.Registry, dispatcher *events.Dispatcher, pool Pool, logger *zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:      store,
		registry:   registry,
		dispatcher: dispatcher,
		pool:       pool,
		logger:     logger,
		stage:      worldstage.NewManager(),
		byName:     make(map[string]*system.Descriptor),
		states:     make(map[string]*descriptorState),
	}
}

// Stage exposes the scheduler's lifecycle stage manager.
func (s *Scheduler) Stage() *worldstage.Manager { return s.stage }

// AddSystems registers descriptors. Each descriptor must declare a
// non-empty access table (enforced by system.New); registering two
// descriptors under the same name is an error and none of the batch is
// registered, matching the teacher's all-or-nothing RegisterSystems idiom.
func (s *Scheduler) AddSystems(descriptors ...*system.Descriptor) error {
	seen := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		if _, exists := s.byName[d.Name()]; exists || seen[d.Name()] {
			return eris.Wrapf(ErrDuplicateSystem, "system %q", d.Name())
		}
		seen[d.Name()] = true
	}
	for _, d := range descriptors {
		s.descriptors = append(s.descriptors, d)
		s.byName[d.Name()] = d
		s.states[d.Name()] = newDescriptorState()
	}
	return nil
}

// GetRegisteredSystems implements log.Loggable.
func (s *Scheduler) GetRegisteredSystems() []string {
	names := make([]string, 0, len(s.descriptors))
	for _, d := range s.descriptors {
		names = append(names, d.Name())
	}
	return names
}

// Build runs the dependency builder. If exactly one descriptor is
// registered it short-circuits to a single-element single-batch plan.
// Idempotent: every call recomputes from scratch. A cycle or deadlock is
// non-fatal — Build returns the error alongside the best partial plan it
// produced, and that partial plan becomes s.plan either way.
func (s *Scheduler) Build() (*Plan, error) {
	plan, err := buildPlan(s.descriptors)
	s.plan = plan
	if err != nil {
		s.logger.Warn().Err(err).Msg("scheduler build produced a partial plan")
	}
	s.stage.CompareAndSwap(worldstage.Init, worldstage.Ready)
	return plan, err
}

// Run executes one tick: every batch in the plan scatters across the
// worker pool and joins before the next batch starts, then every
// descriptor's command buffers are flushed against the store in a single
// end-of-tick pass (spec.md §4.7, §5). Per-body errors across a batch are
// collected and joined into Run's return value; a failing body does not
// stop its batch-mates or later batches from running, per spec.md §7.
func (s *Scheduler) Run(ctx context.Context, delta time.Duration) error {
	if s.plan == nil {
		if _, err := s.Build(); err != nil {
			s.logger.Warn().Err(err).Msg("Run: building plan before first tick")
		}
	}

	s.stage.Store(worldstage.Running)
	defer s.stage.CompareAndSwap(worldstage.Running, worldstage.Ready)
	s.lastDelta = delta

	var tickErr error
	for batchIdx, names := range s.plan.Batches() {
		batchLogger := log.CreateBatchLogger(s.logger, batchIdx)
		err := s.pool.GroupTask(ctx, len(names), func(i int) error {
			return s.runDescriptor(names[i], batchLogger)
		})
		tickErr = errors.Join(tickErr, err)
	}

	flushErr := s.flushAll()
	return errors.Join(tickErr, flushErr)
}

// runDescriptor implements spec.md §4.5's execution steps 1-3 for a single
// descriptor within its batch.
func (s *Scheduler) runDescriptor(name string, logger *zerolog.Logger) error {
	d := s.byName[name]
	state := s.states[name]

	cache := s.registry.Cache(d.AccessNames())
	records := cache.Results()
	if len(records) == 0 {
		return nil
	}
	sysLogger := log.CreateSystemLogger(logger, d.Name())
	sysLogger.Debug().Int("views", len(records)).Bool("parallel", d.Parallel()).Msg("running system")

	if !d.Parallel() {
		for _, rec := range records {
			if err := d.Body()(rec, state.root); err != nil {
				return eris.Wrapf(err, "system %q", d.Name())
			}
		}
		return nil
	}

	// Grow the sub-buffer array before fanning out so concurrent tasks only
	// ever read it.
	state.subBuffer(len(records) - 1)
	return s.pool.GroupTask(context.Background(), len(records), func(i int) error {
		buf := state.subBuffer(i)
		if err := d.Body()(records[i], buf); err != nil {
			return eris.Wrapf(err, "system %q view %d", d.Name(), i)
		}
		return nil
	})
}

// flushAll drains every descriptor's sub-buffers first, then its root
// buffer, against the store, per spec.md §4.5 step 4.
func (s *Scheduler) flushAll() error {
	var err error
	for _, d := range s.descriptors {
		state := s.states[d.Name()]
		for _, buf := range state.subBufs {
			if !buf.IsEmpty() {
				err = errors.Join(err, buf.Flush(s.store, s.dispatcher, s.logger))
			}
		}
		if !state.root.IsEmpty() {
			err = errors.Join(err, state.root.Flush(s.store, s.dispatcher, s.logger))
		}
	}
	return err
}

// Clear drops every descriptor, the batch plan, and the dependency/conflict
// tables, returning the scheduler to its pre-AddSystems state.
func (s *Scheduler) Clear() {
	s.descriptors = nil
	s.byName = make(map[string]*system.Descriptor)
	s.states = make(map[string]*descriptorState)
	s.plan = nil
	s.stage.Store(worldstage.Init)
}
