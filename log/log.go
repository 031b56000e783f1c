// Package log wraps zerolog with the field-building helpers used across the
// rest of this module, grounded on cardinal/log/log.go.
package log

import (
	"sort"

	"github.com/rs/zerolog"

	"pkg.world.dev/ecscore/types"
)

// Loggable is implemented by anything that can report its registered
// component types and system names for the World/Components/System summary
// loggers.
type Loggable interface {
	GetRegisteredComponents() []types.ComponentMetadata
	GetRegisteredSystems() []string
}

func loadComponentIntoArrayLogger(component types.ComponentMetadata, arrayLogger *zerolog.Array) *zerolog.Array {
	dictLogger := zerolog.Dict()
	dictLogger = dictLogger.Int("component_id", int(component.ID()))
	dictLogger = dictLogger.Str("component_name", component.Name())
	return arrayLogger.Dict(dictLogger)
}

func loadComponentsToEvent(event *zerolog.Event, target Loggable) *zerolog.Event {
	components := target.GetRegisteredComponents()
	sort.Slice(components, func(i, j int) bool {
		return components[i].ID() < components[j].ID()
	})
	event.Int("total_components", len(components))
	arrayLogger := zerolog.Arr()
	for _, c := range components {
		arrayLogger = loadComponentIntoArrayLogger(c, arrayLogger)
	}
	return event.Array("components", arrayLogger)
}

func loadSystemsToEvent(event *zerolog.Event, target Loggable) *zerolog.Event {
	event.Int("total_systems", len(target.GetRegisteredSystems()))
	arrayLogger := zerolog.Arr()
	for _, name := range target.GetRegisteredSystems() {
		arrayLogger = arrayLogger.Str(name)
	}
	return event.Array("systems", arrayLogger)
}

func loadEntityIntoEvent(event *zerolog.Event, entityID types.EntityID, names []types.ComponentTypeName) *zerolog.Event {
	arrayLogger := zerolog.Arr()
	for _, name := range names {
		arrayLogger = arrayLogger.Str(name)
	}
	event.Array("components", arrayLogger)
	return event.Uint32("entity_id", uint32(entityID))
}

// Components logs every registered component type.
func Components(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	event := logger.WithLevel(level)
	loadComponentsToEvent(event, target).Send()
}

// System logs every registered system name.
func System(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	event := logger.WithLevel(level)
	loadSystemsToEvent(event, target).Send()
}

// Entity logs one entity's attached component names.
func Entity(logger *zerolog.Logger, level zerolog.Level, entityID types.EntityID, names []types.ComponentTypeName) {
	event := logger.WithLevel(level)
	loadEntityIntoEvent(event, entityID, names).Send()
}

// Store logs both components and systems in one event, the module-level
// analogue of the teacher's World summary logger.
func Store(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	event := logger.WithLevel(level)
	event = loadComponentsToEvent(event, target)
	loadSystemsToEvent(event, target).Send()
}

// CreateSystemLogger returns a sub-logger tagged with the running system's
// name, used for the scheduler's own log lines about that system. System
// bodies are not handed this logger.
func CreateSystemLogger(logger *zerolog.Logger, systemName string) *zerolog.Logger {
	newLogger := logger.With().Str("system", systemName).Logger()
	return &newLogger
}

// CreateBatchLogger returns a sub-logger tagged with the scheduler batch
// index currently executing, so concurrent systems' log lines can be told
// apart without a trace id scheme.
func CreateBatchLogger(logger *zerolog.Logger, batchIndex int) *zerolog.Logger {
	newLogger := logger.With().Int("batch", batchIndex).Logger()
	return &newLogger
}
