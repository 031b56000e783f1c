package component

import (
	"sync"

	"github.com/rotisserie/eris"

	"pkg.world.dev/ecscore/types"
)

var ErrComponentAlreadyRegistered = eris.New("component already registered")

// Manager is the store-instance-scoped component type registry. There is no
// global registry: every gamestate.Store owns exactly one Manager, per
// DESIGN NOTES §9 ("Global state. There is none required").
type Manager struct {
	mu                    sync.RWMutex
	registeredComponents  map[string]types.ComponentMetadata
	nextComponentID       types.ComponentID
}

func NewManager() *Manager {
	return &Manager{
		registeredComponents: make(map[string]types.ComponentMetadata),
		nextComponentID:      1,
	}
}

// Register registers the component type described by meta under its
// declared name. Registering the same name twice is an error; re-registering
// the exact same metadata value is a no-op.
func (m *Manager) Register(meta types.ComponentMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.registeredComponents[meta.Name()]; ok {
		if existing != meta {
			return eris.Wrapf(ErrComponentAlreadyRegistered, "component %q", meta.Name())
		}
		return nil
	}

	if err := meta.SetID(m.nextComponentID); err != nil {
		return err
	}
	m.registeredComponents[meta.Name()] = meta
	m.nextComponentID++
	return nil
}

// GetByName resolves a registered component's metadata by name.
func (m *Manager) GetByName(name string) (types.ComponentMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	meta, ok := m.registeredComponents[name]
	if !ok {
		return nil, eris.Wrapf(types.ErrComponentNotRegistered, "component %q", name)
	}
	return meta, nil
}

// All returns every registered component's metadata. Order is not
// deterministic.
func (m *Manager) All() []types.ComponentMetadata {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.ComponentMetadata, 0, len(m.registeredComponents))
	for _, meta := range m.registeredComponents {
		out = append(out, meta)
	}
	return out
}
