package monitoring

import (
	"context"
	"sync"

	"github.com/clientcheck/followup-platform/pkg/logging"
)

// CollaboratorFactory builds the device-scoped lifecycle collaborators for
// one installation.
type CollaboratorFactory func(installationID string) (PermissionClient, EventSource, SettingsPrompter)

// LifecycleManager hands out one Lifecycle per installation, created lazily.
// The per-installation lock inside each Lifecycle serializes start/stop for
// that installation; different installations proceed independently.
type LifecycleManager struct {
	mu         sync.Mutex
	store      *Store
	factory    CollaboratorFactory
	logger     *logging.Logger
	lifecycles map[string]*Lifecycle
}

func NewLifecycleManager(store *Store, factory CollaboratorFactory, logger *logging.Logger) *LifecycleManager {
	if factory == nil {
		panic("monitoring: collaborator factory cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LifecycleManager{
		store:      store,
		factory:    factory,
		logger:     logger,
		lifecycles: make(map[string]*Lifecycle),
	}
}

// StartMonitoring starts monitoring for the installation.
func (m *LifecycleManager) StartMonitoring(ctx context.Context, installationID string) error {
	return m.lifecycle(installationID).StartMonitoring(ctx)
}

// StopMonitoring stops monitoring for the installation.
func (m *LifecycleManager) StopMonitoring(ctx context.Context, installationID string) error {
	return m.lifecycle(installationID).StopMonitoring(ctx)
}

// Phase reports the in-memory lifecycle phase for the installation.
func (m *LifecycleManager) Phase(installationID string) LifecyclePhase {
	return m.lifecycle(installationID).Phase()
}

func (m *LifecycleManager) lifecycle(installationID string) *Lifecycle {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lc, ok := m.lifecycles[installationID]; ok {
		return lc
	}
	perms, source, prompter := m.factory(installationID)
	lc := NewLifecycle(installationID, m.store, perms, source, prompter, m.logger)
	m.lifecycles[installationID] = lc
	return lc
}
