package monitoring

import (
	"context"
	"sync"

	"github.com/clientcheck/followup-platform/pkg/logging"
)

// PermissionClient checks and requests the device call-log permission.
type PermissionClient interface {
	Check(ctx context.Context) (PermissionStatus, error)
	Request(ctx context.Context) (bool, error)
}

// EventSource starts and stops the device call-event stream.
type EventSource interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// SettingsPrompter directs the user to system settings after a permission
// denial. Fire-and-forget; failures are logged, never propagated.
type SettingsPrompter interface {
	OpenPermissionSettings(ctx context.Context) error
}

// Lifecycle drives the monitoring state machine for one installation:
// Stopped -> Starting -> Active -> Stopping -> Stopped. Start and stop hold
// the same lock end to end, so a stop issued while a start is in flight waits
// for the start to resolve instead of leaving the event source orphaned.
type Lifecycle struct {
	mu             sync.Mutex
	phase          LifecyclePhase
	installationID string
	store          *Store
	perms          PermissionClient
	source         EventSource
	prompter       SettingsPrompter
	logger         *logging.Logger
}

func NewLifecycle(installationID string, store *Store, perms PermissionClient, source EventSource, prompter SettingsPrompter, logger *logging.Logger) *Lifecycle {
	if logger == nil {
		logger = logging.Default()
	}
	return &Lifecycle{
		phase:          PhaseStopped,
		installationID: installationID,
		store:          store,
		perms:          perms,
		source:         source,
		prompter:       prompter,
		logger:         logger,
	}
}

// Phase returns the current lifecycle phase.
func (l *Lifecycle) Phase() LifecyclePhase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// StartMonitoring acquires the call-log permission and starts the event
// source. A second call while a start is in flight or monitoring is already
// active is a no-op. Every failure path resolves to Stopped; the machine
// never parks in Starting.
func (l *Lifecycle) StartMonitoring(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.phase != PhaseStopped {
		l.logger.Debug("start monitoring ignored", "phase", l.phase, "installation_id", l.installationID)
		return nil
	}
	l.setPhase(ctx, PhaseStarting)
	l.setPermission(ctx, PermissionChecking)

	granted, err := l.ensurePermission(ctx)
	if err != nil {
		l.logger.Error("permission check failed", "error", err, "installation_id", l.installationID)
		l.setPhase(ctx, PhaseStopped)
		return nil
	}
	if !granted {
		l.setPermission(ctx, PermissionDenied)
		l.setPhase(ctx, PhaseStopped)
		l.promptForSettings(ctx)
		return nil
	}
	l.setPermission(ctx, PermissionGranted)

	if err := l.source.Start(ctx); err != nil {
		l.logger.Error("event source start failed", "error", err, "installation_id", l.installationID)
		l.setPhase(ctx, PhaseStopped)
		return nil
	}

	l.setPhase(ctx, PhaseActive)
	l.logger.Info("call monitoring active", "installation_id", l.installationID)
	return nil
}

// StopMonitoring stops the event source. Calling it on an already stopped
// lifecycle is a no-op and never returns an error.
func (l *Lifecycle) StopMonitoring(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.phase != PhaseActive {
		l.logger.Debug("stop monitoring ignored", "phase", l.phase, "installation_id", l.installationID)
		return nil
	}
	l.setPhase(ctx, PhaseStopping)

	if err := l.source.Stop(ctx); err != nil {
		l.logger.Error("event source stop failed", "error", err, "installation_id", l.installationID)
	}

	l.setPhase(ctx, PhaseStopped)
	l.logger.Info("call monitoring stopped", "installation_id", l.installationID)
	return nil
}

func (l *Lifecycle) ensurePermission(ctx context.Context) (bool, error) {
	status, err := l.perms.Check(ctx)
	if err != nil {
		return false, err
	}
	if status == PermissionGranted {
		return true, nil
	}
	return l.perms.Request(ctx)
}

func (l *Lifecycle) promptForSettings(ctx context.Context) {
	if l.prompter == nil {
		return
	}
	if err := l.prompter.OpenPermissionSettings(ctx); err != nil {
		l.logger.Warn("settings prompt failed", "error", err, "installation_id", l.installationID)
	}
}

func (l *Lifecycle) setPhase(ctx context.Context, phase LifecyclePhase) {
	l.phase = phase
	if l.store == nil {
		return
	}
	if err := l.store.SetLifecyclePhase(ctx, l.installationID, phase); err != nil {
		l.logger.Warn("failed to persist lifecycle phase", "error", err, "phase", phase)
	}
}

func (l *Lifecycle) setPermission(ctx context.Context, status PermissionStatus) {
	if l.store == nil {
		return
	}
	if err := l.store.SetPermissionStatus(ctx, l.installationID, status); err != nil {
		l.logger.Warn("failed to persist permission status", "error", err, "status", status)
	}
}
