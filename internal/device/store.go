package device

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kestrelhq/homesync/internal/infrastructure/logging"
)

// StatusPublisher puts confirmed state changes on the bus. PublishStatus
// re-publishes transitions to device/{device}/status for dashboard
// subscribers; PublishCommand forwards the raw control command to
// device/{device}/control for the hardware side.
type StatusPublisher interface {
	PublishStatus(device, status string) error
	PublishCommand(device, command string) error
}

// Store wraps a Repository with per-device write serialization, the
// mutation policy gate, and status re-publication.
//
// HTTP handlers and bus handlers both mutate through the Store, so each
// device's status, manual_override and last_updated always reflect the
// latest completed write in arrival order.
type Store struct {
	repo   Repository
	pub    StatusPublisher
	gate   Gate
	logger *logging.Logger

	// onLightingStatus, when set, records a lighting telemetry sample for
	// confirmed lighting control transitions (BRIGHTER/DIMMER/OFF).
	onLightingStatus func(ctx context.Context, status string)

	// locks holds one mutex per fleet device.
	locks map[string]*sync.Mutex
}

// StoreDeps carries the dependencies for NewStore.
type StoreDeps struct {
	Repo      Repository
	Publisher StatusPublisher
	Gate      Gate            // nil means PermissiveGate
	Logger    *logging.Logger // nil means logging.Default()

	// OnLightingStatus is invoked with the lowercased status after a
	// confirmed lighting control transition. Optional.
	OnLightingStatus func(ctx context.Context, status string)
}

// NewStore creates a Store for the fixed fleet.
func NewStore(deps StoreDeps) *Store {
	gate := deps.Gate
	if gate == nil {
		gate = PermissiveGate
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}

	locks := make(map[string]*sync.Mutex, len(All()))
	for _, id := range All() {
		locks[id] = &sync.Mutex{}
	}

	return &Store{
		repo:             deps.Repo,
		pub:              deps.Publisher,
		gate:             gate,
		logger:           logger.With("component", "device_store"),
		onLightingStatus: deps.OnLightingStatus,
		locks:            locks,
	}
}

// Get returns the record for a device, or ErrDeviceNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all fleet records.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	return s.repo.List(ctx)
}

// Control applies a control action from the HTTP surface.
//
// The action vocabulary is fixed: brighter, dimmer, off, on. The mapped
// uppercase status is stored together with manual_override=on, then the
// command is forwarded to the device's control topic and the new status is
// re-published. A publish failure while the broker is unreachable degrades
// to a warning; local state is already committed.
//
// Returns:
//   - string: The stored status (e.g. "BRIGHTER")
//   - error: ErrInvalidAction, ErrDeviceNotFound, or a persistence error
func (s *Store) Control(ctx context.Context, id, action string) (string, error) {
	status, ok := StatusForAction(action)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	unlock := s.lock(id)
	defer unlock()

	if err := s.repo.UpdateStatusAndOverride(ctx, id, status, OverrideOn); err != nil {
		return "", err
	}

	s.publishCommand(id, status)
	s.publishStatus(id, status)
	s.notifyLighting(ctx, id, status)
	return status, nil
}

// SetMode sets a device's operating mode to auto or manual.
func (s *Store) SetMode(ctx context.Context, id, mode string) error {
	if !IsMode(mode) {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	unlock := s.lock(id)
	defer unlock()

	return s.repo.UpdateMode(ctx, id, mode)
}

// SaveState stores a dashboard-supplied status and mode snapshot.
//
// The status is uppercased for storage and the supplied mode value lands in
// manual_override, matching the dashboard's historical save-state contract.
func (s *Store) SaveState(ctx context.Context, id, status, mode string) error {
	unlock := s.lock(id)
	defer unlock()

	normalized := NormalizeStatus(status)
	if err := s.repo.UpdateStatusAndOverride(ctx, id, normalized, mode); err != nil {
		return err
	}

	s.notifyLighting(ctx, id, normalized)
	return nil
}

// SetOverrideAll toggles manual_override for the whole fleet.
func (s *Store) SetOverrideAll(ctx context.Context, override string) error {
	if !IsOverride(override) {
		return fmt.Errorf("%w: %q", ErrInvalidOverride, override)
	}
	return s.repo.SetOverrideAll(ctx, override)
}

// ApplyBusCommand applies a status transition originating from an inbound
// bus command. The mutation passes through the policy gate; a rejected
// write is dropped without error. Confirmed transitions are re-published
// and, for lighting, reported to the telemetry callback.
func (s *Store) ApplyBusCommand(ctx context.Context, id, status string) error {
	unlock := s.lock(id)
	defer unlock()

	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !s.gate(rec, SourceBus) {
		s.logger.Debug("bus command rejected by policy",
			"device", id,
			"status", status,
			"mode", rec.Mode,
			"manual_override", rec.ManualOverride,
		)
		return nil
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	s.publishStatus(id, status)
	return nil
}

// CurrentStatus returns a device's status and manual_override flag.
func (s *Store) CurrentStatus(ctx context.Context, id string) (status, override string, err error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", "", err
	}
	return rec.Status, rec.ManualOverride, nil
}

// lightingTelemetryStatuses are the control transitions that produce a
// lighting telemetry sample alongside the state write.
var lightingTelemetryStatuses = map[string]bool{
	"BRIGHTER": true,
	"DIMMER":   true,
	"OFF":      true,
}

// notifyLighting reports a confirmed lighting control transition to the
// telemetry callback. Bus-sourced "on"/"off" writes do not qualify.
func (s *Store) notifyLighting(ctx context.Context, id, status string) {
	if id != Lighting || s.onLightingStatus == nil {
		return
	}
	if !lightingTelemetryStatuses[status] {
		return
	}
	s.onLightingStatus(ctx, strings.ToLower(status))
}

// publishStatus re-publishes a confirmed transition, degrading to a warning
// when the broker is unreachable.
func (s *Store) publishStatus(id, status string) {
	if s.pub == nil {
		return
	}
	if err := s.pub.PublishStatus(id, status); err != nil {
		s.logger.Warn("status publish failed, state committed locally",
			"device", id,
			"status", status,
			"error", err,
		)
	}
}

// publishCommand forwards a control command to the device's control topic.
// HTTP control actions only; bus-sourced writes already came off the bus.
func (s *Store) publishCommand(id, command string) {
	if s.pub == nil {
		return
	}
	if err := s.pub.PublishCommand(id, command); err != nil {
		s.logger.Warn("command publish failed, state committed locally",
			"device", id,
			"command", command,
			"error", err,
		)
	}
}

// lock acquires the per-device mutex and returns the release func.
// Unknown devices get no lock; the repository reports them as not found.
func (s *Store) lock(id string) func() {
	mu, ok := s.locks[id]
	if !ok {
		return func() {}
	}
	mu.Lock()
	return mu.Unlock
}
