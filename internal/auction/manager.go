package auction

import (
	"errors"
	"time"

	"github.com/florelle/veiling-BE/internal/event"
	"github.com/google/uuid"
)

var ErrLotAlreadyRunning = errors.New("lot already has a running coordinator")

// ManagerConfig carries the engine-wide knobs a coordinator run needs.
type ManagerConfig struct {
	TickInterval   time.Duration
	PersistTimeout time.Duration
	// OnTerminal is called once per lot when it reaches a terminal phase,
	// typically to schedule the final persistence write.
	OnTerminal TerminalFunc
}

// Manager owns the registry of running coordinators in this host process.
// One entry is created when a lot starts and discarded after its terminal
// persistence write completes.
type Manager struct {
	hub      event.Sender
	recorder SaleRecorder
	cfg      ManagerConfig
	registry *registry
}

func NewManager(hub event.Sender, recorder SaleRecorder, cfg ManagerConfig) *Manager {
	return &Manager{
		hub:      hub,
		recorder: recorder,
		cfg:      cfg,
		registry: newRegistry(),
	}
}

// StartLot builds the state machine and coordinator for one lot and starts
// the clock. A second start of the same lot fails with ErrLotAlreadyRunning.
func (m *Manager) StartLot(lotID uuid.UUID, params LotParams) (*Coordinator, error) {
	lot := NewLot(lotID, params)
	coordinator := NewCoordinator(lot, m.hub, m.recorder, m.cfg.TickInterval, m.cfg.PersistTimeout, m.cfg.OnTerminal)

	if ok := m.registry.add(lotID, coordinator); !ok {
		return nil, ErrLotAlreadyRunning
	}

	if err := coordinator.Start(); err != nil {
		m.registry.remove(lotID)
		return nil, err
	}
	return coordinator, nil
}

// Get returns the running coordinator for a lot, if any.
func (m *Manager) Get(lotID uuid.UUID) (*Coordinator, bool) {
	return m.registry.get(lotID)
}

// Cancel aborts a running lot. Unknown or already terminal lots are a
// no-op; the found flag reports whether a coordinator existed.
func (m *Manager) Cancel(lotID uuid.UUID) bool {
	coordinator, ok := m.registry.get(lotID)
	if !ok {
		return false
	}
	coordinator.Cancel()
	return true
}

// Remove discards a lot's registry entry. Called after the terminal
// persistence write has completed.
func (m *Manager) Remove(lotID uuid.UUID) {
	m.registry.remove(lotID)
}

// RunningIDs lists the lots currently owned by this process.
func (m *Manager) RunningIDs() []uuid.UUID {
	return m.registry.ids()
}
