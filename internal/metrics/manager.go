package metrics

import (
	"log/slog"
	"sync"

	"github.com/dbsystel-hub/cameractl/internal/events"
)

// Manager subscribes to lifecycle events and mirrors them into Prometheus
// metrics.
type Manager struct {
	eventBus     *events.Bus
	unsubscribes []func()
	logger       *slog.Logger

	devicesMux sync.Mutex
	devices    map[string]bool
}

// NewManager creates a metrics manager fed by the event bus.
func NewManager(eventBus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		eventBus: eventBus,
		logger:   logger,
		devices:  make(map[string]bool),
	}
}

// Start subscribes to lifecycle events.
func (m *Manager) Start() {
	m.unsubscribes = append(m.unsubscribes,
		m.eventBus.Subscribe(func(e events.SessionStateChangedEvent) {
			SetLifecycleState(e.State)
			SetSessionRunning(e.Running)
		}),
		m.eventBus.Subscribe(func(e events.PermissionChangedEvent) {
			SetPermissionState(e.State)
		}),
		m.eventBus.Subscribe(func(e events.ConfigureFailedEvent) {
			IncConfigureFailure(e.Reason)
		}),
		m.eventBus.Subscribe(func(e events.PhotoCapturedEvent) {
			IncPhotoCaptured()
		}),
		m.eventBus.Subscribe(func(e events.CaptureErrorEvent) {
			IncCaptureError()
		}),
		m.eventBus.Subscribe(func(e events.ControlAdjustedEvent) {
			IncControlAdjustment(e.Control)
		}),
		m.eventBus.Subscribe(func(e events.ControlRejectedEvent) {
			IncControlRejection(e.Control)
		}),
		m.eventBus.Subscribe(func(e events.DeviceDiscoveryEvent) {
			m.handleDeviceEvent(e)
		}),
	)
	m.logger.Info("Metrics manager started")
}

// Stop unsubscribes from events.
func (m *Manager) Stop() {
	for _, unsub := range m.unsubscribes {
		unsub()
	}
	m.unsubscribes = nil
	m.logger.Info("Metrics manager stopped")
}

func (m *Manager) handleDeviceEvent(e events.DeviceDiscoveryEvent) {
	m.devicesMux.Lock()
	defer m.devicesMux.Unlock()

	switch e.Action {
	case "added":
		m.devices[e.DeviceID] = true
	case "removed":
		delete(m.devices, e.DeviceID)
	}
	SetDevicesPresent(len(m.devices))
}
