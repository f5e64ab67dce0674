package metrics

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dbsystel-hub/cameractl/internal/events"
)

func newTestManager(t *testing.T) *events.Bus {
	t.Helper()
	bus := events.New()
	m := NewManager(bus, slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.Start()
	t.Cleanup(m.Stop)
	return bus
}

// waitForGauge polls until the metric reaches want or the deadline passes.
// Event delivery is asynchronous.
func waitForGauge(t *testing.T, get func() float64, want float64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if get() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("metric = %v, want %v", get(), want)
}

func TestManager_SessionStateUpdatesGauges(t *testing.T) {
	bus := newTestManager(t)

	bus.Publish(events.SessionStateChangedEvent{State: "configured", Running: true})

	waitForGauge(t, func() float64 {
		return testutil.ToFloat64(lifecycleState.WithLabelValues("configured"))
	}, 1)
	waitForGauge(t, func() float64 {
		return testutil.ToFloat64(sessionRunning)
	}, 1)

	bus.Publish(events.SessionStateChangedEvent{State: "unconfigured", Running: false})

	waitForGauge(t, func() float64 {
		return testutil.ToFloat64(lifecycleState.WithLabelValues("configured"))
	}, 0)
	waitForGauge(t, func() float64 {
		return testutil.ToFloat64(sessionRunning)
	}, 0)
}

func TestManager_PermissionState(t *testing.T) {
	bus := newTestManager(t)

	bus.Publish(events.PermissionChangedEvent{State: "granted"})

	waitForGauge(t, func() float64 {
		return testutil.ToFloat64(permissionState.WithLabelValues("granted"))
	}, 1)
	waitForGauge(t, func() float64 {
		return testutil.ToFloat64(permissionState.WithLabelValues("undetermined"))
	}, 0)
}

func TestManager_Counters(t *testing.T) {
	bus := newTestManager(t)

	photosBefore := testutil.ToFloat64(photosCaptured)
	adjustmentsBefore := testutil.ToFloat64(controlAdjustments.WithLabelValues("zoom"))

	bus.Publish(events.PhotoCapturedEvent{DeviceID: "video0", Bytes: 1024})
	bus.Publish(events.ControlAdjustedEvent{Control: "zoom", Value: 2.0})

	waitForGauge(t, func() float64 {
		return testutil.ToFloat64(photosCaptured)
	}, photosBefore+1)
	waitForGauge(t, func() float64 {
		return testutil.ToFloat64(controlAdjustments.WithLabelValues("zoom"))
	}, adjustmentsBefore+1)
}

func TestManager_DeviceCount(t *testing.T) {
	bus := newTestManager(t)

	bus.Publish(events.DeviceDiscoveryEvent{DeviceID: "video0", Action: "added"})
	bus.Publish(events.DeviceDiscoveryEvent{DeviceID: "video2", Action: "added"})

	waitForGauge(t, func() float64 {
		return testutil.ToFloat64(devicesPresent)
	}, 2)

	bus.Publish(events.DeviceDiscoveryEvent{DeviceID: "video2", Action: "removed"})

	waitForGauge(t, func() float64 {
		return testutil.ToFloat64(devicesPresent)
	}, 1)
}
