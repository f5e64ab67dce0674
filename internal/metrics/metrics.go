// Package metrics provides Prometheus metrics for the capture lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sessionRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cameractl",
		Subsystem: "session",
		Name:      "running",
		Help:      "Whether the capture session is currently running",
	})

	lifecycleState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "cameractl",
		Subsystem: "session",
		Name:      "lifecycle_state",
		Help:      "Current lifecycle state (1 for the active state, 0 otherwise)",
	}, []string{"state"})

	permissionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "cameractl",
		Name:      "permission_state",
		Help:      "Current camera permission state (1 for the active state, 0 otherwise)",
	}, []string{"state"})

	configureFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cameractl",
		Subsystem: "session",
		Name:      "configure_failures_total",
		Help:      "Total failed configuration attempts",
	}, []string{"reason"})

	photosCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cameractl",
		Name:      "photos_captured_total",
		Help:      "Total photos captured",
	})

	captureErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cameractl",
		Name:      "capture_errors_total",
		Help:      "Total failed photo captures",
	})

	controlAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cameractl",
		Name:      "control_adjustments_total",
		Help:      "Total control adjustments applied to the pipeline",
	}, []string{"control"})

	controlRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cameractl",
		Name:      "control_rejections_total",
		Help:      "Total controls refused by the capture session",
	}, []string{"control"})

	devicesPresent = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cameractl",
		Name:      "devices_present",
		Help:      "Number of camera devices currently present",
	})
)

// Known lifecycle and permission states, pre-registered so scrapes always
// show the full set.
var (
	lifecycleStates  = []string{"unconfigured", "configuring", "configured", "denied"}
	permissionStates = []string{"undetermined", "granted", "denied"}
)

func init() {
	for _, s := range lifecycleStates {
		lifecycleState.WithLabelValues(s).Set(0)
	}
	for _, s := range permissionStates {
		permissionState.WithLabelValues(s).Set(0)
	}
}

// SetSessionRunning records whether the session is live.
func SetSessionRunning(running bool) {
	if running {
		sessionRunning.Set(1)
	} else {
		sessionRunning.Set(0)
	}
}

// SetLifecycleState marks the given lifecycle state as active.
func SetLifecycleState(state string) {
	for _, s := range lifecycleStates {
		v := 0.0
		if s == state {
			v = 1
		}
		lifecycleState.WithLabelValues(s).Set(v)
	}
}

// SetPermissionState marks the given permission state as active.
func SetPermissionState(state string) {
	for _, s := range permissionStates {
		v := 0.0
		if s == state {
			v = 1
		}
		permissionState.WithLabelValues(s).Set(v)
	}
}

// IncConfigureFailure counts a failed configuration attempt.
func IncConfigureFailure(reason string) {
	configureFailures.WithLabelValues(reason).Inc()
}

// IncPhotoCaptured counts a successful still capture.
func IncPhotoCaptured() {
	photosCaptured.Inc()
}

// IncCaptureError counts a failed still capture.
func IncCaptureError() {
	captureErrors.Inc()
}

// IncControlAdjustment counts an applied control change.
func IncControlAdjustment(control string) {
	controlAdjustments.WithLabelValues(control).Inc()
}

// IncControlRejection counts a control the session refused.
func IncControlRejection(control string) {
	controlRejections.WithLabelValues(control).Inc()
}

// SetDevicesPresent records the current device count.
func SetDevicesPresent(n int) {
	devicesPresent.Set(float64(n))
}

// Handler returns the Prometheus scrape handler. It serves all
// promauto-registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
