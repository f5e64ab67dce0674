package events

// Event type constants for kelindar/event.
const (
	TypePermissionChanged uint32 = iota + 1
	TypeSessionStateChanged
	TypeConfigureFailed
	TypeControlRejected
	TypeControlAdjusted
	TypePhotoCaptured
	TypeCaptureError
	TypeDeviceDiscovery
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// PermissionChangedEvent is published when the camera authorization state resolves.
type PermissionChangedEvent struct {
	State     string `json:"state" example:"granted" doc:"Permission state: undetermined, granted, denied"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PermissionChangedEvent.
func (e PermissionChangedEvent) Type() uint32 { return TypePermissionChanged }

// SessionStateChangedEvent is published on lifecycle transitions of the capture session.
type SessionStateChangedEvent struct {
	State     string `json:"state" example:"configured" doc:"Lifecycle state: unconfigured, configuring, configured, denied"`
	Running   bool   `json:"running" example:"true" doc:"Whether the session is currently running"`
	DeviceID  string `json:"device_id,omitempty" example:"back-wide" doc:"Active device identifier, if configured"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionStateChangedEvent.
func (e SessionStateChangedEvent) Type() uint32 { return TypeSessionStateChanged }

// ConfigureFailedEvent is published when session configuration fails.
// The configuration transaction is still committed; the preview stays inactive.
type ConfigureFailedEvent struct {
	Reason    string `json:"reason" example:"device not found" doc:"Failure reason"`
	Position  string `json:"position" example:"back" doc:"Requested camera position"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ConfigureFailedEvent.
func (e ConfigureFailedEvent) Type() uint32 { return TypeConfigureFailed }

// ControlRejectedEvent is published when the session refuses a control
// during a rebuild pass. Rejection is a warning, not a configuration failure.
type ControlRejectedEvent struct {
	Control   string `json:"control" example:"zoom" doc:"Name of the rejected control"`
	Reason    string `json:"reason" example:"control not addable" doc:"Rejection reason"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ControlRejectedEvent.
func (e ControlRejectedEvent) Type() uint32 { return TypeControlRejected }

// ControlAdjustedEvent is published when a control callback fires with a new value.
type ControlAdjustedEvent struct {
	Control   string  `json:"control" example:"zoom" doc:"Control name"`
	Value     float64 `json:"value" example:"2.5" doc:"New slider value, if a slider"`
	Option    string  `json:"option,omitempty" example:"Vivid" doc:"Selected option, if a picker"`
	Timestamp string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ControlAdjustedEvent.
func (e ControlAdjustedEvent) Type() uint32 { return TypeControlAdjusted }

// PhotoCapturedEvent is published after a successful still capture.
type PhotoCapturedEvent struct {
	DeviceID  string `json:"device_id" example:"back-wide" doc:"Device the photo was taken on"`
	Bytes     int    `json:"bytes" example:"245760" doc:"Size of the captured JPEG"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Capture timestamp"`
}

// Type returns the event type identifier for PhotoCapturedEvent.
func (e PhotoCapturedEvent) Type() uint32 { return TypePhotoCaptured }

// CaptureErrorEvent is published when a still capture fails.
type CaptureErrorEvent struct {
	DeviceID  string `json:"device_id" example:"back-wide" doc:"Device the capture was attempted on"`
	Error     string `json:"error" example:"device busy" doc:"Detailed error description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Error timestamp"`
}

// Type returns the event type identifier for CaptureErrorEvent.
func (e CaptureErrorEvent) Type() uint32 { return TypeCaptureError }

// DeviceDiscoveryEvent represents camera hotplug events.
type DeviceDiscoveryEvent struct {
	DeviceID  string `json:"device_id" example:"back-wide" doc:"Stable device identifier"`
	Name      string `json:"name" example:"Integrated Camera: Wide" doc:"Human-readable device name"`
	Path      string `json:"path" example:"/dev/video0" doc:"Device node path"`
	Action    string `json:"action" example:"added" doc:"Action type: added, removed"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceDiscoveryEvent.
func (e DeviceDiscoveryEvent) Type() uint32 { return TypeDeviceDiscovery }
