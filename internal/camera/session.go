package camera

import "context"

// Input wraps a device for attachment to a capture session.
type Input interface {
	Device() Device
}

// PhotoOutput is the fixed still-capture sink attached to the session.
type PhotoOutput interface {
	// Capture takes one still from the given device and returns JPEG bytes.
	Capture(ctx context.Context, dev Device) ([]byte, error)
}

// CaptureSession is the hardware-facing object coordinating one input device
// and one photo output sink.
//
// Topology changes (input, output, controls) are only legal inside a
// configuration transaction bracketed by BeginConfiguration and
// CommitConfiguration, and must never overlap a running session. Start and
// Stop are blocking hardware calls; the lifecycle controller dispatches them
// to its session worker so callers never stall on them.
type CaptureSession interface {
	BeginConfiguration()
	CommitConfiguration()

	// NewInput wraps a discovered device as a session input. Fails with
	// ErrInputCreationFailed when the device cannot be opened.
	NewInput(dev Device) (Input, error)

	CanAddInput(in Input) bool
	AddInput(in Input)
	RemoveInput(in Input)

	CanAddOutput(out PhotoOutput) bool
	AddOutput(out PhotoOutput)

	// CanAddControl is the session's own capacity/capability check; a
	// refusal downgrades the control to a logged warning.
	CanAddControl(c *Control) bool
	AddControl(c *Control)
	RemoveControl(c *Control)

	// ApplyControl pushes a new control value into the pipeline.
	ApplyControl(name string, value float64, option string) error

	// Start and Stop block until the hardware settles.
	Start() error
	Stop() error
}
