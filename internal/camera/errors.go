package camera

import "errors"

// Configuration and capture errors. All are recoverable: the controller logs
// them and settles in the nearest well-defined prior state instead of
// aborting the process. A missing camera degrades the feature, it does not
// crash the host.
var (
	// ErrPermissionDenied is returned when camera authorization was denied.
	// Denial is terminal for a controller instance.
	ErrPermissionDenied = errors.New("camera permission denied")

	// ErrDeviceNotFound is returned when discovery finds no wide-angle
	// device at the requested position.
	ErrDeviceNotFound = errors.New("camera device not found")

	// ErrInputCreationFailed is returned when a discovered device cannot
	// be wrapped as a session input.
	ErrInputCreationFailed = errors.New("input creation failed")

	// ErrInputNotAddable is returned when the session refuses the input
	// during the capacity check.
	ErrInputNotAddable = errors.New("input not addable to session")

	// ErrOutputNotAddable is returned when the session refuses the photo
	// output sink during the capacity check.
	ErrOutputNotAddable = errors.New("photo output not addable to session")

	// ErrControlNotAddable marks a control the session rejected during a
	// rebuild pass. Rejection is reported per control, never fatal.
	ErrControlNotAddable = errors.New("control not addable to session")

	// ErrNotConfigured is returned by operations that need a configured
	// session, such as photo capture.
	ErrNotConfigured = errors.New("session not configured")
)
