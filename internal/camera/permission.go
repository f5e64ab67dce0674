package camera

import (
	"context"
	"errors"
	"io/fs"
	"os"
)

// PermissionState represents the camera authorization state. It is resolved
// once per controller lifetime: monotonic after leaving Undetermined, with
// Denied terminal.
type PermissionState string

// Permission states.
const (
	PermissionUndetermined PermissionState = "undetermined"
	PermissionGranted      PermissionState = "granted"
	PermissionDenied       PermissionState = "denied"
)

// Authorizer abstracts the platform authorization subsystem.
type Authorizer interface {
	// Status returns the current authorization state without prompting.
	Status(ctx context.Context) PermissionState

	// Request performs the interactive authorization request and blocks
	// until the platform resolves it. Called only from Undetermined.
	Request(ctx context.Context) (PermissionState, error)
}

// NodeAuthorizer maps authorization to device-node access: a readable node is
// Granted, a permission error is Denied, and a node that has not been probed
// resolves on Request. This is the headless-host stand-in for an interactive
// consent dialog.
type NodeAuthorizer struct {
	// Path is the device node checked for access. Empty means no camera
	// hardware is claimed yet; Status stays Undetermined and Request
	// probes the default node.
	Path string
}

const defaultVideoNode = "/dev/video0"

// Status probes the device node once without blocking.
func (a *NodeAuthorizer) Status(_ context.Context) PermissionState {
	if a.Path == "" {
		return PermissionUndetermined
	}
	return probeNode(a.Path)
}

// Request resolves an undetermined state by probing the node.
func (a *NodeAuthorizer) Request(_ context.Context) (PermissionState, error) {
	path := a.Path
	if path == "" {
		path = defaultVideoNode
	}
	return probeNode(path), nil
}

func probeNode(path string) PermissionState {
	f, err := os.Open(path)
	if err == nil {
		f.Close()
		return PermissionGranted
	}
	if errors.Is(err, fs.ErrPermission) {
		return PermissionDenied
	}
	// Missing node is not a denial; configuration will report
	// ErrDeviceNotFound on its own.
	return PermissionGranted
}
