package devices

import (
	"log/slog"

	"github.com/dbsystel-hub/cameractl/internal/camera"
)

// Discoverer adapts the detector to the lifecycle controller's device
// lookup. It implements camera.Discoverer.
type Discoverer struct {
	detector *Detector
	logger   *slog.Logger
}

// NewDiscoverer wraps a detector.
func NewDiscoverer(detector *Detector, logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{detector: detector, logger: logger}
}

// Discover returns the best device for the requested position. Back-facing
// lookups prefer a wide-angle module.
//
// Matching is deliberately looser than position-plus-wide-angle: most hosts
// carry a single webcam whose name encodes neither a facing nor a lens
// type, and a strict predicate would leave the daemon permanently
// unconfigured there. When no device matches the position the first
// available device is used, and wide-angle stays a preference rather than
// a requirement. The returned Device reports the device's classified
// position, not the requested one.
func (d *Discoverer) Discover(position camera.Position) (camera.Device, error) {
	found, err := d.detector.FindDevices()
	if err != nil {
		return camera.Device{}, err
	}
	if len(found) == 0 {
		return camera.Device{}, camera.ErrDeviceNotFound
	}

	var candidate *DeviceInfo
	for i := range found {
		dev := &found[i]
		if dev.Position != position {
			continue
		}
		if candidate == nil {
			candidate = dev
			continue
		}
		if position == camera.PositionBack && dev.WideAngle && !candidate.WideAngle {
			candidate = dev
		}
	}

	if candidate == nil {
		candidate = &found[0]
		d.logger.Info("No device matches position, using first available",
			"position", position, "device", candidate.ID, "device_position", candidate.Position)
	}

	return camera.Device{
		ID:        candidate.ID,
		Name:      candidate.Name,
		Path:      candidate.Path,
		Position:  candidate.Position,
		WideAngle: candidate.WideAngle,
	}, nil
}
