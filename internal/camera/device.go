package camera

// Position selects which physical camera discovery must resolve.
type Position string

// Camera positions.
const (
	PositionFront Position = "front"
	PositionBack  Position = "back"
)

// Valid reports whether p is a known position.
func (p Position) Valid() bool {
	return p == PositionFront || p == PositionBack
}

// Device describes a physical camera resolved by discovery.
type Device struct {
	ID        string   // stable identifier
	Name      string   // human-readable name
	Path      string   // platform device node, e.g. /dev/video0
	Position  Position // which side of the hardware the lens faces
	WideAngle bool     // wide-angle capability, required by configuration
}

// Discoverer resolves a physical device for a requested position.
// Implementations live in internal/devices; tests use statics.
type Discoverer interface {
	// Discover returns the device serving the given position, preferring
	// wide-angle modules, or ErrDeviceNotFound when no device is usable.
	// An implementation may apply a looser match than the strict
	// position-plus-wide-angle predicate when the host's hardware cannot
	// satisfy it; the returned Device.Position always reports the
	// device's actual facing, never the requested one.
	Discover(position Position) (Device, error)
}
