package process

import "time"

// State represents the current state of a managed pipeline process.
type State string

// Process states.
const (
	StateIdle     State = "idle"     // Not running
	StateStarting State = "starting" // Being started
	StateRunning  State = "running"  // Active
	StateStopping State = "stopping" // Being stopped
	StateError    State = "error"    // Failed to start/crashed
)

// Info contains information about a managed pipeline process.
type Info struct {
	Name      string
	State     State
	PID       int
	StartedAt time.Time
	LastError error
}
