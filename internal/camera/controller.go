package camera

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dbsystel-hub/cameractl/internal/events"
)

// LifecycleState represents the controller's configuration state.
type LifecycleState string

// Lifecycle states. Configured sessions additionally move between stopped
// and running via the idempotent start/stop operations.
const (
	StateUnconfigured LifecycleState = "unconfigured"
	StateConfiguring  LifecycleState = "configuring"
	StateConfigured   LifecycleState = "configured"
	StateDenied       LifecycleState = "denied"
)

// Config holds the controller's camera and control-surface settings.
type Config struct {
	Position   Position
	ZoomMin    float64
	ZoomMax    float64
	Presets    []string
	Framerates []string
}

func (c Config) withDefaults() Config {
	if c.Position == "" {
		c.Position = PositionBack
	}
	if c.ZoomMin <= 0 {
		c.ZoomMin = 1.0
	}
	if c.ZoomMax <= c.ZoomMin {
		c.ZoomMax = 8.0
	}
	if len(c.Presets) == 0 {
		c.Presets = []string{"Standard", "Vivid", "Mono"}
	}
	if len(c.Framerates) == 0 {
		c.Framerates = []string{"24", "30", "60"}
	}
	return c
}

// Options configures a Controller.
type Options struct {
	Session    CaptureSession
	Authorizer Authorizer
	Discoverer Discoverer
	Output     PhotoOutput
	EventBus   *events.Bus
	Logger     *slog.Logger
	Config     Config
}

// Controller owns the capture-session lifecycle: it gates all session work
// behind the authorization check, performs exactly-once configuration inside
// a begin/commit transaction, and provides idempotent start/stop that never
// runs hardware calls on the caller's goroutine.
//
// All configuration, control callbacks, and start/stop funnel through one
// serial queue goroutine. That queue is the locking discipline: nothing can
// overlap a begin/commit bracket, and a stop cannot interleave an in-flight
// configuration.
type Controller struct {
	session    CaptureSession
	auth       Authorizer
	discoverer Discoverer
	output     PhotoOutput
	bus        *events.Bus
	logger     *slog.Logger

	queue chan func()
	quit  chan struct{}
	stop  sync.Once
	wg    sync.WaitGroup

	mu             sync.RWMutex
	cfg            Config
	perm           PermissionState
	state          LifecycleState
	running        bool
	configured     bool
	outputAttached bool
	device         Device
	input          Input
	controls       []*Control
}

// NewController creates the lifecycle controller and starts its serial queue.
// The returned controller is the single shared handle passed to the
// presentation layer; its lifetime ends with Close.
func NewController(opts Options) *Controller {
	c := &Controller{
		session:    opts.Session,
		auth:       opts.Authorizer,
		discoverer: opts.Discoverer,
		output:     opts.Output,
		bus:        opts.EventBus,
		logger:     opts.Logger,
		queue:      make(chan func(), 64),
		quit:       make(chan struct{}),
		cfg:        opts.Config.withDefaults(),
		perm:       PermissionUndetermined,
		state:      StateUnconfigured,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.wg.Add(1)
	go c.loop()
	return c
}

// Close stops the serial queue. Pending operations drain; new ones are dropped.
func (c *Controller) Close() {
	c.stop.Do(func() { close(c.quit) })
	c.wg.Wait()
}

func (c *Controller) loop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.quit:
			return
		case fn := <-c.queue:
			fn()
		}
	}
}

// submit enqueues fn on the serial queue without waiting.
func (c *Controller) submit(fn func()) {
	select {
	case c.queue <- fn:
	case <-c.quit:
	}
}

// submitWait enqueues fn and blocks until it ran.
func (c *Controller) submitWait(fn func() error) error {
	done := make(chan error, 1)
	select {
	case c.queue <- func() { done <- fn() }:
	case <-c.quit:
		return fmt.Errorf("controller closed")
	}
	select {
	case err := <-done:
		return err
	case <-c.quit:
		return fmt.Errorf("controller closed")
	}
}

// CheckPermission resolves the authorization state asynchronously. A granted
// state proceeds to configuration; denial is terminal. Re-invocation is
// idempotent: repeated grants re-trigger configuration only when the session
// is not configured yet.
func (c *Controller) CheckPermission(ctx context.Context) {
	go func() {
		state := c.auth.Status(ctx)
		if state == PermissionUndetermined {
			// Interactive request, awaited until the platform resolves it.
			requested, err := c.auth.Request(ctx)
			if err != nil {
				c.logger.Error("Permission request failed", "error", err)
				return
			}
			state = requested
		}
		c.setPermission(state)
		switch state {
		case PermissionGranted:
			c.submit(func() {
				if err := c.doConfigure(); err != nil {
					c.logger.Error("Session configuration failed", "error", err)
				}
			})
		case PermissionDenied:
			c.logger.Warn("Camera permission denied, session stays unconfigured")
			c.setState(StateDenied)
		default:
		}
	}()
}

// Configure runs the configuration transaction synchronously and returns its
// result. Invoked twice in succession it is a no-op the second time.
func (c *Controller) Configure() error {
	return c.submitWait(c.doConfigure)
}

// StartSession starts the session if it is configured and not yet running.
// Level-triggered: redundant calls are no-ops. The blocking hardware start
// runs on the session worker, never on the caller.
func (c *Controller) StartSession() {
	c.submit(func() {
		if !c.isConfigured() || c.IsRunning() {
			return
		}
		if err := c.session.Start(); err != nil {
			c.logger.Error("Failed to start capture session", "error", err)
			return
		}
		c.setRunning(true)
		c.logger.Info("Capture session running", "device_id", c.Device().ID)
	})
}

// StopSession stops the session if it is running. Symmetric no-op behavior.
func (c *Controller) StopSession() {
	c.submit(func() {
		if !c.IsRunning() {
			return
		}
		if err := c.session.Stop(); err != nil {
			c.logger.Error("Failed to stop capture session", "error", err)
			return
		}
		c.setRunning(false)
		c.logger.Info("Capture session stopped")
	})
}

// RebuildControls replaces the registered control set wholesale for the
// given device. Controls the session rejects are skipped with a warning.
func (c *Controller) RebuildControls(dev Device) {
	_ = c.submitWait(func() error {
		c.session.BeginConfiguration()
		defer c.session.CommitConfiguration()
		c.rebuildControls(dev)
		return nil
	})
}

// SetControlRanges updates the control-surface settings and rebuilds the
// controls against the active device. Used by config live-reload.
func (c *Controller) SetControlRanges(cfg Config) {
	_ = c.submitWait(func() error {
		c.mu.Lock()
		pos := c.cfg.Position
		c.cfg = cfg.withDefaults()
		c.cfg.Position = pos // position changes go through SetPosition
		dev := c.device
		configured := c.configured
		c.mu.Unlock()
		if !configured {
			return nil
		}
		c.session.BeginConfiguration()
		defer c.session.CommitConfiguration()
		c.rebuildControls(dev)
		return nil
	})
}

// SetPosition switches the camera position. A position change on a
// configured session forces re-entry into the configuration phase, tearing
// down and rebuilding the input and controls inside one transaction. A
// running session is stopped for the duration and restarted afterwards.
func (c *Controller) SetPosition(pos Position) error {
	if !pos.Valid() {
		return fmt.Errorf("invalid camera position %q", pos)
	}
	return c.submitWait(func() error {
		return c.doSetPosition(pos)
	})
}

// CapturePhoto triggers one still capture through the photo output sink.
func (c *Controller) CapturePhoto(ctx context.Context) ([]byte, error) {
	c.mu.RLock()
	configured := c.configured
	dev := c.device
	out := c.output
	c.mu.RUnlock()

	if !configured || out == nil {
		return nil, ErrNotConfigured
	}

	data, err := out.Capture(ctx, dev)
	if err != nil {
		c.logger.Error("Photo capture failed", "device_id", dev.ID, "error", err)
		c.publish(events.CaptureErrorEvent{
			DeviceID:  dev.ID,
			Error:     err.Error(),
			Timestamp: timestamp(),
		})
		return nil, err
	}

	c.logger.Info("Photo captured", "device_id", dev.ID, "bytes", len(data))
	c.publish(events.PhotoCapturedEvent{
		DeviceID:  dev.ID,
		Bytes:     len(data),
		Timestamp: timestamp(),
	})
	return data, nil
}

// AdjustControl sets a slider value. The control callback fires on the
// serial queue.
func (c *Controller) AdjustControl(name string, value float64) error {
	return c.submitWait(func() error {
		ctl := c.findControl(name)
		if ctl == nil {
			return fmt.Errorf("unknown control %q", name)
		}
		if ctl.Kind != ControlSlider {
			return fmt.Errorf("control %q is not a slider", name)
		}
		ctl.setValue(value)
		return nil
	})
}

// SelectControl sets a picker index. The control callback fires on the
// serial queue.
func (c *Controller) SelectControl(name string, index int) error {
	return c.submitWait(func() error {
		ctl := c.findControl(name)
		if ctl == nil {
			return fmt.Errorf("unknown control %q", name)
		}
		if ctl.Kind != ControlPicker {
			return fmt.Errorf("control %q is not a picker", name)
		}
		return ctl.setIndex(index)
	})
}

// doConfigure performs the exactly-once configuration transaction:
// discovery, input wrap, capacity checks, topology additions, control
// registration, commit. The transaction is committed even on failure so the
// session is left consistent, and the error is reported, not fatal.
func (c *Controller) doConfigure() (err error) {
	if c.State() == StateDenied {
		return ErrPermissionDenied
	}
	if c.isConfigured() {
		return nil
	}

	c.setState(StateConfiguring)
	c.session.BeginConfiguration()
	var addedInput Input
	defer func() {
		// A failed pass must commit without partial topology: the input
		// added this pass is taken out again before the commit, so a
		// retried configure adds everything exactly once.
		if err != nil && addedInput != nil {
			c.session.RemoveInput(addedInput)
		}
		c.session.CommitConfiguration()
		if err != nil {
			c.setState(StateUnconfigured)
			c.publish(events.ConfigureFailedEvent{
				Reason:    err.Error(),
				Position:  string(c.position()),
				Timestamp: timestamp(),
			})
			return
		}
		c.mu.Lock()
		c.configured = true
		c.mu.Unlock()
		c.setState(StateConfigured)
	}()

	dev, in, aerr := c.attachInput(c.position())
	if aerr != nil {
		err = aerr
		return err
	}
	addedInput = in

	// The photo output is fixed for the controller's lifetime and survives
	// failed passes; it is added on the first pass that reaches this point.
	if !c.isOutputAttached() {
		if !c.session.CanAddOutput(c.output) {
			err = ErrOutputNotAddable
			return err
		}
		c.session.AddOutput(c.output)
		c.mu.Lock()
		c.outputAttached = true
		c.mu.Unlock()
	}

	c.rebuildControls(dev)

	c.mu.Lock()
	c.device = dev
	c.input = in
	c.mu.Unlock()

	c.logger.Info("Capture session configured",
		"device_id", dev.ID, "device", dev.Name, "position", dev.Position)
	return nil
}

// attachInput discovers the device for a position, wraps it as an input,
// capacity-checks it and adds it. Must run inside a configuration transaction.
func (c *Controller) attachInput(pos Position) (Device, Input, error) {
	dev, err := c.discoverer.Discover(pos)
	if err != nil {
		return Device{}, nil, fmt.Errorf("%w: position %s", ErrDeviceNotFound, pos)
	}

	in, err := c.session.NewInput(dev)
	if err != nil {
		return Device{}, nil, fmt.Errorf("%w: %v", ErrInputCreationFailed, err)
	}

	if !c.session.CanAddInput(in) {
		return Device{}, nil, ErrInputNotAddable
	}
	c.session.AddInput(in)
	return dev, in, nil
}

// doSetPosition re-enters the configuration phase for a position change.
// A failed switch restores the previous input and control set inside the
// same transaction, so the session stays configured with the old device.
func (c *Controller) doSetPosition(pos Position) (err error) {
	c.mu.Lock()
	prevPos := c.cfg.Position
	same := prevPos == pos
	c.cfg.Position = pos
	configured := c.configured
	oldInput := c.input
	oldDevice := c.device
	c.mu.Unlock()

	if same || !configured {
		// The new position is picked up by the next configure pass.
		return nil
	}

	wasRunning := c.IsRunning()
	if wasRunning {
		// Configuration must never overlap a running session.
		if err := c.session.Stop(); err != nil {
			return fmt.Errorf("stop for reconfiguration: %w", err)
		}
		c.setRunning(false)
	}

	c.setState(StateConfiguring)
	c.session.BeginConfiguration()
	var removedOld bool
	defer func() {
		restored := false
		if err != nil && removedOld && oldInput != nil && c.session.CanAddInput(oldInput) {
			c.session.AddInput(oldInput)
			c.rebuildControls(oldDevice)
			c.mu.Lock()
			c.input = oldInput
			c.device = oldDevice
			c.cfg.Position = prevPos
			c.mu.Unlock()
			restored = true
		}
		c.session.CommitConfiguration()
		if err != nil {
			c.publish(events.ConfigureFailedEvent{
				Reason:    err.Error(),
				Position:  string(pos),
				Timestamp: timestamp(),
			})
			if !restored {
				c.mu.Lock()
				c.configured = false
				c.input = nil
				c.device = Device{}
				c.mu.Unlock()
				c.setState(StateUnconfigured)
				return
			}
		}
		c.setState(StateConfigured)
		if wasRunning {
			if serr := c.session.Start(); serr != nil {
				c.logger.Error("Failed to restart session after position change", "error", serr)
				return
			}
			c.setRunning(true)
		}
	}()

	c.removeControls()
	if oldInput != nil {
		c.session.RemoveInput(oldInput)
		removedOld = true
		c.mu.Lock()
		c.input = nil
		c.mu.Unlock()
	}

	dev, in, aerr := c.attachInput(pos)
	if aerr != nil {
		err = aerr
		return err
	}

	c.rebuildControls(dev)

	c.mu.Lock()
	c.device = dev
	c.input = in
	c.mu.Unlock()

	c.logger.Info("Camera position switched", "position", pos, "device_id", dev.ID)
	return nil
}

// removeControls unregisters every currently-registered control.
func (c *Controller) removeControls() {
	c.mu.Lock()
	old := c.controls
	c.controls = nil
	c.mu.Unlock()
	for _, ctl := range old {
		c.session.RemoveControl(ctl)
	}
}

// rebuildControls replaces the control set: removal first, then a fresh
// build, so the registered set always matches the latest pass. A control the
// session rejects is skipped with a warning, never a failure.
func (c *Controller) rebuildControls(dev Device) {
	c.removeControls()

	var kept []*Control
	for _, ctl := range c.buildControls(dev) {
		if !c.session.CanAddControl(ctl) {
			c.logger.Warn("Session rejected control", "control", ctl.Name, "device_id", dev.ID)
			c.publish(events.ControlRejectedEvent{
				Control:   ctl.Name,
				Reason:    ErrControlNotAddable.Error(),
				Timestamp: timestamp(),
			})
			continue
		}
		c.session.AddControl(ctl)
		kept = append(kept, ctl)
	}

	c.mu.Lock()
	c.controls = kept
	c.mu.Unlock()
}

// buildControls constructs the interactive control set for a device: a zoom
// slider, a lighting slider, and two index pickers.
func (c *Controller) buildControls(dev Device) []*Control {
	c.mu.RLock()
	cfg := c.cfg
	c.mu.RUnlock()

	zoom := &Control{
		Name: "zoom",
		Kind: ControlSlider,
		Min:  cfg.ZoomMin,
		Max:  cfg.ZoomMax,
		Step: 0.1,
	}
	zoom.value = cfg.ZoomMin
	zoom.OnChange = func(v float64) { c.controlChanged(zoom, v, "") }

	lighting := &Control{
		Name: "lighting",
		Kind: ControlSlider,
		Min:  -1.0,
		Max:  1.0,
		Step: 0.05,
	}
	lighting.OnChange = func(v float64) { c.controlChanged(lighting, v, "") }

	preset := &Control{
		Name:    "preset",
		Kind:    ControlPicker,
		Options: cfg.Presets,
	}
	preset.OnSelect = func(i int) { c.controlChanged(preset, float64(i), preset.Options[i]) }

	framerate := &Control{
		Name:    "framerate",
		Kind:    ControlPicker,
		Options: cfg.Framerates,
	}
	framerate.OnSelect = func(i int) { c.controlChanged(framerate, float64(i), framerate.Options[i]) }

	_ = dev // control set is identical across devices for now
	return []*Control{zoom, lighting, preset, framerate}
}

// controlChanged runs on the serial queue after a control callback fired.
func (c *Controller) controlChanged(ctl *Control, value float64, option string) {
	if err := c.session.ApplyControl(ctl.Name, value, option); err != nil {
		c.logger.Warn("Failed to apply control value", "control", ctl.Name, "error", err)
	}
	c.publish(events.ControlAdjustedEvent{
		Control:   ctl.Name,
		Value:     value,
		Option:    option,
		Timestamp: timestamp(),
	})
}

func (c *Controller) findControl(name string) *Control {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ctl := range c.controls {
		if ctl.Name == name {
			return ctl
		}
	}
	return nil
}

// Session returns the session handle for constructing a preview surface.
// Read-only by convention: all mutation goes through the controller.
func (c *Controller) Session() CaptureSession { return c.session }

// Permission returns the current authorization state.
func (c *Controller) Permission() PermissionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.perm
}

// State returns the current lifecycle state.
func (c *Controller) State() LifecycleState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsRunning reports whether the session is running.
func (c *Controller) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Device returns the active device (zero value when unconfigured).
func (c *Controller) Device() Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.device
}

// Controls returns read-only snapshots of the registered controls.
func (c *Controller) Controls() []ControlState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	states := make([]ControlState, len(c.controls))
	for i, ctl := range c.controls {
		states[i] = ctl.state()
	}
	return states
}

func (c *Controller) isConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.configured
}

func (c *Controller) isOutputAttached() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.outputAttached
}

func (c *Controller) position() Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.Position
}

func (c *Controller) setPermission(p PermissionState) {
	c.mu.Lock()
	changed := c.perm != p
	c.perm = p
	c.mu.Unlock()
	if changed {
		c.publish(events.PermissionChangedEvent{
			State:     string(p),
			Timestamp: timestamp(),
		})
	}
}

func (c *Controller) setState(s LifecycleState) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	running := c.running
	deviceID := c.device.ID
	c.mu.Unlock()
	if changed {
		c.publish(events.SessionStateChangedEvent{
			State:     string(s),
			Running:   running,
			DeviceID:  deviceID,
			Timestamp: timestamp(),
		})
	}
}

func (c *Controller) setRunning(running bool) {
	c.mu.Lock()
	c.running = running
	state := c.state
	deviceID := c.device.ID
	c.mu.Unlock()
	c.publish(events.SessionStateChangedEvent{
		State:     string(state),
		Running:   running,
		DeviceID:  deviceID,
		Timestamp: timestamp(),
	})
}

func (c *Controller) publish(ev events.Event) {
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
