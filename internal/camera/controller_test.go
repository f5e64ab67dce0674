package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dbsystel-hub/cameractl/internal/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeInput wraps a device for the fake session.
type fakeInput struct {
	dev Device
}

func (f *fakeInput) Device() Device { return f.dev }

// fakeSession records every topology operation for assertions.
type fakeSession struct {
	mu sync.Mutex

	configuring bool
	begins      int
	commits     int

	inputs   []Input
	outputs  []PhotoOutput
	controls []*Control

	running    bool
	startCalls int
	stopCalls  int

	newInputErr    error
	refuseInput    bool
	refuseOutput   bool
	rejectControls map[string]bool

	applied []string
}

func (s *fakeSession) BeginConfiguration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configuring = true
	s.begins++
}

func (s *fakeSession) CommitConfiguration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configuring = false
	s.commits++
}

func (s *fakeSession) NewInput(dev Device) (Input, error) {
	if s.newInputErr != nil {
		return nil, s.newInputErr
	}
	return &fakeInput{dev: dev}, nil
}

func (s *fakeSession) CanAddInput(_ Input) bool { return !s.refuseInput }

func (s *fakeSession) AddInput(in Input) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, in)
}

func (s *fakeSession) RemoveInput(in Input) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.inputs {
		if existing == in {
			s.inputs = append(s.inputs[:i], s.inputs[i+1:]...)
			return
		}
	}
}

func (s *fakeSession) CanAddOutput(_ PhotoOutput) bool { return !s.refuseOutput }

func (s *fakeSession) AddOutput(out PhotoOutput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs = append(s.outputs, out)
}

func (s *fakeSession) CanAddControl(c *Control) bool {
	return !s.rejectControls[c.Name]
}

func (s *fakeSession) AddControl(c *Control) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls = append(s.controls, c)
}

func (s *fakeSession) RemoveControl(c *Control) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.controls {
		if existing == c {
			s.controls = append(s.controls[:i], s.controls[i+1:]...)
			return
		}
	}
}

func (s *fakeSession) ApplyControl(name string, value float64, option string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if option != "" {
		s.applied = append(s.applied, fmt.Sprintf("%s=%s", name, option))
	} else {
		s.applied = append(s.applied, fmt.Sprintf("%s=%.2f", name, value))
	}
	return nil
}

func (s *fakeSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.startCalls++
	return nil
}

func (s *fakeSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.stopCalls++
	return nil
}

func (s *fakeSession) counts() (inputs, outputs, controls int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inputs), len(s.outputs), len(s.controls)
}

func (s *fakeSession) transactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begins
}

func (s *fakeSession) controlNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.controls))
	for i, c := range s.controls {
		names[i] = c.Name
	}
	return names
}

// fakeAuthorizer resolves permission from canned states.
type fakeAuthorizer struct {
	status        PermissionState
	requestResult PermissionState
	requestErr    error
}

func (a *fakeAuthorizer) Status(_ context.Context) PermissionState { return a.status }

func (a *fakeAuthorizer) Request(_ context.Context) (PermissionState, error) {
	return a.requestResult, a.requestErr
}

// staticDiscoverer serves devices from a fixed position map.
type staticDiscoverer struct {
	devices map[Position]Device
}

func (d *staticDiscoverer) Discover(pos Position) (Device, error) {
	dev, ok := d.devices[pos]
	if !ok {
		return Device{}, ErrDeviceNotFound
	}
	return dev, nil
}

// fakeOutput returns fixed JPEG bytes.
type fakeOutput struct {
	data []byte
	err  error
}

func (o *fakeOutput) Capture(_ context.Context, _ Device) ([]byte, error) {
	return o.data, o.err
}

func backCamera() Device {
	return Device{ID: "back-wide", Name: "Back Wide Camera", Path: "/dev/video0", Position: PositionBack, WideAngle: true}
}

func frontCamera() Device {
	return Device{ID: "front-wide", Name: "Front Wide Camera", Path: "/dev/video1", Position: PositionFront, WideAngle: true}
}

type fixture struct {
	session    *fakeSession
	controller *Controller
	bus        *events.Bus
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	session := &fakeSession{}
	if opts.Session != nil {
		session = opts.Session.(*fakeSession)
	}
	if opts.Authorizer == nil {
		opts.Authorizer = &fakeAuthorizer{status: PermissionGranted}
	}
	if opts.Discoverer == nil {
		opts.Discoverer = &staticDiscoverer{devices: map[Position]Device{PositionBack: backCamera()}}
	}
	if opts.Output == nil {
		opts.Output = &fakeOutput{data: []byte("jpeg")}
	}
	if opts.EventBus == nil {
		opts.EventBus = events.New()
	}
	opts.Session = session
	opts.Logger = testLogger()

	c := NewController(opts)
	t.Cleanup(c.Close)
	return &fixture{session: session, controller: c, bus: opts.EventBus}
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func TestConfigure_Success(t *testing.T) {
	f := newFixture(t, Options{})

	if err := f.controller.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	if got := f.controller.State(); got != StateConfigured {
		t.Errorf("expected state %s, got %s", StateConfigured, got)
	}

	inputs, outputs, controls := f.session.counts()
	if inputs != 1 || outputs != 1 {
		t.Errorf("expected 1 input and 1 output, got %d/%d", inputs, outputs)
	}
	if controls != 4 {
		t.Errorf("expected 4 registered controls, got %d", controls)
	}
	if f.session.begins != 1 || f.session.commits != 1 {
		t.Errorf("expected one begin/commit bracket, got %d/%d", f.session.begins, f.session.commits)
	}
	if dev := f.controller.Device(); dev.ID != "back-wide" {
		t.Errorf("expected device back-wide, got %q", dev.ID)
	}
}

func TestConfigure_DeviceNotFound(t *testing.T) {
	f := newFixture(t, Options{
		Discoverer: &staticDiscoverer{devices: map[Position]Device{}},
	})

	err := f.controller.Configure()
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}

	inputs, outputs, controls := f.session.counts()
	if inputs != 0 || outputs != 0 || controls != 0 {
		t.Errorf("expected empty session after failure, got %d/%d/%d", inputs, outputs, controls)
	}
	// The transaction is committed even on failure.
	if f.session.commits != 1 {
		t.Errorf("expected commit on failure, got %d commits", f.session.commits)
	}
	if got := f.controller.State(); got != StateUnconfigured {
		t.Errorf("expected state %s after failure, got %s", StateUnconfigured, got)
	}
}

func TestConfigure_InputCreationFailed(t *testing.T) {
	session := &fakeSession{newInputErr: errors.New("device busy")}
	f := newFixture(t, Options{Session: session})

	err := f.controller.Configure()
	if !errors.Is(err, ErrInputCreationFailed) {
		t.Fatalf("expected ErrInputCreationFailed, got %v", err)
	}
}

func TestConfigure_CapacityChecks(t *testing.T) {
	tests := []struct {
		name    string
		session *fakeSession
		want    error
	}{
		{"input refused", &fakeSession{refuseInput: true}, ErrInputNotAddable},
		{"output refused", &fakeSession{refuseOutput: true}, ErrOutputNotAddable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{Session: tt.session})
			if err := f.controller.Configure(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestConfigure_ExactlyOnce(t *testing.T) {
	f := newFixture(t, Options{})

	if err := f.controller.Configure(); err != nil {
		t.Fatalf("first Configure failed: %v", err)
	}
	if err := f.controller.Configure(); err != nil {
		t.Fatalf("second Configure failed: %v", err)
	}

	inputs, outputs, _ := f.session.counts()
	if inputs != 1 || outputs != 1 {
		t.Errorf("double configure must not double-add: got %d inputs, %d outputs", inputs, outputs)
	}
	if f.session.begins != 1 {
		t.Errorf("expected a single configuration transaction, got %d", f.session.begins)
	}
}

func TestConfigure_FailedPassThenRetry(t *testing.T) {
	session := &fakeSession{refuseOutput: true}
	f := newFixture(t, Options{Session: session})

	if err := f.controller.Configure(); !errors.Is(err, ErrOutputNotAddable) {
		t.Fatalf("expected ErrOutputNotAddable, got %v", err)
	}
	inputs, outputs, controls := session.counts()
	if inputs != 0 || outputs != 0 || controls != 0 {
		t.Fatalf("failed pass must leave no partial topology, got %d/%d/%d", inputs, outputs, controls)
	}

	session.refuseOutput = false
	if err := f.controller.Configure(); err != nil {
		t.Fatalf("retry after failed pass: %v", err)
	}
	inputs, outputs, controls = session.counts()
	if inputs != 1 || outputs != 1 {
		t.Errorf("retry must add everything exactly once, got %d inputs, %d outputs", inputs, outputs)
	}
	if controls != 4 {
		t.Errorf("expected full control set after retry, got %d", controls)
	}
	if got := f.controller.State(); got != StateConfigured {
		t.Errorf("expected state %s after retry, got %s", StateConfigured, got)
	}
}

func TestStartStop_Idempotent(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.controller.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	f.controller.StartSession()
	f.controller.StartSession()
	waitFor(t, "session running", f.controller.IsRunning)

	if f.session.startCalls != 1 {
		t.Errorf("redundant start must be a no-op, got %d hardware starts", f.session.startCalls)
	}

	f.controller.StopSession()
	f.controller.StopSession()
	waitFor(t, "session stopped", func() bool { return !f.controller.IsRunning() })

	if f.session.stopCalls != 1 {
		t.Errorf("redundant stop must be a no-op, got %d hardware stops", f.session.stopCalls)
	}
}

func TestStartSession_UnconfiguredNoOp(t *testing.T) {
	f := newFixture(t, Options{})

	f.controller.StartSession()
	// Drain the queue with a synchronous call, then check nothing started.
	_ = f.controller.Configure()
	if f.session.startCalls != 0 {
		t.Error("start before configuration must not touch hardware")
	}
}

func TestPermissionDenied_NeverConfigures(t *testing.T) {
	f := newFixture(t, Options{
		Authorizer: &fakeAuthorizer{status: PermissionDenied},
	})

	f.controller.CheckPermission(context.Background())
	waitFor(t, "denied state", func() bool { return f.controller.State() == StateDenied })

	if f.session.begins != 0 {
		t.Error("denied permission must never open a configuration transaction")
	}

	// startSession after denial stays a no-op.
	f.controller.StartSession()
	err := f.controller.Configure()
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}
	if f.controller.IsRunning() {
		t.Error("session must never run after denial")
	}
}

func TestCheckPermission_RequestGrantConfigures(t *testing.T) {
	f := newFixture(t, Options{
		Authorizer: &fakeAuthorizer{
			status:        PermissionUndetermined,
			requestResult: PermissionGranted,
		},
	})

	f.controller.CheckPermission(context.Background())
	waitFor(t, "configured state", func() bool { return f.controller.State() == StateConfigured })

	if got := f.controller.Permission(); got != PermissionGranted {
		t.Errorf("expected granted permission, got %s", got)
	}
}

func TestCheckPermission_Idempotent(t *testing.T) {
	f := newFixture(t, Options{})

	f.controller.CheckPermission(context.Background())
	f.controller.CheckPermission(context.Background())
	waitFor(t, "configured state", func() bool { return f.controller.State() == StateConfigured })

	// Repeated grants re-trigger configuration only if not already configured.
	waitFor(t, "queue drained", func() bool { return f.session.transactions() == 1 })
	inputs, _, _ := f.session.counts()
	if inputs != 1 {
		t.Errorf("repeated permission checks must not re-add inputs, got %d", inputs)
	}
}

func TestRebuildControls_NoLeakage(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.controller.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	f.controller.RebuildControls(f.controller.Device())
	f.controller.RebuildControls(f.controller.Device())

	_, _, controls := f.session.counts()
	if controls != 4 {
		t.Errorf("control set must match the latest pass only, got %d registered", controls)
	}
}

func TestRebuildControls_RejectionIsWarning(t *testing.T) {
	session := &fakeSession{rejectControls: map[string]bool{"zoom": true}}
	bus := events.New()
	rejected := make(chan events.ControlRejectedEvent, 1)
	unsub := bus.Subscribe(func(e events.ControlRejectedEvent) { rejected <- e })
	defer unsub()

	f := newFixture(t, Options{Session: session, EventBus: bus})

	if err := f.controller.Configure(); err != nil {
		t.Fatalf("rejected control must not fail configuration: %v", err)
	}

	names := session.controlNames()
	if len(names) != 3 {
		t.Fatalf("expected 3 controls after rejection, got %v", names)
	}
	for _, name := range names {
		if name == "zoom" {
			t.Error("rejected control must not be registered")
		}
	}

	select {
	case ev := <-rejected:
		if ev.Control != "zoom" {
			t.Errorf("expected rejection event for zoom, got %s", ev.Control)
		}
	case <-time.After(time.Second):
		t.Fatal("expected ControlRejectedEvent")
	}
}

func TestSetPosition_Reconfigures(t *testing.T) {
	discoverer := &staticDiscoverer{devices: map[Position]Device{
		PositionBack:  backCamera(),
		PositionFront: frontCamera(),
	}}
	f := newFixture(t, Options{Discoverer: discoverer})

	if err := f.controller.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	f.controller.StartSession()
	waitFor(t, "session running", f.controller.IsRunning)

	if err := f.controller.SetPosition(PositionFront); err != nil {
		t.Fatalf("SetPosition failed: %v", err)
	}

	if dev := f.controller.Device(); dev.ID != "front-wide" {
		t.Errorf("expected front device after switch, got %q", dev.ID)
	}

	inputs, outputs, controls := f.session.counts()
	if inputs != 1 {
		t.Errorf("old input must be removed on position change, got %d inputs", inputs)
	}
	if outputs != 1 {
		t.Errorf("the fixed photo output persists across reconfiguration, got %d", outputs)
	}
	if controls != 4 {
		t.Errorf("controls must be rebuilt, not accumulated, got %d", controls)
	}

	// Configuration never overlaps a running session: the switch stopped and
	// restarted the hardware.
	if f.session.stopCalls != 1 || f.session.startCalls != 2 {
		t.Errorf("expected stop+restart around reconfiguration, got %d stops, %d starts",
			f.session.stopCalls, f.session.startCalls)
	}
	waitFor(t, "session running again", f.controller.IsRunning)
}

func TestSetPosition_FailureRestoresPreviousDevice(t *testing.T) {
	// Only the back camera exists, so switching to front fails mid-pass.
	f := newFixture(t, Options{})
	if err := f.controller.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	f.controller.StartSession()
	waitFor(t, "session running", f.controller.IsRunning)

	if err := f.controller.SetPosition(PositionFront); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}

	// The session keeps the previous device and stays configured.
	if got := f.controller.State(); got != StateConfigured {
		t.Errorf("expected state %s after failed switch, got %s", StateConfigured, got)
	}
	if dev := f.controller.Device(); dev.ID != "back-wide" {
		t.Errorf("expected previous device restored, got %q", dev.ID)
	}
	inputs, outputs, controls := f.session.counts()
	if inputs != 1 || outputs != 1 {
		t.Errorf("expected intact topology after failed switch, got %d inputs, %d outputs", inputs, outputs)
	}
	if controls != 4 {
		t.Errorf("expected full control set after failed switch, got %d", controls)
	}
	waitFor(t, "session running again", f.controller.IsRunning)

	// A later switch back to the working position is a no-op because the
	// requested position was rolled back with the device.
	if err := f.controller.SetPosition(PositionBack); err != nil {
		t.Fatalf("SetPosition(back) after failed switch: %v", err)
	}
	if dev := f.controller.Device(); dev.ID != "back-wide" {
		t.Errorf("device changed by no-op switch, got %q", dev.ID)
	}
}

func TestSetPosition_SamePositionNoOp(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.controller.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	if err := f.controller.SetPosition(PositionBack); err != nil {
		t.Fatalf("SetPosition failed: %v", err)
	}
	if f.session.begins != 1 {
		t.Errorf("same-position switch must not reconfigure, got %d transactions", f.session.begins)
	}
}

func TestSetPosition_Invalid(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.controller.SetPosition(Position("sideways")); err == nil {
		t.Error("expected error for invalid position")
	}
}

func TestAdjustControl(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.controller.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	if err := f.controller.AdjustControl("zoom", 2.5); err != nil {
		t.Fatalf("AdjustControl failed: %v", err)
	}

	f.session.mu.Lock()
	applied := append([]string(nil), f.session.applied...)
	f.session.mu.Unlock()
	if len(applied) != 1 || applied[0] != "zoom=2.50" {
		t.Errorf("expected zoom applied to session, got %v", applied)
	}
}

func TestAdjustControl_Clamps(t *testing.T) {
	f := newFixture(t, Options{Config: Config{ZoomMin: 1, ZoomMax: 8}})
	if err := f.controller.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	if err := f.controller.AdjustControl("zoom", 100); err != nil {
		t.Fatalf("AdjustControl failed: %v", err)
	}

	for _, state := range f.controller.Controls() {
		if state.Name == "zoom" && state.Value != 8 {
			t.Errorf("expected zoom clamped to 8, got %v", state.Value)
		}
	}
}

func TestAdjustControl_Unknown(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.controller.AdjustControl("focus", 1); err == nil {
		t.Error("expected error for unknown control")
	}
}

func TestSelectControl(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.controller.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	if err := f.controller.SelectControl("preset", 1); err != nil {
		t.Fatalf("SelectControl failed: %v", err)
	}

	for _, state := range f.controller.Controls() {
		if state.Name == "preset" && state.Option != "Vivid" {
			t.Errorf("expected preset Vivid, got %q", state.Option)
		}
	}

	if err := f.controller.SelectControl("preset", 99); err == nil {
		t.Error("expected error for out-of-range index")
	}
}

func TestCapturePhoto(t *testing.T) {
	f := newFixture(t, Options{Output: &fakeOutput{data: []byte("jpeg-bytes")}})

	if _, err := f.controller.CapturePhoto(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured before configuration, got %v", err)
	}

	if err := f.controller.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	data, err := f.controller.CapturePhoto(context.Background())
	if err != nil {
		t.Fatalf("CapturePhoto failed: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("unexpected capture payload %q", data)
	}
}

func TestStartStop_Sequences(t *testing.T) {
	// For any call sequence the final state equals the last non-redundant
	// call's intent.
	sequences := []struct {
		calls []string
		want  bool
	}{
		{[]string{"start"}, true},
		{[]string{"start", "start"}, true},
		{[]string{"start", "stop"}, false},
		{[]string{"start", "stop", "stop", "start"}, true},
		{[]string{"stop"}, false},
	}

	for _, seq := range sequences {
		t.Run(fmt.Sprintf("%v", seq.calls), func(t *testing.T) {
			f := newFixture(t, Options{})
			if err := f.controller.Configure(); err != nil {
				t.Fatalf("Configure failed: %v", err)
			}
			for _, call := range seq.calls {
				if call == "start" {
					f.controller.StartSession()
				} else {
					f.controller.StopSession()
				}
			}
			// Synchronous queue barrier.
			_ = f.controller.Configure()
			if got := f.controller.IsRunning(); got != seq.want {
				t.Errorf("sequence %v: expected running=%v, got %v", seq.calls, seq.want, got)
			}
		})
	}
}
