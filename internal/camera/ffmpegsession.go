package camera

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/dbsystel-hub/cameractl/internal/ffmpeg"
	"github.com/dbsystel-hub/cameractl/internal/preview"
	"github.com/dbsystel-hub/cameractl/internal/process"
)

// pipelineControls are the control names the ffmpeg pipeline can realize.
// Anything else is refused by CanAddControl and downgraded to a warning.
var pipelineControls = map[string]bool{
	"zoom":      true,
	"lighting":  true,
	"preset":    true,
	"framerate": true,
}

// FFmpegSession is the production CaptureSession. It realizes the session as
// an ffmpeg subprocess: the preview pipeline streams MJPEG frames into a
// preview.Hub, and control changes rebuild the pipeline's filter chain via
// an in-place process restart.
type FFmpegSession struct {
	logger *slog.Logger
	hub    *preview.Hub

	mu          sync.Mutex
	params      ffmpeg.PreviewParams
	input       Input
	output      PhotoOutput
	controls    []*Control
	configuring bool

	manager *process.Manager
	runDone chan struct{}
}

// FFmpegSessionOptions configures a new FFmpegSession.
type FFmpegSessionOptions struct {
	Hub        *preview.Hub
	Resolution string
	FPS        string

	// TestSource swaps the hardware input for a generated pattern so the
	// session runs without a camera attached.
	TestSource bool

	Logger *slog.Logger
}

// NewFFmpegSession creates an ffmpeg-backed capture session.
func NewFFmpegSession(opts FFmpegSessionOptions) *FFmpegSession {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegSession{
		logger: logger,
		hub:    opts.Hub,
		params: ffmpeg.PreviewParams{
			Resolution: opts.Resolution,
			FPS:        opts.FPS,
			Zoom:       1.0,
			TestSource: opts.TestSource,
		},
	}
}

// deviceInput is the FFmpegSession input wrapper.
type deviceInput struct {
	dev Device
}

func (d deviceInput) Device() Device { return d.dev }

// BeginConfiguration opens a configuration transaction.
func (s *FFmpegSession) BeginConfiguration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configuring = true
}

// CommitConfiguration closes the transaction. If the pipeline is running its
// command is rebuilt so topology changes take effect.
func (s *FFmpegSession) CommitConfiguration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configuring = false
	s.restartLocked()
}

// NewInput wraps a discovered device, verifying its node exists.
func (s *FFmpegSession) NewInput(dev Device) (Input, error) {
	s.mu.Lock()
	testSource := s.params.TestSource
	s.mu.Unlock()

	if !testSource {
		if _, err := os.Stat(dev.Path); err != nil {
			return nil, fmt.Errorf("device node %s: %w", dev.Path, err)
		}
	}
	return deviceInput{dev: dev}, nil
}

// CanAddInput reports whether the session can accept another input.
// The pipeline drives exactly one device.
func (s *FFmpegSession) CanAddInput(in Input) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return in != nil && s.input == nil
}

// AddInput attaches the input and points the pipeline at its device node.
func (s *FFmpegSession) AddInput(in Input) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = in
	s.params.DevicePath = in.Device().Path
}

// RemoveInput detaches the input.
func (s *FFmpegSession) RemoveInput(in Input) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.input == in {
		s.input = nil
		s.params.DevicePath = ""
	}
}

// CanAddOutput reports whether the photo output slot is free.
func (s *FFmpegSession) CanAddOutput(out PhotoOutput) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return out != nil && s.output == nil
}

// AddOutput attaches the still-capture sink.
func (s *FFmpegSession) AddOutput(out PhotoOutput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output = out
}

// CanAddControl reports whether the pipeline can realize the control.
func (s *FFmpegSession) CanAddControl(c *Control) bool {
	return c != nil && pipelineControls[c.Name]
}

// AddControl registers a control with the pipeline.
func (s *FFmpegSession) AddControl(c *Control) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls = append(s.controls, c)
}

// RemoveControl unregisters a control.
func (s *FFmpegSession) RemoveControl(c *Control) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.controls {
		if existing == c {
			s.controls = append(s.controls[:i], s.controls[i+1:]...)
			return
		}
	}
}

// ApplyControl folds a control change into the filter chain and restarts the
// pipeline in place when it is live.
func (s *FFmpegSession) ApplyControl(name string, value float64, option string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case "zoom":
		s.params.Zoom = value
	case "lighting":
		s.params.Brightness = value
	case "preset":
		s.params.Preset = option
	case "framerate":
		if _, err := strconv.Atoi(option); err != nil {
			return fmt.Errorf("framerate %q is not numeric", option)
		}
		s.params.FPS = option
	default:
		return fmt.Errorf("unknown control %q", name)
	}

	s.restartLocked()
	return nil
}

// Start spawns the preview pipeline. Returns an error when no input is
// attached or the pipeline is already live.
func (s *FFmpegSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.manager != nil {
		return fmt.Errorf("pipeline already running")
	}
	if s.input == nil && !s.params.TestSource {
		return fmt.Errorf("no input attached")
	}

	command := ffmpeg.BuildPreviewCommand(s.params)
	mgr := process.NewManager("preview", command, s.logger.With("component", "pipeline"))
	mgr.SetLogParser(ffmpeg.ParseLogLevel)
	if s.hub != nil {
		hub := s.hub
		mgr.SetStdoutHandler(func(r io.Reader) {
			if err := preview.SplitFrames(r, hub.Publish); err != nil {
				s.logger.Warn("Preview stream ended with error", "error", err)
			}
		})
	}

	s.manager = mgr
	s.runDone = make(chan struct{})
	done := s.runDone
	go func() {
		mgr.Run()
		close(done)
	}()

	s.logger.Info("Preview pipeline started", "command", command)
	return nil
}

// Stop shuts the pipeline down and waits for the process to exit.
func (s *FFmpegSession) Stop() error {
	s.mu.Lock()
	mgr := s.manager
	done := s.runDone
	s.manager = nil
	s.runDone = nil
	s.mu.Unlock()

	if mgr == nil {
		return nil
	}
	mgr.Shutdown()
	<-done
	info := mgr.Info()
	if info.LastError != nil {
		s.logger.Warn("Preview pipeline stopped with error", "error", info.LastError)
	} else {
		s.logger.Info("Preview pipeline stopped")
	}
	return nil
}

// PipelineInfo reports the state of the underlying preview process.
// An idle snapshot is returned when no pipeline is live.
func (s *FFmpegSession) PipelineInfo() process.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manager == nil {
		return process.Info{Name: "preview", State: process.StateIdle}
	}
	return s.manager.Info()
}

// restartLocked rebuilds the pipeline command and requests an in-place
// restart. No-op while a configuration transaction is open or the pipeline
// is not running. Callers hold s.mu.
func (s *FFmpegSession) restartLocked() {
	if s.configuring || s.manager == nil {
		return
	}
	command := ffmpeg.BuildPreviewCommand(s.params)
	if command == s.manager.GetCommand() {
		return
	}
	s.manager.RequestRestart(command)
}
