// Package capture takes one-shot still photos from a camera device by
// running a short-lived ffmpeg process and reading the JPEG back.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/dbsystel-hub/cameractl/internal/camera"
	"github.com/dbsystel-hub/cameractl/internal/ffmpeg"
)

const defaultTimeout = 10 * time.Second

// StillCapturer captures single frames via ffmpeg. It implements
// camera.PhotoOutput.
type StillCapturer struct {
	Resolution string
	Timeout    time.Duration

	// TestSource substitutes a generated pattern for the hardware input.
	// Used when no camera is attached.
	TestSource bool

	Logger *slog.Logger
}

// NewStillCapturer creates a capturer with the default timeout.
func NewStillCapturer(resolution string, testSource bool, logger *slog.Logger) *StillCapturer {
	if logger == nil {
		logger = slog.Default()
	}
	return &StillCapturer{
		Resolution: resolution,
		Timeout:    defaultTimeout,
		TestSource: testSource,
		Logger:     logger,
	}
}

// Capture takes a single frame from the device and returns the JPEG bytes.
func (c *StillCapturer) Capture(ctx context.Context, dev camera.Device) ([]byte, error) {
	if !c.TestSource {
		if _, err := os.Stat(dev.Path); os.IsNotExist(err) {
			return nil, fmt.Errorf("device %s does not exist", dev.Path)
		}
	}

	// Capture to a temp file rather than stdout so a partial write on
	// failure never looks like a valid image.
	tempFile, err := os.CreateTemp("", "still_*.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tempFile.Name())
	tempFile.Close()

	cmdStr := c.buildCommand(dev, tempFile.Name())
	c.Logger.Debug("Capturing still frame", "device", dev.Path, "command", cmdStr)

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", cmdStr)
	if output, err := cmd.CombinedOutput(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("still capture timed out after %s", timeout)
		}
		return nil, fmt.Errorf("still capture failed: %w: %s", err, string(output))
	}

	data, err := os.ReadFile(tempFile.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to read captured image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("still capture produced no data")
	}

	c.Logger.Info("Still frame captured", "device", dev.ID, "bytes", len(data))
	return data, nil
}

func (c *StillCapturer) buildCommand(dev camera.Device, outputPath string) string {
	if c.TestSource {
		resolution := c.Resolution
		if resolution == "" {
			resolution = "1280x720"
		}
		return fmt.Sprintf("%s -f lavfi -i \"testsrc2=size=%s\" -frames:v 1 -q:v 1 -y %s",
			ffmpeg.Base(), resolution, outputPath)
	}
	return ffmpeg.BuildStillCommand(ffmpeg.StillParams{
		DevicePath: dev.Path,
		Resolution: c.Resolution,
		OutputPath: outputPath,
	})
}
