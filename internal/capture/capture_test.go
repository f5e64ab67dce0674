package capture

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/dbsystel-hub/cameractl/internal/camera"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildCommand_Device(t *testing.T) {
	c := NewStillCapturer("1920x1080", false, testLogger())
	dev := camera.Device{ID: "cam0", Path: "/dev/video0"}

	cmd := c.buildCommand(dev, "/tmp/out.jpg")

	for _, want := range []string{
		"-f v4l2",
		"-video_size 1920x1080",
		"-i /dev/video0",
		"-frames:v 1",
		"-y /tmp/out.jpg",
	} {
		if !strings.Contains(cmd, want) {
			t.Errorf("command missing %q: %s", want, cmd)
		}
	}
}

func TestBuildCommand_TestSource(t *testing.T) {
	c := NewStillCapturer("", true, testLogger())
	dev := camera.Device{ID: "cam0", Path: "/dev/video0"}

	cmd := c.buildCommand(dev, "/tmp/out.jpg")

	if !strings.Contains(cmd, "testsrc2=size=1280x720") {
		t.Errorf("test source command missing pattern input: %s", cmd)
	}
	if strings.Contains(cmd, "v4l2") {
		t.Errorf("test source command should not reference hardware input: %s", cmd)
	}
}

func TestCapture_MissingDevice(t *testing.T) {
	c := NewStillCapturer("", false, testLogger())
	dev := camera.Device{ID: "cam0", Path: "/nonexistent/video99"}

	if _, err := c.Capture(t.Context(), dev); err == nil {
		t.Fatal("expected error for missing device")
	}
}
