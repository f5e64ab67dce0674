package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbsystel-hub/cameractl/internal/camera"
	"github.com/dbsystel-hub/cameractl/internal/capture"
	"github.com/dbsystel-hub/cameractl/internal/devices"
	"github.com/dbsystel-hub/cameractl/internal/logging"
)

// CreateCaptureCmd creates the capture command.
func CreateCaptureCmd() *cobra.Command {
	var devicePath string
	var resolution string
	var testSource bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "capture [output-file]",
		Short: "Capture a single still photo",
		Long: `Takes one still photo from a camera device and writes it to the given file. ` +
			`Without --device the first detected camera is used.`,
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			outputFile := args[0]

			logging.Initialize(logging.Config{Level: "info", Format: "text"})
			logger := logging.GetLogger("capture")

			dev := camera.Device{Path: devicePath}
			if devicePath == "" && !testSource {
				detector := devices.NewDetector(logger)
				found, err := detector.FindDevices()
				if err != nil || len(found) == 0 {
					logger.Error("No camera device found, pass --device or --test-source")
					os.Exit(1)
				}
				dev = camera.Device{
					ID:       found[0].ID,
					Name:     found[0].Name,
					Path:     found[0].Path,
					Position: found[0].Position,
				}
				logger.Info("Using detected device", "device", dev.Path, "name", dev.Name)
			}

			capturer := capture.NewStillCapturer(resolution, testSource, logger)
			capturer.Timeout = timeout

			ctx, cancel := context.WithTimeout(context.Background(), timeout+5*time.Second)
			defer cancel()

			data, err := capturer.Capture(ctx, dev)
			if err != nil {
				logger.Error("Capture failed", "error", err)
				os.Exit(1)
			}

			if err := os.WriteFile(outputFile, data, 0o644); err != nil {
				logger.Error("Failed to write output file", "error", err, "path", outputFile)
				os.Exit(1)
			}

			fmt.Printf("Wrote %d bytes to %s\n", len(data), outputFile)
		},
	}

	cmd.Flags().StringVarP(&devicePath, "device", "d", "", "Device node to capture from (e.g. /dev/video0)")
	cmd.Flags().StringVarP(&resolution, "resolution", "r", "1920x1080", "Capture resolution")
	cmd.Flags().BoolVar(&testSource, "test-source", false, "Capture from a generated test pattern")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Capture timeout")

	return cmd
}
