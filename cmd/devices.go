package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsystel-hub/cameractl/internal/devices"
	"github.com/dbsystel-hub/cameractl/internal/logging"
)

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List available camera devices",
		Long: `Scans the system for video capture devices and prints their identifier, ` +
			`name, device node and inferred lens position.`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})
			logger := logging.GetLogger("devices")

			detector := devices.NewDetector(logger)
			found, err := detector.FindDevices()
			if err != nil {
				logger.Error("Device scan failed", "error", err)
				os.Exit(1)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(found); err != nil {
					logger.Error("Failed to encode devices", "error", err)
					os.Exit(1)
				}
				return
			}

			if len(found) == 0 {
				fmt.Println("No camera devices found")
				return
			}

			fmt.Printf("%-10s %-30s %-16s %-8s %s\n", "ID", "NAME", "PATH", "POSITION", "WIDE")
			for _, dev := range found {
				wide := ""
				if dev.WideAngle {
					wide = "yes"
				}
				fmt.Printf("%-10s %-30s %-16s %-8s %s\n", dev.ID, dev.Name, dev.Path, dev.Position, wide)
			}
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}
