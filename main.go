package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/dbsystel-hub/cameractl/cmd"
	"github.com/dbsystel-hub/cameractl/internal/api"
	"github.com/dbsystel-hub/cameractl/internal/camera"
	"github.com/dbsystel-hub/cameractl/internal/capture"
	"github.com/dbsystel-hub/cameractl/internal/config"
	"github.com/dbsystel-hub/cameractl/internal/devices"
	"github.com/dbsystel-hub/cameractl/internal/events"
	"github.com/dbsystel-hub/cameractl/internal/logging"
	"github.com/dbsystel-hub/cameractl/internal/metrics"
	"github.com/dbsystel-hub/cameractl/internal/preview"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8095" toml:"server.port" env:"SERVER_PORT"`

	// Camera settings
	CameraPosition string  `help:"Initial camera position (front, back)" default:"back" toml:"camera.position" env:"CAMERA_POSITION"`
	CameraZoomMin  float64 `help:"Minimum zoom factor" default:"1.0" toml:"camera.zoom_min" env:"CAMERA_ZOOM_MIN"`
	CameraZoomMax  float64 `help:"Maximum zoom factor" default:"8.0" toml:"camera.zoom_max" env:"CAMERA_ZOOM_MAX"`

	// Preview settings
	PreviewResolution string `help:"Preview resolution" default:"1280x720" toml:"preview.resolution" env:"PREVIEW_RESOLUTION"`
	PreviewFPS        string `help:"Preview framerate" default:"30" toml:"preview.fps" env:"PREVIEW_FPS"`
	TestSource        bool   `help:"Use a generated test pattern instead of camera hardware" default:"false" toml:"preview.test_source" env:"TEST_SOURCE"`

	// Capture settings
	CaptureResolution string `help:"Still capture resolution" default:"1920x1080" toml:"capture.resolution" env:"CAPTURE_RESOLUTION"`

	// Metrics settings
	MetricsEnabled bool `help:"Enable Prometheus metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Auth settings
	AuthUsername string `help:"Basic auth username (empty disables auth)" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCamera  string `help:"Camera logging level" default:"info" toml:"logging.camera" env:"LOGGING_CAMERA"`
	LoggingDevices string `help:"Devices logging level" default:"info" toml:"logging.devices" env:"LOGGING_DEVICES"`
	LoggingCapture string `help:"Capture logging level" default:"info" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingProcess string `help:"Process manager logging level" default:"info" toml:"logging.process" env:"LOGGING_PROCESS"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		loggingConfig := logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"camera":  opts.LoggingCamera,
				"devices": opts.LoggingDevices,
				"capture": opts.LoggingCapture,
				"process": opts.LoggingProcess,
				"api":     opts.LoggingAPI,
			},
		}
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")

		// Create event bus for in-process event handling
		eventBus := events.New()

		// Metrics manager translates bus events into Prometheus series
		var metricsManager *metrics.Manager
		if opts.MetricsEnabled {
			metricsManager = metrics.NewManager(eventBus, logging.GetLogger("metrics"))
		}

		// Device layer: sysfs scan plus hotplug monitoring
		detector := devices.NewDetector(logging.GetLogger("devices"))
		discoverer := devices.NewDiscoverer(detector, logging.GetLogger("devices"))

		// Preview fan-out hub fed by the capture session
		previewHub := preview.NewHub(logging.GetLogger("camera"))

		session := camera.NewFFmpegSession(camera.FFmpegSessionOptions{
			Hub:        previewHub,
			Resolution: opts.PreviewResolution,
			FPS:        opts.PreviewFPS,
			TestSource: opts.TestSource,
			Logger:     logging.GetLogger("camera"),
		})

		stillCapturer := capture.NewStillCapturer(opts.CaptureResolution, opts.TestSource, logging.GetLogger("capture"))

		// Camera section of the config file refines the controller defaults.
		cameraConfig, cfgErr := config.LoadCameraConfig(opts.Config)
		if cfgErr != nil {
			logger.Warn("Failed to load camera config", "error", cfgErr)
		}
		controllerConfig := cameraConfig.ControllerConfig()
		if controllerConfig.Position == "" {
			controllerConfig.Position = camera.Position(opts.CameraPosition)
		}
		if controllerConfig.ZoomMin == 0 {
			controllerConfig.ZoomMin = opts.CameraZoomMin
		}
		if controllerConfig.ZoomMax == 0 {
			controllerConfig.ZoomMax = opts.CameraZoomMax
		}

		controller := camera.NewController(camera.Options{
			Session:    session,
			Authorizer: &camera.NodeAuthorizer{},
			Discoverer: discoverer,
			Output:     stillCapturer,
			EventBus:   eventBus,
			Logger:     logging.GetLogger("camera"),
			Config:     controllerConfig,
		})

		// Hot-reload the [camera] section on config file changes
		configWatcher := config.NewConfigWatcher(
			opts.Config,
			config.LoadCameraConfig,
			logging.GetLogger("config"),
		)
		configWatcher.OnReload(func(cfg config.CameraConfig) {
			logger.Info("Camera configuration changed, applying")
			controller.SetControlRanges(cfg.ControllerConfig())
			if cfg.Position != "" {
				if err := controller.SetPosition(camera.Position(cfg.Position)); err != nil {
					logger.Warn("Config reload position change rejected", "error", err)
				}
			}
		})

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			Controller:   controller,
			Detector:     detector,
			EventBus:     eventBus,
			PreviewHub:   previewHub,
		}
		if opts.MetricsEnabled {
			apiOpts.PrometheusHandler = metrics.Handler()
		}

		server := api.NewServer(apiOpts)

		hooks.OnStart(func() {
			if metricsManager != nil {
				metricsManager.Start()
			}

			if monErr := detector.StartMonitoring(context.Background(), eventBus); monErr != nil {
				logger.Warn("Device hotplug monitoring unavailable", "error", monErr)
			}

			// Resolve camera permission; a grant configures the session.
			controller.CheckPermission(context.Background())

			if watchErr := configWatcher.Start(); watchErr != nil {
				logger.Warn("Config file watching unavailable", "error", watchErr)
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			configWatcher.Stop()
			controller.StopSession()
			controller.Close()
			detector.StopMonitoring()

			if metricsManager != nil {
				metricsManager.Stop()
			}
		})
	})

	// Add devices command
	devicesCmd := cmd.CreateDevicesCmd()
	cli.Root().AddCommand(devicesCmd)

	// Add capture command
	captureCmd := cmd.CreateCaptureCmd()
	cli.Root().AddCommand(captureCmd)

	// Run the CLI
	cli.Run()
}
