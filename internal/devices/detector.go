// Package devices discovers camera devices through the kernel's
// video4linux sysfs tree and watches for hotplug changes.
package devices

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dbsystel-hub/cameractl/internal/camera"
	"github.com/dbsystel-hub/cameractl/internal/events"
)

// Default kernel paths. Overridable for tests.
const (
	defaultSysfsRoot = "/sys/class/video4linux"
	defaultDevRoot   = "/dev"
)

// DeviceInfo describes one discovered camera device.
type DeviceInfo struct {
	ID        string
	Name      string
	Path      string
	Position  camera.Position
	WideAngle bool
}

// Detector scans for camera devices and monitors hotplug events.
type Detector struct {
	sysfsRoot string
	devRoot   string
	logger    *slog.Logger

	mu          sync.Mutex
	cancel      context.CancelFunc
	lastDevices map[string]DeviceInfo
}

// NewDetector creates a detector over the default kernel paths.
func NewDetector(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		sysfsRoot:   defaultSysfsRoot,
		devRoot:     defaultDevRoot,
		logger:      logger,
		lastDevices: make(map[string]DeviceInfo),
	}
}

// NewDetectorAt creates a detector over explicit sysfs and dev roots.
func NewDetectorAt(sysfsRoot, devRoot string, logger *slog.Logger) *Detector {
	d := NewDetector(logger)
	d.sysfsRoot = sysfsRoot
	d.devRoot = devRoot
	return d
}

// FindDevices returns all currently available camera devices, sorted by ID.
func (d *Detector) FindDevices() ([]DeviceInfo, error) {
	entries, err := os.ReadDir(d.sysfsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", d.sysfsRoot, err)
	}

	var devices []DeviceInfo
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "video") {
			continue
		}

		name := readSysfsName(filepath.Join(d.sysfsRoot, entry.Name(), "name"))
		devices = append(devices, DeviceInfo{
			ID:        entry.Name(),
			Name:      name,
			Path:      filepath.Join(d.devRoot, entry.Name()),
			Position:  classifyPosition(name),
			WideAngle: isWideAngle(name),
		})
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices, nil
}

// StartMonitoring watches the device tree and publishes discovery events on
// add and remove. The initial device set is published as "added".
func (d *Detector) StartMonitoring(ctx context.Context, bus *events.Bus) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		return fmt.Errorf("monitoring already started")
	}
	ctx, d.cancel = context.WithCancel(ctx)

	devices, err := d.FindDevices()
	if err != nil {
		d.logger.Warn("Failed to get initial device list", "error", err)
	} else {
		for _, dev := range devices {
			d.lastDevices[dev.ID] = dev
			publishDiscovery(bus, "added", dev)
		}
		d.logger.Info("Initialized with camera devices", "count", len(devices))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating device watcher: %w", err)
	}
	if err := watcher.Add(d.devRoot); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", d.devRoot, err)
	}

	go d.watchLoop(ctx, watcher, bus)
	return nil
}

// StopMonitoring stops the hotplug watcher.
func (d *Detector) StopMonitoring() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// watchLoop debounces watcher events and rescans on relevant changes.
func (d *Detector) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, bus *events.Bus) {
	defer watcher.Close()
	d.logger.Info("Device hotplug monitoring started", "path", d.devRoot)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	rescan := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Device hotplug monitoring stopped")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !strings.HasPrefix(filepath.Base(event.Name), "video") {
				continue
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Remove) {
				continue
			}
			// Let the kernel finish enumerating before rescanning.
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(500*time.Millisecond, func() {
				select {
				case rescan <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			d.logger.Error("Device watcher error", "error", err)

		case <-rescan:
			d.diffAndPublish(bus)
		}
	}
}

// diffAndPublish rescans the device tree and publishes changes.
func (d *Detector) diffAndPublish(bus *events.Bus) {
	devices, err := d.FindDevices()
	if err != nil {
		d.logger.Error("Device rescan failed", "error", err)
		return
	}

	current := make(map[string]DeviceInfo, len(devices))
	for _, dev := range devices {
		current[dev.ID] = dev
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for id, old := range d.lastDevices {
		if _, exists := current[id]; !exists {
			delete(d.lastDevices, id)
			d.logger.Info("Device removed", "device", old.Path, "name", old.Name)
			publishDiscovery(bus, "removed", old)
		}
	}
	for id, dev := range current {
		if _, exists := d.lastDevices[id]; !exists {
			d.lastDevices[id] = dev
			d.logger.Info("Device added", "device", dev.Path, "name", dev.Name)
			publishDiscovery(bus, "added", dev)
		}
	}
}

func publishDiscovery(bus *events.Bus, action string, dev DeviceInfo) {
	if bus == nil {
		return
	}
	bus.Publish(events.DeviceDiscoveryEvent{
		DeviceID:  dev.ID,
		Name:      dev.Name,
		Path:      dev.Path,
		Action:    action,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// readSysfsName reads a device's human-readable name from sysfs.
func readSysfsName(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// classifyPosition maps a device name onto a camera position. User-facing
// webcams usually carry "front" or "user" in their name; rear modules say
// "back", "rear" or "world".
func classifyPosition(name string) camera.Position {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "front"), strings.Contains(lower, "user"):
		return camera.PositionFront
	case strings.Contains(lower, "back"), strings.Contains(lower, "rear"),
		strings.Contains(lower, "world"):
		return camera.PositionBack
	default:
		// A bare webcam with no position hint faces the user.
		return camera.PositionFront
	}
}

// isWideAngle reports whether the device name marks a wide-angle module.
func isWideAngle(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "wide") || strings.Contains(lower, "ultra")
}
