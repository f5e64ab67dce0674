package ffmpeg

import (
	"fmt"
	"strings"
)

// PreviewParams describes the live MJPEG preview pipeline.
type PreviewParams struct {
	DevicePath string
	Resolution string // e.g. "1280x720"
	FPS        string // e.g. "30"

	// Control-surface values folded into the filter chain.
	Zoom       float64 // 1.0 = no zoom
	Brightness float64 // -1.0 .. 1.0, 0 = neutral
	Preset     string  // Standard, Vivid, Mono

	// TestSource replaces the hardware input with a generated pattern.
	// Used when no camera is present so the preview stays demonstrable.
	TestSource bool
}

// StillParams describes a one-shot still capture.
type StillParams struct {
	DevicePath string
	Resolution string
	OutputPath string // "-" writes the JPEG to stdout
}

// Base returns the common ffmpeg invocation prefix. The loglevel prefix makes
// stderr lines parseable by ParseLogLevel.
func Base() string {
	return "ffmpeg -hide_banner -loglevel level+info"
}

// filterChain builds the -vf argument from control values. Returns "" when
// every control sits at its neutral value.
func filterChain(p PreviewParams) string {
	var filters []string

	if p.Zoom > 1.0 {
		// Digital zoom: centered crop followed by a scale back to the
		// source size. crop defaults to centering the region.
		filters = append(filters,
			fmt.Sprintf("crop=iw/%.2f:ih/%.2f", p.Zoom, p.Zoom),
			"scale="+strings.Replace(defaultString(p.Resolution, "1280x720"), "x", ":", 1))
	}

	var eq []string
	if p.Brightness != 0 {
		eq = append(eq, fmt.Sprintf("brightness=%.2f", p.Brightness))
	}
	switch p.Preset {
	case "Vivid":
		eq = append(eq, "saturation=1.50")
	case "Mono":
		eq = append(eq, "saturation=0.00")
	}
	if len(eq) > 0 {
		filters = append(filters, "eq="+strings.Join(eq, ":"))
	}

	return strings.Join(filters, ",")
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
