package ffmpeg

import "strings"

// BuildPreviewCommand builds the ffmpeg command for the live MJPEG preview:
// camera in, JPEG frames out on stdout.
func BuildPreviewCommand(p PreviewParams) string {
	var cmd strings.Builder

	cmd.WriteString(Base())

	resolution := defaultString(p.Resolution, "1280x720")
	fps := defaultString(p.FPS, "30")

	if p.TestSource {
		// Generated pattern input, read at native frame rate so the
		// pipeline does not run ahead of real time.
		cmd.WriteString(" -re -f lavfi")
		cmd.WriteString(" -i \"testsrc2=size=" + resolution + ":rate=" + fps + "\"")
	} else {
		cmd.WriteString(" -f v4l2")
		cmd.WriteString(" -video_size " + resolution)
		cmd.WriteString(" -framerate " + fps)
		cmd.WriteString(" -i " + p.DevicePath)
	}

	if filters := filterChain(p); filters != "" {
		cmd.WriteString(" -vf " + filters)
	}

	cmd.WriteString(" -c:v mjpeg -q:v 5 -f mjpeg -")
	return cmd.String()
}

// BuildStillCommand builds the ffmpeg command for a one-shot still capture.
func BuildStillCommand(p StillParams) string {
	var cmd strings.Builder

	cmd.WriteString(Base())
	cmd.WriteString(" -f v4l2")
	if p.Resolution != "" {
		cmd.WriteString(" -video_size " + p.Resolution)
	}
	cmd.WriteString(" -i " + p.DevicePath)
	cmd.WriteString(" -frames:v 1 -q:v 1")

	if p.OutputPath == "" || p.OutputPath == "-" {
		cmd.WriteString(" -f image2 -")
	} else {
		cmd.WriteString(" -y " + p.OutputPath)
	}
	return cmd.String()
}
