// Package process manages the lifecycle of pipeline subprocesses.
//
// A Manager wraps one external process (the ffmpeg preview pipeline) and
// handles graceful SIGINT shutdown with a kill fallback, binary stdout
// handoff to a consumer, stderr log forwarding with level mapping, and
// in-place restarts when the command changes.
package process
