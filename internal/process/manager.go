package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// StdoutHandler consumes the binary stdout of the subprocess until EOF.
// The preview pipeline hands the reader to the frame splitter.
type StdoutHandler func(r io.Reader)

// LogParser parses a stderr line and returns the log level and message.
// Used to lift structured log info out of ffmpeg output.
type LogParser func(line string) (level, msg string)

type exitReason int

const (
	exitReasonProcessExit exitReason = iota
	exitReasonShutdown
	exitReasonRestart
)

// Manager manages the lifecycle of one pipeline subprocess: graceful SIGINT
// shutdown with a kill fallback, stderr log forwarding, and in-place restart
// with a new command when the filter chain changes.
type Manager struct {
	name            string
	command         string
	commandMu       sync.RWMutex
	cmd             *exec.Cmd
	logger          *slog.Logger
	logParser       LogParser
	stdoutHandler   StdoutHandler
	ctx             context.Context
	cancel          context.CancelFunc
	restartChan     chan string
	gracefulTimeout time.Duration
	killTimeout     time.Duration

	infoMu    sync.Mutex
	state     State
	pid       int
	startedAt time.Time
	lastError error
}

// NewManager creates a new pipeline process manager.
func NewManager(name, command string, logger *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		name:            name,
		command:         command,
		logger:          logger,
		ctx:             ctx,
		cancel:          cancel,
		restartChan:     make(chan string, 1),
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
		state:           StateIdle,
	}
}

// Info returns a snapshot of the managed process.
func (m *Manager) Info() Info {
	m.infoMu.Lock()
	defer m.infoMu.Unlock()
	return Info{
		Name:      m.name,
		State:     m.state,
		PID:       m.pid,
		StartedAt: m.startedAt,
		LastError: m.lastError,
	}
}

func (m *Manager) setState(state State, pid int, lastError error) {
	m.infoMu.Lock()
	defer m.infoMu.Unlock()
	m.state = state
	m.pid = pid
	m.lastError = lastError
	if state == StateRunning {
		m.startedAt = time.Now()
	}
}

// SetStdoutHandler sets the consumer for the subprocess's binary stdout.
func (m *Manager) SetStdoutHandler(handler StdoutHandler) {
	m.stdoutHandler = handler
}

// SetLogParser sets the parser for subprocess stderr lines.
func (m *Manager) SetLogParser(parser LogParser) {
	m.logParser = parser
}

// GetCommand returns the current command string.
func (m *Manager) GetCommand() string {
	m.commandMu.RLock()
	defer m.commandMu.RUnlock()
	return m.command
}

// RequestRestart requests a restart with a new command.
// Non-blocking: if a restart is already pending, the newer command wins.
func (m *Manager) RequestRestart(newCommand string) {
	for {
		select {
		case m.restartChan <- newCommand:
			m.logger.Debug("Pipeline restart requested")
			return
		default:
			// Drain the stale pending command and retry.
			select {
			case <-m.restartChan:
			default:
			}
		}
	}
}

// Shutdown triggers a graceful shutdown of the manager.
func (m *Manager) Shutdown() {
	m.cancel()
}

// runningProcess holds channels for monitoring a running subprocess.
type runningProcess struct {
	processDone <-chan error
	outputDone  chan struct{} // receives twice, once per output stream
}

func (m *Manager) startProcess(command string) (*runningProcess, error) {
	args, err := parseCommand(command)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	m.cmd = exec.Command(args[0], args[1:]...)
	m.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := m.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := m.cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := m.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", m.name, err)
	}

	m.logger.Info("Pipeline process started", "name", m.name, "pid", m.cmd.Process.Pid)

	outputDone := make(chan struct{}, 2)
	go func() {
		if m.stdoutHandler != nil {
			m.stdoutHandler(stdout)
		} else {
			_, _ = io.Copy(io.Discard, stdout)
		}
		outputDone <- struct{}{}
	}()
	go func() {
		m.streamStderr(stderr)
		outputDone <- struct{}{}
	}()

	processDone := make(chan error, 1)
	go func() {
		processDone <- m.cmd.Wait()
	}()

	return &runningProcess{processDone: processDone, outputDone: outputDone}, nil
}

func (m *Manager) waitOutputDone(outputDone <-chan struct{}) {
	<-outputDone
	<-outputDone
}

// exitCodeFromError extracts the exit code from a process error.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// Run starts the subprocess and blocks until it exits, Shutdown is called,
// or a restart is requested. Restart requests loop in place with the new
// command. Returns the exit code of the last run.
func (m *Manager) Run() int {
	for {
		exitCode, reason := m.runOnce()
		switch reason {
		case exitReasonShutdown:
			m.logger.Info("Pipeline shutdown complete", "name", m.name, "exit_code", exitCode)
			return exitCode
		case exitReasonRestart:
			m.logger.Info("Restarting pipeline", "name", m.name)
			continue
		default:
			m.logger.Info("Pipeline exited", "name", m.name, "exit_code", exitCode)
			return exitCode
		}
	}
}

func (m *Manager) runOnce() (int, exitReason) {
	m.commandMu.RLock()
	command := m.command
	m.commandMu.RUnlock()

	m.setState(StateStarting, 0, nil)
	rp, err := m.startProcess(command)
	if err != nil {
		m.logger.Error("Failed to start pipeline process", "name", m.name, "error", err)
		m.setState(StateError, 0, err)
		return 1, exitReasonProcessExit
	}
	m.setState(StateRunning, m.cmd.Process.Pid, nil)
	defer m.waitOutputDone(rp.outputDone)

	select {
	case <-m.ctx.Done():
		m.setState(StateStopping, m.cmd.Process.Pid, nil)
		m.sendStopSignal()
		code := m.waitForExit(rp.processDone, m.gracefulTimeout)
		m.setState(StateIdle, 0, nil)
		return code, exitReasonShutdown

	case newCmd := <-m.restartChan:
		m.setState(StateStopping, m.cmd.Process.Pid, nil)
		m.sendStopSignal()
		m.commandMu.Lock()
		m.command = newCmd
		m.commandMu.Unlock()
		return m.waitForExit(rp.processDone, m.gracefulTimeout), exitReasonRestart

	case processErr := <-rp.processDone:
		exitCode := exitCodeFromError(processErr)
		if processErr != nil && exitCode == 1 {
			m.logger.Error("Pipeline process exited with error", "name", m.name, "error", processErr)
		}
		if processErr != nil {
			m.setState(StateError, 0, processErr)
		} else {
			m.setState(StateIdle, 0, nil)
		}
		return exitCode, exitReasonProcessExit
	}
}

// sendStopSignal sends SIGINT to the subprocess without waiting.
func (m *Manager) sendStopSignal() {
	if m.cmd == nil || m.cmd.Process == nil {
		return
	}
	if err := m.cmd.Process.Signal(syscall.SIGINT); err != nil {
		m.logger.Warn("Failed to send SIGINT", "error", err)
	}
}

// waitForExit waits for the process to exit with a timeout, force-killing if needed.
func (m *Manager) waitForExit(processDone <-chan error, timeout time.Duration) int {
	select {
	case err := <-processDone:
		return exitCodeFromError(err)
	case <-time.After(timeout):
		m.logger.Warn("Graceful shutdown timeout, forcing kill", "name", m.name, "timeout", timeout)
		if m.cmd.Process != nil {
			if err := m.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				m.logger.Error("Failed to kill process", "error", err)
			}
		}
		select {
		case <-processDone:
		case <-time.After(m.killTimeout):
			m.logger.Error("Process did not exit after kill signal", "name", m.name)
		}
		return 137
	}
}

// streamStderr forwards subprocess stderr lines to the logger, using the
// configured parser to map ffmpeg levels onto slog levels.
func (m *Manager) streamStderr(reader io.Reader) {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := scanner.Text()

		level, msg := "info", line
		if m.logParser != nil {
			level, msg = m.logParser(line)
		}

		switch level {
		case "fatal", "error", "panic":
			m.logger.Error(msg)
		case "warning":
			m.logger.Warn(msg)
		case "debug", "verbose", "trace":
			m.logger.Debug(msg)
		default:
			m.logger.Info(msg)
		}
	}
	if err := scanner.Err(); err != nil {
		m.logger.Warn("Error reading pipeline stderr", "error", err)
	}
}

// parseCommand parses a command string into arguments.
// Handles quoted strings and basic escaping.
func parseCommand(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	command = strings.TrimSpace(command)
	runes := []rune(command)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			switch {
			case !inQuote:
				inQuote = true
				quoteChar = r
			case r == quoteChar:
				inQuote = false
				quoteChar = 0
			default:
				current.WriteRune(r)
			}
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		case r == '\\' && i+1 < len(runes):
			i++
			current.WriteRune(runes[i])
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}
	if inQuote {
		return nil, fmt.Errorf("unclosed quote in command")
	}
	return args, nil
}
