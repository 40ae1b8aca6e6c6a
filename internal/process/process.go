// Package process manages the transcoder subprocess pipeline.
package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/scsiexpress/rcsm/internal/ffmpeg"
	"github.com/scsiexpress/rcsm/internal/logging"
)

// LineHandler receives stderr lines from the transcoder. Implementations
// extract telemetry, feed the event bus, etc.
type LineHandler func(line string)

// LogParser parses a process output line and returns the log level and
// message, used to log subprocess output at the right severity.
type LogParser func(line string) (level, msg string)

// Handle owns a running transcoder pipeline. One or two OS processes: a
// camera capture tool piped into ffmpeg, or ffmpeg alone. At most one Handle
// is live at a time; the supervisor enforces that.
type Handle struct {
	id   string
	cmds []*exec.Cmd

	logger     *slog.Logger
	procLogger *slog.Logger
	parser     LogParser
	handler    LineHandler

	gracefulTimeout time.Duration
	killTimeout     time.Duration

	outputWG sync.WaitGroup
	done     chan struct{}

	mu       sync.Mutex
	exitCode int
	exited   bool
}

// Option configures a Handle before spawn.
type Option func(*Handle)

// WithLineHandler registers a handler for every ffmpeg stderr line.
func WithLineHandler(h LineHandler) Option {
	return func(p *Handle) { p.handler = h }
}

// WithLogParser sets the parser used to classify subprocess output lines.
func WithLogParser(parser LogParser) Option {
	return func(p *Handle) { p.parser = parser }
}

// WithGracefulTimeout overrides how long Terminate waits after SIGINT before
// force-killing.
func WithGracefulTimeout(d time.Duration) Option {
	return func(p *Handle) { p.gracefulTimeout = d }
}

// Spawn starts the pipeline. Each stage's stdout is piped into the next
// stage's stdin; the final stage's stderr is streamed line by line to the
// configured handler. Spawn fails if any stage cannot be started, in which
// case already started stages are killed.
func Spawn(id string, pipeline []ffmpeg.Command, opts ...Option) (*Handle, error) {
	if len(pipeline) == 0 {
		return nil, errors.New("empty pipeline")
	}

	p := &Handle{
		id:              id,
		logger:          logging.GetLogger("process"),
		procLogger:      logging.GetLogger("ffmpeg"),
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.cmds = make([]*exec.Cmd, len(pipeline))
	for i, stage := range pipeline {
		cmd := exec.Command(stage.Path, stage.Args...)
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		p.cmds[i] = cmd
	}

	for i := 0; i < len(p.cmds)-1; i++ {
		stdout, err := p.cmds[i].StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("stdout pipe for stage %d: %w", i, err)
		}
		p.cmds[i+1].Stdin = stdout
	}

	// Intermediate stages only get their stderr logged; the final stage's
	// stderr carries the telemetry the handler needs.
	for i, cmd := range p.cmds {
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return nil, fmt.Errorf("stderr pipe for stage %d: %w", i, err)
		}
		last := i == len(p.cmds)-1
		p.outputWG.Add(1)
		go func() {
			defer p.outputWG.Done()
			p.streamOutput(stderr, last)
		}()
	}

	for i, cmd := range p.cmds {
		if err := cmd.Start(); err != nil {
			for _, started := range p.cmds[:i] {
				started.Process.Kill()
				started.Wait()
			}
			return nil, fmt.Errorf("failed to start %s: %w", pipeline[i].Path, err)
		}
		p.logger.Info("process started",
			"id", id, "pid", cmd.Process.Pid, "command", pipeline[i].String())
	}

	go p.monitor()
	return p, nil
}

// monitor waits for every stage and records the final stage's exit code.
// Output readers must drain before Wait, which closes the pipes.
func (p *Handle) monitor() {
	p.outputWG.Wait()

	var lastErr error
	for i, cmd := range p.cmds {
		err := cmd.Wait()
		if i == len(p.cmds)-1 {
			lastErr = err
		}
	}

	code := exitCodeFromError(lastErr)
	p.mu.Lock()
	p.exitCode = code
	p.exited = true
	p.mu.Unlock()

	p.logger.Info("process exited", "id", p.id, "exit_code", code)
	close(p.done)
}

// Done is closed once every stage has exited and output streaming finished.
func (p *Handle) Done() <-chan struct{} { return p.done }

// Running reports whether the pipeline is still alive.
func (p *Handle) Running() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// ExitCode returns the final stage's exit code. ok is false while the
// pipeline is still running.
func (p *Handle) ExitCode() (code int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode, p.exited
}

// PID returns the process ID of the final pipeline stage.
func (p *Handle) PID() int {
	last := p.cmds[len(p.cmds)-1]
	if last.Process == nil {
		return 0
	}
	return last.Process.Pid
}

// Terminate sends SIGINT to every stage, waits for a graceful exit and
// force-kills on timeout. It blocks until the pipeline is fully collected
// and returns the final exit code.
func (p *Handle) Terminate() int {
	for _, cmd := range p.cmds {
		if cmd.Process == nil {
			continue
		}
		if err := cmd.Process.Signal(syscall.SIGINT); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.logger.Warn("failed to send SIGINT", "pid", cmd.Process.Pid, "error", err)
		}
	}

	select {
	case <-p.done:
	case <-time.After(p.gracefulTimeout):
		p.logger.Warn("graceful shutdown timeout, forcing kill", "id", p.id)
		for _, cmd := range p.cmds {
			if cmd.Process == nil {
				continue
			}
			if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				p.logger.Error("failed to kill process", "pid", cmd.Process.Pid, "error", err)
			}
		}
		select {
		case <-p.done:
		case <-time.After(p.killTimeout):
			p.logger.Error("process did not exit after kill signal", "id", p.id)
			return 137
		}
	}

	code, _ := p.ExitCode()
	return code
}

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

// streamOutput reads subprocess stderr line by line, forwarding telemetry
// lines to the handler and logging everything at the parsed severity.
func (p *Handle) streamOutput(reader io.Reader, telemetry bool) {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := scanner.Text()

		if telemetry && p.handler != nil {
			p.handler(line)
		}

		level, msg := "info", line
		if p.parser != nil {
			level, msg = p.parser(line)
		}
		switch level {
		case "fatal", "error", "panic":
			p.procLogger.Error(msg)
		case "warning":
			p.procLogger.Warn(msg)
		case "debug", "trace", "verbose":
			p.procLogger.Debug(msg)
		default:
			p.procLogger.Info(msg)
		}
	}
	if err := scanner.Err(); err != nil {
		p.logger.Warn("error reading process output", "id", p.id, "error", err)
	}
}
