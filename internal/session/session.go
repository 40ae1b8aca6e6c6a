// Package session owns the stream lifecycle: config synthesis, media server
// restart with readiness polling, transcoder supervision and telemetry.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/scsiexpress/rcsm/internal/config"
	"github.com/scsiexpress/rcsm/internal/events"
	"github.com/scsiexpress/rcsm/internal/ffmpeg"
	"github.com/scsiexpress/rcsm/internal/logging"
	"github.com/scsiexpress/rcsm/internal/mediamtx"
	"github.com/scsiexpress/rcsm/internal/metrics"
	"github.com/scsiexpress/rcsm/internal/platform"
	"github.com/scsiexpress/rcsm/internal/probe"
	"github.com/scsiexpress/rcsm/internal/process"
	"github.com/scsiexpress/rcsm/internal/systemd"
)

// transcoder is the slice of process.Handle the session depends on, kept
// narrow so tests can substitute a fake.
type transcoder interface {
	Done() <-chan struct{}
	Running() bool
	ExitCode() (int, bool)
	Terminate() int
	PID() int
}

// versionProber provides the media server version for config tuning.
type versionProber interface {
	MediaMTXVersion(ctx context.Context) string
}

// synthesizer produces the media server config document.
type synthesizer interface {
	Synthesize(ctx context.Context, streamName string, srtPort int, version string) *mediamtx.Config
}

// spawnFunc starts a transcoder pipeline.
type spawnFunc func(id string, pipeline []ffmpeg.Command, opts ...process.Option) (transcoder, error)

// Deps are the collaborators a Session drives.
type Deps struct {
	Services systemd.ServiceManager
	Synth    synthesizer
	Prober   versionProber
	Runner   probe.Runner
	Bus      *events.Bus

	Platform    platform.Kind
	ServiceName string
	ConfigPath  string // media server config file
	BinaryPath  string // media server binary, for liveness checks

	Retry  RetryPolicy
	Delays Delays
}

// Session is the single owner of the stream lifecycle. All of Start, Stop
// and the status accessors are safe for concurrent use; the whole start
// sequence runs under one mutex so concurrent starts serialize instead of
// racing over the transcoder slot.
type Session struct {
	deps   Deps
	logger *slog.Logger

	// test seams, defaulted in New
	sleep         func(time.Duration)
	spawn         spawnFunc
	processAlive  func(ctx context.Context) bool
	portListening func(ctx context.Context, port int) bool
	httpClient    *http.Client

	mu      sync.Mutex
	state   State
	handle  transcoder
	current *config.StreamIntent

	statsMu sync.Mutex
	stats   map[string]string

	background sync.WaitGroup
}

// New creates an idle session.
func New(deps Deps) *Session {
	if deps.Retry.Attempts == 0 {
		deps.Retry = DefaultRetryPolicy
	}
	s := &Session{
		deps:       deps,
		logger:     logging.GetLogger("session"),
		sleep:      time.Sleep,
		state:      StateIdle,
		stats:      make(map[string]string),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
	s.spawn = func(id string, pipeline []ffmpeg.Command, opts ...process.Option) (transcoder, error) {
		return process.Spawn(id, pipeline, opts...)
	}
	s.processAlive = s.defaultProcessAlive
	s.portListening = s.defaultPortListening
	metrics.SetSessionState(string(StateIdle), AllStates)
	return s
}

// Start drives the full start sequence for the given intent. Any running
// transcoder is terminated first; the previous stream is gone even if the
// new one fails. Returns the rendered transcoder command on success.
func (s *Session) Start(ctx context.Context, intent *config.StreamIntent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := *intent
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return "", newError(CodeInvalidParams, err, "invalid stream request")
	}

	s.terminateLocked()

	// Config synthesis and write.
	s.setState(StateConfigWriting, &req, "")
	version := s.deps.Prober.MediaMTXVersion(ctx)
	cfg := s.deps.Synth.Synthesize(ctx, req.StreamName, req.SRTPort, version)
	if err := cfg.WriteToFile(s.deps.ConfigPath); err != nil {
		s.setState(StateIdle, nil, string(CodeConfigWrite))
		return "", newError(CodeConfigWrite, err, "failed to write media server configuration")
	}
	s.logger.Info("media server config written", "path", s.deps.ConfigPath, "stream", req.StreamName)

	// Stop-then-start the media server and confirm readiness.
	if err := s.restartMediaServer(ctx, req.SRTPort); err != nil {
		return "", err
	}

	s.setState(StateMediaMTXReady, &req, "")
	s.sleep(s.deps.Delays.BeforeSpawn)

	// Spawn the transcoder.
	s.setState(StateTranscoderStarting, &req, "")
	params := &ffmpeg.Params{
		DevicePath:  req.Device,
		PixelFormat: req.PixelFormat,
		Resolution:  req.Resolution,
		Framerate:   req.Framerate,
		Encoder:     req.Encoder,
		BitrateKbps: req.Bitrate,
		StreamName:  req.StreamName,
		SRTPort:     req.SRTPort,
		Platform:    s.deps.Platform,
	}
	pipeline, err := ffmpeg.BuildPipeline(params)
	if err != nil {
		s.setState(StateIdle, nil, string(CodeInvalidParams))
		return "", newError(CodeInvalidParams, err, "cannot build transcoder command")
	}

	streamName := req.StreamName
	handle, err := s.spawn(streamName, pipeline,
		process.WithLineHandler(func(line string) { s.handleTelemetryLine(streamName, line) }),
		process.WithLogParser(ffmpeg.ParseLogLevel),
	)
	if err != nil {
		s.setState(StateIdle, nil, string(CodeTranscoderSpawn))
		return "", newError(CodeTranscoderSpawn, err, "failed to start transcoder")
	}

	s.handle = handle
	s.current = &req
	s.setState(StateTranscoderRunning, &req, "")

	s.background.Add(2)
	go s.watchExit(handle, streamName)
	go s.probeHLS(streamName)

	return renderPipeline(pipeline), nil
}

// restartMediaServer performs stop, settle, start, is-active and the bounded
// readiness poll. Caller holds the session mutex.
func (s *Session) restartMediaServer(ctx context.Context, srtPort int) error {
	s.setState(StateMediaMTXRestarting, nil, "")
	service := s.deps.ServiceName

	if err := s.deps.Services.StopService(ctx, service); err != nil {
		// The unit may simply not be running yet.
		s.logger.Warn("media server stop failed", "error", err)
	}
	s.sleep(s.deps.Delays.AfterStop)

	if err := s.deps.Services.StartService(ctx, service); err != nil {
		s.failMediaServer(ctx)
		return newError(CodeMediaMTXRestart, err, "media server failed to start")
	}
	s.sleep(s.deps.Delays.AfterStart)

	active, err := s.deps.Services.IsActive(ctx, service)
	if err != nil || !active {
		logs := s.failMediaServer(ctx)
		e := newError(CodeMediaMTXRestart, err, "media server service is not active")
		e.Detail = logs
		return e
	}

	for i := 0; i < s.deps.Retry.Attempts; i++ {
		s.sleep(s.deps.Retry.Interval)
		if !s.processAlive(ctx) {
			s.logger.Warn("media server process not found",
				"attempt", i+1, "max_attempts", s.deps.Retry.Attempts)
			continue
		}
		if s.portListening(ctx, srtPort) {
			s.logger.Info("media server ready", "srt_port", srtPort, "attempts", i+1)
			return nil
		}
		s.logger.Info("waiting for SRT listener",
			"srt_port", srtPort, "attempt", i+1, "max_attempts", s.deps.Retry.Attempts)
	}

	logs := s.failMediaServer(ctx)
	e := newError(CodeMediaMTXRestart, nil,
		"media server not ready: SRT port %d never started listening", srtPort)
	e.Detail = logs
	return e
}

// failMediaServer records the failed state and captures a journal tail for
// the error detail.
func (s *Session) failMediaServer(ctx context.Context) string {
	logs := s.deps.Services.RecentLogs(ctx, s.deps.ServiceName)
	if logs != "" {
		s.logger.Error("media server failed to come up", "journal", logs)
	}
	s.setState(StateMediaMTXFailed, nil, string(CodeMediaMTXRestart))
	return logs
}

// Stop terminates the transcoder, clears stats and returns the session to
// idle. Stopping with nothing running is not an error.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil || !s.handle.Running() {
		s.logger.Warn("stop requested but no transcoder is running")
	}
	s.terminateLocked()
	s.setState(StateIdle, nil, "")
}

// Close stops the stream and joins all background tasks.
func (s *Session) Close() {
	s.Stop()
	s.background.Wait()
}

// terminateLocked tears down any live transcoder and waits for its exit
// status. Caller holds the session mutex.
func (s *Session) terminateLocked() {
	if s.handle == nil {
		return
	}
	if s.handle.Running() {
		s.logger.Info("terminating existing transcoder", "pid", s.handle.PID())
		code := s.handle.Terminate()
		s.logger.Info("transcoder terminated", "exit_code", code)
	}
	name := ""
	if s.current != nil {
		name = s.current.StreamName
	}
	s.handle = nil
	s.current = nil
	s.clearStats(name)
}

// watchExit observes the transcoder leaving on its own and resets the
// session if the handle is still current.
func (s *Session) watchExit(h transcoder, streamName string) {
	defer s.background.Done()
	<-h.Done()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle != h {
		return
	}
	code, _ := h.ExitCode()
	s.logger.Warn("transcoder exited", "stream", streamName, "exit_code", code)
	s.handle = nil
	s.current = nil
	s.clearStats(streamName)
	s.setState(StateIdle, nil, "")
}

// probeHLS fetches the playlist once after a settle delay, purely for the
// log. Its outcome does not gate anything.
func (s *Session) probeHLS(streamName string) {
	defer s.background.Done()
	s.sleep(s.deps.Delays.HLSProbe)

	url := fmt.Sprintf("http://localhost:%d/%s/index.m3u8", mediamtx.HLSPort, streamName)
	resp, err := s.httpClient.Get(url)
	if err != nil {
		s.logger.Warn("HLS stream not yet available", "url", url, "error", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		s.logger.Info("HLS stream is available", "url", url)
	} else {
		s.logger.Warn("HLS stream not yet available", "url", url, "status", resp.StatusCode)
	}
}

// handleTelemetryLine feeds one transcoder stderr line into the stats
// record. Lines without markers contribute nothing.
func (s *Session) handleTelemetryLine(streamName, line string) {
	parsed := ffmpeg.ExtractStats(line)
	if parsed == nil {
		return
	}
	s.statsMu.Lock()
	for k, v := range parsed {
		s.stats[k] = v
	}
	bitrate, speed := s.stats[ffmpeg.StatBitrate], s.stats[ffmpeg.StatSpeed]
	s.statsMu.Unlock()

	metrics.SetTelemetry(streamName, bitrate, speed)
	s.deps.Bus.Publish(events.TelemetryEvent{
		StreamName: streamName,
		Bitrate:    bitrate,
		Speed:      speed,
	})
}

func (s *Session) clearStats(streamName string) {
	s.statsMu.Lock()
	s.stats = make(map[string]string)
	s.statsMu.Unlock()
	if streamName != "" {
		metrics.DeleteStream(streamName)
	}
}

// Stats returns a copy of the live stats record.
func (s *Session) Stats() map[string]string {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	out := make(map[string]string, len(s.stats))
	for k, v := range s.stats {
		out[k] = v
	}
	return out
}

// State returns the current supervisor state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TranscoderRunning reports whether a live transcoder handle exists.
func (s *Session) TranscoderRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil && s.handle.Running()
}

// MediaServerRunning checks media server process liveness.
func (s *Session) MediaServerRunning(ctx context.Context) bool {
	return s.processAlive(ctx)
}

// CurrentIntent returns the intent of the running stream, or nil.
func (s *Session) CurrentIntent() *config.StreamIntent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// setState records a transition, updates the state gauge and notifies the
// bus. Caller holds the session mutex.
func (s *Session) setState(state State, intent *config.StreamIntent, errorCode string) {
	if s.state != state {
		s.logger.Debug("state transition", "from", s.state, "to", state)
	}
	s.state = state
	metrics.SetSessionState(string(state), AllStates)

	ev := events.SessionStateChangedEvent{
		State:     string(state),
		ErrorCode: errorCode,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if intent != nil {
		ev.StreamName = intent.StreamName
	}
	s.deps.Bus.Publish(ev)
}

// defaultProcessAlive matches the media server binary in the process list.
func (s *Session) defaultProcessAlive(ctx context.Context) bool {
	_, err := s.deps.Runner.Run(ctx, "pgrep", "-f", s.deps.BinaryPath)
	return err == nil
}

// defaultPortListening scans listening sockets for the SRT port. The port is
// UDP, so a dial probe cannot confirm it.
func (s *Session) defaultPortListening(ctx context.Context, port int) bool {
	output, err := s.deps.Runner.Run(ctx, "netstat", "-ln")
	if err != nil {
		return false
	}
	return strings.Contains(output, fmt.Sprintf(":%d ", port)) ||
		strings.HasSuffix(output, fmt.Sprintf(":%d", port))
}

func renderPipeline(pipeline []ffmpeg.Command) string {
	parts := make([]string, len(pipeline))
	for i, cmd := range pipeline {
		parts[i] = cmd.String()
	}
	return strings.Join(parts, " | ")
}
