package session

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scsiexpress/rcsm/internal/config"
	"github.com/scsiexpress/rcsm/internal/events"
	"github.com/scsiexpress/rcsm/internal/ffmpeg"
	"github.com/scsiexpress/rcsm/internal/mediamtx"
	"github.com/scsiexpress/rcsm/internal/platform"
	"github.com/scsiexpress/rcsm/internal/process"
)

// fakeServices records service manager calls.
type fakeServices struct {
	mu       sync.Mutex
	calls    []string
	active   bool
	startErr error
	logs     string
}

func (f *fakeServices) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeServices) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeServices) StartService(_ context.Context, _ string) error {
	f.record("start")
	return f.startErr
}

func (f *fakeServices) StopService(_ context.Context, _ string) error {
	f.record("stop")
	return nil
}

func (f *fakeServices) IsActive(_ context.Context, _ string) (bool, error) {
	f.record("is-active")
	return f.active, nil
}

func (f *fakeServices) RecentLogs(_ context.Context, _ string) string {
	f.record("logs")
	return f.logs
}

func (f *fakeServices) Close() {}

type fakeProber struct{ version string }

func (f fakeProber) MediaMTXVersion(context.Context) string { return f.version }

type rejectAll struct{}

func (rejectAll) Validate(context.Context, *mediamtx.Config) bool { return false }

type acceptAll struct{}

func (acceptAll) Validate(context.Context, *mediamtx.Config) bool { return true }

// fakeTranscoder satisfies the transcoder interface without a real process.
type fakeTranscoder struct {
	mu         sync.Mutex
	done       chan struct{}
	code       int
	exited     bool
	terminated bool
}

func newFakeTranscoder() *fakeTranscoder {
	return &fakeTranscoder{done: make(chan struct{})}
}

func (f *fakeTranscoder) Done() <-chan struct{} { return f.done }

func (f *fakeTranscoder) Running() bool {
	select {
	case <-f.done:
		return false
	default:
		return true
	}
}

func (f *fakeTranscoder) ExitCode() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code, f.exited
}

func (f *fakeTranscoder) Terminate() int {
	f.mu.Lock()
	f.terminated = true
	f.mu.Unlock()
	f.exit(130)
	return 130
}

func (f *fakeTranscoder) PID() int { return 4242 }

func (f *fakeTranscoder) exit(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exited {
		return
	}
	f.code, f.exited = code, true
	close(f.done)
}

func (f *fakeTranscoder) wasTerminated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.terminated
}

// errTransport fails every HTTP request so the HLS probe stays local.
type errTransport struct{}

func (errTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("no media server in tests")
}

type harness struct {
	session  *Session
	services *fakeServices
	spawned  []*fakeTranscoder
	spawnErr error
	mu       sync.Mutex
}

func newHarness(t *testing.T, services *fakeServices, version string) *harness {
	t.Helper()
	h := &harness{services: services}

	s := New(Deps{
		Services:    services,
		Synth:       mediamtx.NewSynthesizer(acceptAll{}),
		Prober:      fakeProber{version: version},
		Bus:         events.New(),
		Platform:    platform.KindRadxa,
		ServiceName: mediamtx.ServiceName,
		ConfigPath:  filepath.Join(t.TempDir(), "mediamtx.yml"),
		BinaryPath:  mediamtx.DefaultBinaryPath,
		Retry:       RetryPolicy{Attempts: 3, Interval: time.Millisecond},
	})
	s.sleep = func(time.Duration) {}
	s.processAlive = func(context.Context) bool { return true }
	s.portListening = func(context.Context, int) bool { return true }
	s.httpClient = &http.Client{Transport: errTransport{}}
	s.spawn = func(id string, pipeline []ffmpeg.Command, opts ...process.Option) (transcoder, error) {
		if h.spawnErr != nil {
			return nil, h.spawnErr
		}
		ft := newFakeTranscoder()
		h.mu.Lock()
		h.spawned = append(h.spawned, ft)
		h.mu.Unlock()
		return ft, nil
	}
	h.session = s
	return h
}

func (h *harness) spawnCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.spawned)
}

func validIntent() *config.StreamIntent {
	return &config.StreamIntent{
		Device:     "/dev/video0",
		Resolution: "1280x720",
		Framerate:  30,
		Bitrate:    2000,
		Encoder:    "libx264",
		SRTPort:    8888,
		StreamName: "live",
	}
}

func TestStartRejectsIncompleteIntent(t *testing.T) {
	services := &fakeServices{active: true}
	h := newHarness(t, services, "v1.9.3")

	_, err := h.session.Start(context.Background(), &config.StreamIntent{Device: "/dev/video0"})
	se, ok := AsSessionError(err)
	if !ok || se.Code != CodeInvalidParams {
		t.Fatalf("err = %v, want INVALID_PARAMS", err)
	}
	if se.HTTPStatus() != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", se.HTTPStatus())
	}
	if len(services.Calls()) != 0 {
		t.Errorf("validation failure touched the service manager: %v", services.Calls())
	}
	if h.session.State() != StateIdle {
		t.Errorf("state = %s, want idle", h.session.State())
	}
}

func TestStartRejectsMissingPortAndName(t *testing.T) {
	services := &fakeServices{active: true}
	h := newHarness(t, services, "v1.9.3")

	intent := validIntent()
	intent.SRTPort = 0
	intent.StreamName = ""

	_, err := h.session.Start(context.Background(), intent)
	se, ok := AsSessionError(err)
	if !ok || se.Code != CodeInvalidParams {
		t.Fatalf("err = %v, want INVALID_PARAMS", err)
	}
	for _, field := range []string{"srt_port", "stream_name"} {
		if !strings.Contains(se.Message, field) {
			t.Errorf("message %q missing field %s", se.Message, field)
		}
	}
	if len(services.Calls()) != 0 {
		t.Errorf("validation failure touched the service manager: %v", services.Calls())
	}
	if h.spawnCount() != 0 {
		t.Errorf("spawned %d transcoders for an invalid intent", h.spawnCount())
	}
	if h.session.State() != StateIdle {
		t.Errorf("state = %s, want idle", h.session.State())
	}
}

func TestStartHappyPath(t *testing.T) {
	h := newHarness(t, &fakeServices{active: true}, "v1.9.3")

	command, err := h.session.Start(context.Background(), validIntent())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(command, "ffmpeg") || !strings.Contains(command, "srt://127.0.0.1:8888?streamid=publish:live") {
		t.Errorf("command = %q", command)
	}
	if h.session.State() != StateTranscoderRunning {
		t.Errorf("state = %s, want transcoder_running", h.session.State())
	}
	if !h.session.TranscoderRunning() {
		t.Error("TranscoderRunning() = false")
	}

	calls := h.services.Calls()
	if len(calls) < 3 || calls[0] != "stop" || calls[1] != "start" || calls[2] != "is-active" {
		t.Errorf("service calls = %v", calls)
	}

	data, err := os.ReadFile(h.session.deps.ConfigPath)
	if err != nil {
		t.Fatalf("media server config not written: %v", err)
	}
	var cfg mediamtx.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.StreamName() != "live" || cfg.HLSSegmentCount != 2 {
		t.Errorf("written config = %+v", cfg)
	}

	h.session.Close()
}

func TestStartTerminatesPreviousTranscoder(t *testing.T) {
	h := newHarness(t, &fakeServices{active: true}, "v1.9.3")
	ctx := context.Background()

	if _, err := h.session.Start(ctx, validIntent()); err != nil {
		t.Fatal(err)
	}
	if _, err := h.session.Start(ctx, validIntent()); err != nil {
		t.Fatal(err)
	}

	if h.spawnCount() != 2 {
		t.Fatalf("spawned %d transcoders, want 2", h.spawnCount())
	}
	first, second := h.spawned[0], h.spawned[1]
	if !first.wasTerminated() {
		t.Error("first transcoder was not terminated before the second spawn")
	}
	if code, ok := first.ExitCode(); !ok || code != 130 {
		t.Errorf("first exit = (%d, %v), want collected status", code, ok)
	}
	if !second.Running() {
		t.Error("second transcoder should be running")
	}
	h.session.Close()
}

func TestReadinessTimeoutAbortsBeforeSpawn(t *testing.T) {
	services := &fakeServices{active: true, logs: "journal tail here"}
	h := newHarness(t, services, "v1.9.3")
	h.session.portListening = func(context.Context, int) bool { return false }

	_, err := h.session.Start(context.Background(), validIntent())
	se, ok := AsSessionError(err)
	if !ok || se.Code != CodeMediaMTXRestart {
		t.Fatalf("err = %v, want MEDIAMTX_RESTART_ERROR", err)
	}
	if se.Detail != "journal tail here" {
		t.Errorf("detail = %q, want captured journal tail", se.Detail)
	}
	if h.spawnCount() != 0 {
		t.Error("transcoder spawned against an unready media server")
	}
	if h.session.State() != StateMediaMTXFailed {
		t.Errorf("state = %s, want mediamtx_failed", h.session.State())
	}
}

func TestInactiveServiceAborts(t *testing.T) {
	services := &fakeServices{active: false, logs: "unit entered failed state"}
	h := newHarness(t, services, "v1.9.3")

	_, err := h.session.Start(context.Background(), validIntent())
	se, ok := AsSessionError(err)
	if !ok || se.Code != CodeMediaMTXRestart {
		t.Fatalf("err = %v, want MEDIAMTX_RESTART_ERROR", err)
	}
	if !strings.Contains(se.Detail, "failed state") {
		t.Errorf("detail = %q", se.Detail)
	}
	if h.spawnCount() != 0 {
		t.Error("transcoder spawned despite inactive service")
	}
}

func TestSpawnFailureSurfacesOwnErrorKind(t *testing.T) {
	h := newHarness(t, &fakeServices{active: true}, "v1.9.3")
	h.spawnErr = errors.New("executable not found")

	_, err := h.session.Start(context.Background(), validIntent())
	se, ok := AsSessionError(err)
	if !ok || se.Code != CodeTranscoderSpawn {
		t.Fatalf("err = %v, want TRANSCODER_SPAWN_ERROR", err)
	}
}

func TestTelemetryUpdatesAndClearsOnExit(t *testing.T) {
	h := newHarness(t, &fakeServices{active: true}, "v1.9.3")

	if _, err := h.session.Start(context.Background(), validIntent()); err != nil {
		t.Fatal(err)
	}

	h.session.handleTelemetryLine("live",
		"frame=100 fps=30 bitrate=2100.3kbits/s speed=1.01x")
	stats := h.session.Stats()
	if stats["bitrate"] != "2100.3kbits/s" || stats["speed"] != "1.01x" {
		t.Errorf("stats = %v", stats)
	}
	if len(stats) != 2 {
		t.Errorf("stats carries %d keys, want exactly bitrate and speed", len(stats))
	}

	// Transcoder dies on its own; the watcher clears everything.
	h.spawned[0].exit(1)
	waitFor(t, func() bool { return h.session.State() == StateIdle })
	if got := h.session.Stats(); len(got) != 0 {
		t.Errorf("stats after exit = %v, want empty", got)
	}
	if h.session.TranscoderRunning() {
		t.Error("handle still live after exit")
	}
	h.session.Close()
}

func TestStopClearsStatsAndReturnsToIdle(t *testing.T) {
	h := newHarness(t, &fakeServices{active: true}, "v1.9.3")

	if _, err := h.session.Start(context.Background(), validIntent()); err != nil {
		t.Fatal(err)
	}
	h.session.handleTelemetryLine("live", "bitrate=900.0kbits/s speed=0.99x")

	h.session.Stop()

	if h.session.State() != StateIdle {
		t.Errorf("state = %s, want idle", h.session.State())
	}
	if got := h.session.Stats(); len(got) != 0 {
		t.Errorf("stats after stop = %v", got)
	}
	if !h.spawned[0].wasTerminated() {
		t.Error("transcoder not terminated by stop")
	}
	h.session.Close()
}

func TestStopWithNothingRunningIsFine(t *testing.T) {
	h := newHarness(t, &fakeServices{active: true}, "")
	h.session.Stop()
	if h.session.State() != StateIdle {
		t.Errorf("state = %s", h.session.State())
	}
}

func TestConservativeConfigAndFallback(t *testing.T) {
	// Version probe fails and the config check rejects the tuned document:
	// the file on disk must be the minimal fallback.
	h := newHarness(t, &fakeServices{active: true}, "")
	h.session.deps.Synth = mediamtx.NewSynthesizer(rejectAll{})

	if _, err := h.session.Start(context.Background(), validIntent()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(h.session.deps.ConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, field := range []string{"hlsSegmentCount", "hlsSegmentDuration", "hlsVariant"} {
		if strings.Contains(text, field) {
			t.Errorf("fallback config on disk contains %s:\n%s", field, text)
		}
	}
	if !strings.Contains(text, "live") {
		t.Errorf("config missing stream path:\n%s", text)
	}
	h.session.Close()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
