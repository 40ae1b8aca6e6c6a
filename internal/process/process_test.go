package process

import (
	"sync"
	"testing"
	"time"

	"github.com/scsiexpress/rcsm/internal/ffmpeg"
)

func waitDone(t *testing.T, p *Handle) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit in time")
	}
}

func TestSpawnCollectsStderrLines(t *testing.T) {
	var mu sync.Mutex
	var lines []string

	p, err := Spawn("test", []ffmpeg.Command{
		{Path: "sh", Args: []string{"-c", "echo one >&2; echo two >&2"}},
	}, WithLineHandler(func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	}))
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, p)

	code, ok := p.ExitCode()
	if !ok || code != 0 {
		t.Errorf("exit = (%d, %v), want (0, true)", code, ok)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Errorf("lines = %v", lines)
	}
}

func TestSpawnPipelineConnectsStages(t *testing.T) {
	var mu sync.Mutex
	var lines []string

	// Stage one writes to stdout, stage two copies its stdin to stderr
	// where the handler picks it up.
	p, err := Spawn("test", []ffmpeg.Command{
		{Path: "sh", Args: []string{"-c", "echo piped"}},
		{Path: "sh", Args: []string{"-c", "cat >&2"}},
	}, WithLineHandler(func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	}))
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, p)

	mu.Lock()
	defer mu.Unlock()
	if len(lines) != 1 || lines[0] != "piped" {
		t.Errorf("lines = %v, want [piped]", lines)
	}
}

func TestSpawnFailsOnMissingBinary(t *testing.T) {
	_, err := Spawn("test", []ffmpeg.Command{
		{Path: "/nonexistent/transcoder-binary", Args: nil},
	})
	if err == nil {
		t.Fatal("expected spawn error")
	}
}

func TestTerminateStopsRunningProcess(t *testing.T) {
	p, err := Spawn("test", []ffmpeg.Command{
		{Path: "sleep", Args: []string{"60"}},
	}, WithGracefulTimeout(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if !p.Running() {
		t.Fatal("process should be running")
	}

	start := time.Now()
	p.Terminate()
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Errorf("terminate took %v", elapsed)
	}
	if p.Running() {
		t.Error("process still running after Terminate")
	}
	if _, ok := p.ExitCode(); !ok {
		t.Error("exit code not collected after Terminate")
	}
}

func TestExitCodePropagated(t *testing.T) {
	p, err := Spawn("test", []ffmpeg.Command{
		{Path: "sh", Args: []string{"-c", "exit 3"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, p)
	if code, _ := p.ExitCode(); code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
}
