package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestIntentValidate(t *testing.T) {
	intent := &StreamIntent{
		Device:     "/dev/video0",
		Resolution: "1280x720",
		Framerate:  30,
		Bitrate:    2000,
		Encoder:    "libx264",
		SRTPort:    8888,
		StreamName: "live",
	}
	if err := intent.Validate(); err != nil {
		t.Errorf("complete intent rejected: %v", err)
	}

	incomplete := &StreamIntent{Device: "/dev/video0", Framerate: 30}
	err := incomplete.Validate()
	if err == nil {
		t.Fatal("incomplete intent accepted")
	}
	for _, field := range []string{"resolution", "bitrate", "encoder", "srt_port", "stream_name"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q missing field %s", err, field)
		}
	}
}

func TestIntentDefaults(t *testing.T) {
	intent := &StreamIntent{}
	intent.ApplyDefaults()
	if intent.PixelFormat != "YUYV" {
		t.Errorf("pixel format default = %q, want YUYV", intent.PixelFormat)
	}
	// Port and stream name have no defaults; omitting them is a
	// validation failure, not a silent fallback.
	if intent.SRTPort != 0 || intent.StreamName != "" {
		t.Errorf("unexpected defaults: %+v", intent)
	}
	err := intent.Validate()
	if err == nil {
		t.Fatal("defaulted empty intent accepted")
	}
	for _, field := range []string{"srt_port", "stream_name"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q missing field %s", err, field)
		}
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "stream.toml"))

	if store.Exists() {
		t.Fatal("store reports existing file before save")
	}
	if _, err := store.Load(); !os.IsNotExist(err) {
		t.Fatalf("Load on missing file = %v, want ErrNotExist", err)
	}

	saved := &StreamIntent{
		Device:     "/dev/video0",
		Resolution: "1920x1080",
		Framerate:  30,
		Bitrate:    4000,
		Encoder:    "h264_rkmpp",
		SRTPort:    8888,
		StreamName: "live",
		AutoStart:  true,
	}
	if err := store.Save(saved); err != nil {
		t.Fatal(err)
	}
	if !store.Exists() {
		t.Error("store missing after save")
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if *loaded != *saved {
		t.Errorf("loaded %+v, want %+v", loaded, saved)
	}
}

type testOptions struct {
	Config string
	Port   int    `toml:"server.port" env:"PORT"`
	Host   string `toml:"server.host" env:"HOST"`
	Debug  bool   `toml:"debug" env:"DEBUG"`
}

func TestLoadOptionsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rcsm.toml")
	content := "debug = true\n\n[server]\nport = 9000\nhost = \"0.0.0.0\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := testOptions{Config: path, Port: 8000}
	if err := LoadOptions(&opts, nil); err != nil {
		t.Fatal(err)
	}
	if opts.Port != 9000 || opts.Host != "0.0.0.0" || !opts.Debug {
		t.Errorf("opts = %+v", opts)
	}
}

func TestLoadOptionsEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rcsm.toml")
	if err := os.WriteFile(path, []byte("[server]\nport = 9000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RCSM_PORT", "9100")

	opts := testOptions{Config: path}
	if err := LoadOptions(&opts, nil); err != nil {
		t.Fatal(err)
	}
	if opts.Port != 9100 {
		t.Errorf("port = %d, want env override 9100", opts.Port)
	}
}

func TestLoadOptionsMissingFileKeepsDefaults(t *testing.T) {
	opts := testOptions{Config: "/nonexistent/rcsm.toml", Port: 8000}
	if err := LoadOptions(&opts, nil); err != nil {
		t.Fatal(err)
	}
	if opts.Port != 8000 {
		t.Errorf("port = %d, want default 8000", opts.Port)
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rcsm.toml")
	content := "[logging]\nlevel = \"debug\"\nformat = \"json\"\nsession = \"warn\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := LoadLoggingConfig(path)
	if cfg.Level != "debug" || cfg.Format != "json" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Modules["session"] != "warn" {
		t.Errorf("module levels = %v", cfg.Modules)
	}
}

func TestWatcherNotifiesOnChange(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "stream.toml"))

	w := NewWatcher(store, testLogger())
	w.debounce = 50 * time.Millisecond
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	reloaded := make(chan *StreamIntent, 1)
	w.OnReload(func(intent *StreamIntent) {
		select {
		case reloaded <- intent:
		default:
		}
	})

	intent := &StreamIntent{
		Device: "/dev/video0", Resolution: "1280x720", Framerate: 30,
		Bitrate: 2000, Encoder: "libx264", SRTPort: 8888, StreamName: "live",
	}
	if err := store.Save(intent); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-reloaded:
		if got.Device != "/dev/video0" {
			t.Errorf("reloaded intent = %+v", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not fire")
	}
}
