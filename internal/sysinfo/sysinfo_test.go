package sysinfo

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func fixtureCollector(t *testing.T) *Collector {
	t.Helper()
	root := t.TempDir()

	thermal := filepath.Join(root, "sys", "class", "thermal", "thermal_zone0")
	if err := os.MkdirAll(thermal, 0o755); err != nil {
		t.Fatal(err)
	}
	proc := filepath.Join(root, "proc")
	if err := os.MkdirAll(proc, 0o755); err != nil {
		t.Fatal(err)
	}

	files := map[string]string{
		filepath.Join(thermal, "temp"): "48550\n",
		filepath.Join(proc, "stat"): "cpu  400 0 100 450 50 0 0 0 0 0\n" +
			"cpu0 100 0 25 112 12 0 0 0 0 0\n",
		filepath.Join(proc, "meminfo"): "MemTotal:        8000000 kB\n" +
			"MemFree:         1000000 kB\n" +
			"MemAvailable:    2000000 kB\n",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	return &Collector{
		procRoot: proc,
		sysRoot:  filepath.Join(root, "sys"),
	}
}

func TestTemperature(t *testing.T) {
	c := fixtureCollector(t)
	if got := c.Temperature(); got != "48.55°C" {
		t.Errorf("Temperature() = %q, want 48.55°C", got)
	}
}

func TestTemperatureUnreadableIsNA(t *testing.T) {
	c := &Collector{procRoot: "/nonexistent", sysRoot: "/nonexistent"}
	if got := c.Temperature(); got != "N/A" {
		t.Errorf("Temperature() = %q, want N/A", got)
	}
}

func TestCPUPercent(t *testing.T) {
	c := fixtureCollector(t)
	// total=1000, idle=450
	if got := c.CPUPercent(); math.Abs(got-55.0) > 0.01 {
		t.Errorf("CPUPercent() = %v, want 55", got)
	}
}

func TestMemoryPercent(t *testing.T) {
	c := fixtureCollector(t)
	if got := c.MemoryPercent(); math.Abs(got-75.0) > 0.01 {
		t.Errorf("MemoryPercent() = %v, want 75", got)
	}
}

func TestUnreadableProcIsZero(t *testing.T) {
	c := &Collector{procRoot: "/nonexistent", sysRoot: "/nonexistent"}
	if got := c.CPUPercent(); got != 0 {
		t.Errorf("CPUPercent() = %v, want 0", got)
	}
	if got := c.MemoryPercent(); got != 0 {
		t.Errorf("MemoryPercent() = %v, want 0", got)
	}
}
