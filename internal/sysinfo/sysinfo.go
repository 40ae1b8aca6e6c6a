// Package sysinfo reads board health figures from procfs and sysfs.
package sysinfo

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Stats is the health snapshot shown on the dashboard status panel.
type Stats struct {
	Temperature   string  `json:"temperature" doc:"SoC temperature, or N/A when the thermal zone is unreadable"`
	CPUPercent    float64 `json:"cpu_percent" doc:"Aggregate CPU usage percentage"`
	MemoryPercent float64 `json:"memory_percent" doc:"Memory usage percentage"`
}

// Collector reads system health from a procfs/sysfs root. The root is
// configurable so tests can point it at a fixture tree.
type Collector struct {
	procRoot string
	sysRoot  string
}

// NewCollector creates a collector reading the host's /proc and /sys.
func NewCollector() *Collector {
	return &Collector{procRoot: "/proc", sysRoot: "/sys"}
}

// Snapshot gathers all health figures. Individual read failures degrade to
// zero values or "N/A" rather than failing the snapshot.
func (c *Collector) Snapshot() Stats {
	return Stats{
		Temperature:   c.Temperature(),
		CPUPercent:    c.CPUPercent(),
		MemoryPercent: c.MemoryPercent(),
	}
}

// Temperature reads thermal_zone0 and formats it in degrees Celsius.
func (c *Collector) Temperature() string {
	data, err := os.ReadFile(filepath.Join(c.sysRoot, "class/thermal/thermal_zone0/temp"))
	if err != nil {
		return "N/A"
	}
	milli, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f°C", milli/1000)
}

// CPUPercent computes aggregate CPU usage from the cumulative counters in
// /proc/stat.
func (c *Collector) CPUPercent() float64 {
	file, err := os.Open(filepath.Join(c.procRoot, "stat"))
	if err != nil {
		return 0
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 8 {
			return 0
		}
		var total, idle float64
		for i, field := range fields[1:8] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return 0
			}
			total += v
			if i == 3 {
				idle = v
			}
		}
		if total == 0 {
			return 0
		}
		return (total - idle) / total * 100
	}
	return 0
}

// MemoryPercent computes used memory as MemTotal minus MemAvailable.
func (c *Collector) MemoryPercent() float64 {
	file, err := os.Open(filepath.Join(c.procRoot, "meminfo"))
	if err != nil {
		return 0
	}
	defer file.Close()

	var total, available float64
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}
		switch strings.TrimSuffix(fields[0], ":") {
		case "MemTotal":
			total = value
		case "MemAvailable":
			available = value
		}
	}
	if total == 0 {
		return 0
	}
	return (total - available) / total * 100
}
