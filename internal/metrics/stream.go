// Package metrics exposes Prometheus gauges for the active stream session.
package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	streamBitrate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "rcsm",
		Subsystem: "stream",
		Name:      "bitrate_kbits",
		Help:      "Current transcoder output bitrate in kbit/s",
	}, []string{"stream"})

	streamSpeed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "rcsm",
		Subsystem: "stream",
		Name:      "encode_speed",
		Help:      "Transcoder encode speed multiplier (1.0 = realtime)",
	}, []string{"stream"})

	sessionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "rcsm",
		Subsystem: "session",
		Name:      "state",
		Help:      "Supervisor state (1 for the current state, 0 otherwise)",
	}, []string{"state"})
)

// SetTelemetry records transcoder progress figures as reported on stderr,
// e.g. bitrate "2100.3kbits/s" and speed "1.01x". Unparseable values are
// skipped.
func SetTelemetry(stream, bitrate, speed string) {
	if v, ok := parseBitrate(bitrate); ok {
		streamBitrate.WithLabelValues(stream).Set(v)
	}
	if v, ok := parseSpeed(speed); ok {
		streamSpeed.WithLabelValues(stream).Set(v)
	}
}

// DeleteStream removes all gauges for a stream once its transcoder exits.
func DeleteStream(stream string) {
	streamBitrate.DeleteLabelValues(stream)
	streamSpeed.DeleteLabelValues(stream)
}

// SetSessionState marks state as the current supervisor state and clears all
// others.
func SetSessionState(state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1.0
		}
		sessionState.WithLabelValues(s).Set(v)
	}
}

func parseBitrate(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "kbits/s")
	if s == "" || s == "N/A" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseSpeed(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "x")
	if s == "" || s == "N/A" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
