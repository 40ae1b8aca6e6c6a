// Package events carries in-process notifications between the supervisor,
// the metrics exporter and the API layer.
package events

// Event type constants for kelindar/event.
const (
	TypeSessionStateChanged uint32 = iota + 1
	TypeTelemetry
	TypeConfigReloaded
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SessionStateChangedEvent fires on every supervisor state transition.
type SessionStateChangedEvent struct {
	State      string `json:"state" example:"transcoder_running" doc:"New supervisor state"`
	StreamName string `json:"stream_name,omitempty" example:"live" doc:"Active stream name, if any"`
	ErrorCode  string `json:"error_code,omitempty" example:"MEDIAMTX_RESTART_ERROR" doc:"Error code when the transition is a failure"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Transition timestamp"`
}

// Type returns the event type identifier for SessionStateChangedEvent.
func (e SessionStateChangedEvent) Type() uint32 { return TypeSessionStateChanged }

// TelemetryEvent fires whenever the transcoder reports fresh progress.
type TelemetryEvent struct {
	StreamName string `json:"stream_name" example:"live" doc:"Stream the telemetry belongs to"`
	Bitrate    string `json:"bitrate,omitempty" example:"2100.3kbits/s" doc:"Current encode bitrate"`
	Speed      string `json:"speed,omitempty" example:"1.01x" doc:"Current encode speed"`
}

// Type returns the event type identifier for TelemetryEvent.
func (e TelemetryEvent) Type() uint32 { return TypeTelemetry }

// ConfigReloadedEvent fires when the persisted stream config changes on disk.
type ConfigReloadedEvent struct {
	Path      string `json:"path" example:"stream.toml" doc:"Config file path"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Reload timestamp"`
}

// Type returns the event type identifier for ConfigReloadedEvent.
func (e ConfigReloadedEvent) Type() uint32 { return TypeConfigReloaded }
