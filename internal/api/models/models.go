// Package models defines the request and response bodies for the HTTP API.
package models

import (
	"github.com/scsiexpress/rcsm/internal/config"
	"github.com/scsiexpress/rcsm/internal/logging"
	"github.com/scsiexpress/rcsm/internal/probe"
	"github.com/scsiexpress/rcsm/internal/version"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// VersionResponse carries build metadata.
type VersionResponse struct {
	Body version.Info
}

// Runtime status models
type ServiceStatus struct {
	Status string `json:"status" example:"running" doc:"running or stopped"`
}

type TranscoderStatus struct {
	Status string            `json:"status" example:"running" doc:"running or stopped"`
	Stats  map[string]string `json:"stats" doc:"Live telemetry, keys bitrate and speed"`
}

type SystemStatus struct {
	Temperature   string  `json:"temperature" example:"45.2°C" doc:"SoC temperature"`
	CPUPercent    float64 `json:"cpu_percent" example:"23.5" doc:"Aggregate CPU usage"`
	MemoryPercent float64 `json:"memory_percent" example:"41.7" doc:"Memory usage"`
}

type StatusData struct {
	State      string           `json:"state" example:"transcoder_running" doc:"Supervisor state"`
	MediaMTX   ServiceStatus    `json:"mediamtx" doc:"Media server service state"`
	Transcoder TranscoderStatus `json:"transcoder" doc:"Transcoder process state"`
	System     SystemStatus     `json:"system" doc:"Host health readings"`
	Platform   string           `json:"platform" example:"radxa" doc:"Detected board platform"`
}

type StatusResponse struct {
	Body StatusData
}

// Device models
type DeviceListData struct {
	Devices []probe.Device `json:"devices" doc:"Discovered capture devices"`
	Count   int            `json:"count" example:"2" doc:"Number of devices"`
}

type DeviceListResponse struct {
	Body DeviceListData
}

type DeviceOptionsResponse struct {
	Body probe.Capabilities
}

// Stream lifecycle models
type StreamStartRequest struct {
	Body config.StreamIntent
}

type StreamStartData struct {
	Status  string `json:"status" example:"started" doc:"Outcome of the start request"`
	Command string `json:"command" doc:"Transcoder command line that was launched"`
}

type StreamStartResponse struct {
	Body StreamStartData
}

type StreamStopData struct {
	Status string `json:"status" example:"stopped" doc:"Outcome of the stop request"`
}

type StreamStopResponse struct {
	Body StreamStopData
}

type StreamStatsResponse struct {
	Body map[string]string
}

// HLS playlist probe models
type HLSProbeData struct {
	Available        bool    `json:"available" doc:"Whether the playlist responded"`
	StatusCode       int     `json:"status_code,omitempty" example:"200" doc:"Playlist HTTP status"`
	TargetDuration   float64 `json:"target_duration,omitempty" example:"1" doc:"EXT-X-TARGETDURATION value in seconds"`
	SegmentCount     int     `json:"segment_count" example:"2" doc:"Number of EXTINF entries"`
	EstimatedLatency float64 `json:"estimated_latency,omitempty" example:"2" doc:"Segment count times target duration, seconds"`
	LowLatency       bool    `json:"low_latency" doc:"Playlist carries LL-HLS partial segment markers"`
	Preview          string  `json:"preview,omitempty" doc:"Leading bytes of the playlist body"`
	Error            string  `json:"error,omitempty" doc:"Fetch failure reason when unavailable"`
}

type HLSProbeResponse struct {
	Body HLSProbeData
}

// Platform models
type PlatformData struct {
	Platform            string   `json:"platform" example:"raspberry_pi" doc:"Detected board platform"`
	Encoders            []string `json:"encoders" doc:"Encoders usable on this platform"`
	HardwareAccelerated bool     `json:"hardware_accelerated" doc:"Platform has a hardware H.264 encoder"`
	LibcameraAvailable  bool     `json:"libcamera_available" doc:"libcamera-vid is installed"`
}

type PlatformResponse struct {
	Body PlatformData
}

// Persisted config models
type ConfigData struct {
	Exists bool                 `json:"exists" doc:"Whether a persisted config is present"`
	Intent *config.StreamIntent `json:"intent,omitempty" doc:"Persisted stream intent"`
}

type ConfigResponse struct {
	Body ConfigData
}

type ConfigSaveRequest struct {
	Body config.StreamIntent
}

type ConfigSaveData struct {
	Status string `json:"status" example:"saved" doc:"Outcome of the save request"`
}

type ConfigSaveResponse struct {
	Body ConfigSaveData
}

// Log models
type LogsData struct {
	Entries []logging.LogEntry `json:"entries" doc:"Recent log entries, oldest first"`
	Count   int                `json:"count" example:"100" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}
