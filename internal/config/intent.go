// Package config loads daemon options and persists the stream intent.
package config

import (
	"fmt"
	"strings"
)

// StreamIntent is the user-supplied description of the stream to run. It is
// validated before any side effect and persisted alongside the auto-start
// flag.
type StreamIntent struct {
	Device      string `json:"device,omitempty" toml:"device" example:"/dev/video0" doc:"Video device node or libcamera:N URI"`
	PixelFormat string `json:"pixel_format,omitempty" toml:"pixel_format" example:"YUYV" doc:"Capture pixel format, defaults to YUYV"`
	Resolution  string `json:"resolution,omitempty" toml:"resolution" example:"1920x1080" doc:"Capture resolution WxH"`
	Framerate   int    `json:"framerate,omitempty" toml:"framerate" example:"30" doc:"Capture framerate"`
	Bitrate     int    `json:"bitrate,omitempty" toml:"bitrate" example:"4000" doc:"Encode bitrate in kbit/s"`
	Encoder     string `json:"encoder,omitempty" toml:"encoder" example:"h264_rkmpp" doc:"ffmpeg encoder name"`
	SRTPort     int    `json:"srt_port,omitempty" toml:"srt_port" example:"8888" doc:"Local SRT ingest port"`
	StreamName  string `json:"stream_name,omitempty" toml:"stream_name" example:"live" doc:"Stream path name"`
	AutoStart   bool   `json:"auto_start,omitempty" toml:"auto_start" doc:"Start this stream on boot"`
}

// ApplyDefaults fills the pixel format, the one field a request may omit.
// Every other field must be supplied explicitly; Validate rejects absence.
func (i *StreamIntent) ApplyDefaults() {
	if i.PixelFormat == "" {
		i.PixelFormat = "YUYV"
	}
}

// Validate checks that every required field is present. Pixel format is not
// required; it has a default.
func (i *StreamIntent) Validate() error {
	var missing []string
	if i.Device == "" {
		missing = append(missing, "device")
	}
	if i.Resolution == "" {
		missing = append(missing, "resolution")
	}
	if i.Framerate <= 0 {
		missing = append(missing, "framerate")
	}
	if i.Bitrate <= 0 {
		missing = append(missing, "bitrate")
	}
	if i.Encoder == "" {
		missing = append(missing, "encoder")
	}
	if i.SRTPort <= 0 {
		missing = append(missing, "srt_port")
	}
	if i.StreamName == "" {
		missing = append(missing, "stream_name")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required parameters: %s", strings.Join(missing, ", "))
	}
	return nil
}
