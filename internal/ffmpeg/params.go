// Package ffmpeg builds transcoder command lines and parses ffmpeg output.
package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/scsiexpress/rcsm/internal/platform"
)

// Params describes one transcoder invocation with strongly typed fields.
type Params struct {
	// Input configuration
	DevicePath  string // /dev/video0 or libcamera:0
	PixelFormat string // semantic name: YUYV, MJPG, ...
	Resolution  string // 1920x1080
	Framerate   int

	// Encoder configuration
	Encoder     string // h264_rkmpp, h264_v4l2m2m, libx264, ...
	BitrateKbps int

	// Output
	StreamName string
	SRTPort    int

	// Platform selects encoder alias substitution.
	Platform platform.Kind
}

// OutputURL returns the SRT publish URL for the configured stream.
func (p *Params) OutputURL() string {
	return fmt.Sprintf("srt://127.0.0.1:%d?streamid=publish:%s", p.SRTPort, p.StreamName)
}

// IsLibcamera reports whether the input is a camera subsystem source rather
// than a V4L2 device node.
func (p *Params) IsLibcamera() bool {
	return strings.HasPrefix(p.DevicePath, "libcamera:")
}

// Geometry splits the resolution into width and height.
func (p *Params) Geometry() (width, height string, err error) {
	width, height, ok := strings.Cut(p.Resolution, "x")
	if !ok || width == "" || height == "" {
		return "", "", fmt.Errorf("invalid resolution %q", p.Resolution)
	}
	if _, err := strconv.Atoi(width); err != nil {
		return "", "", fmt.Errorf("invalid resolution %q", p.Resolution)
	}
	if _, err := strconv.Atoi(height); err != nil {
		return "", "", fmt.Errorf("invalid resolution %q", p.Resolution)
	}
	return width, height, nil
}

// pixelFormatMap translates semantic V4L2 pixel format names to ffmpeg
// -input_format tokens. Formats not in the map pass through lowercased.
var pixelFormatMap = map[string]string{
	"YUYV":   "yuyv422",
	"MJPG":   "mjpeg",
	"H264":   "h264",
	"RGB24":  "rgb24",
	"BGR24":  "bgr24",
	"YUV420": "yuv420p",
	"NV12":   "nv12",
}

// InputFormat returns the ffmpeg input format token for the semantic pixel
// format name.
func InputFormat(pixelFormat string) string {
	if mapped, ok := pixelFormatMap[strings.ToUpper(pixelFormat)]; ok {
		return mapped
	}
	return strings.ToLower(pixelFormat)
}
