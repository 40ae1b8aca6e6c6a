package probe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/scsiexpress/rcsm/internal/logging"
	"github.com/scsiexpress/rcsm/internal/platform"
)

// DeviceKind identifies which capture backend serves a device.
type DeviceKind string

const (
	// DeviceKindV4L2 is a generic V4L2 device node such as /dev/video0.
	DeviceKindV4L2 DeviceKind = "v4l2"
	// DeviceKindLibcamera is a CSI camera addressed by logical index.
	DeviceKindLibcamera DeviceKind = "libcamera"
)

// Device describes a discovered capture device. Descriptors are created per
// probe call and never persisted.
type Device struct {
	Name string     `json:"name" doc:"Human-readable device name"`
	Path string     `json:"path" example:"/dev/video0" doc:"Device node path or libcamera index"`
	Kind DeviceKind `json:"type" example:"v4l2" doc:"Capture backend kind"`
}

// Capabilities lists what a capture device can produce, ordered for display.
type Capabilities struct {
	PixelFormats []string  `json:"pixel_formats" doc:"Pixel formats ranked by preference"`
	Resolutions  []string  `json:"resolutions" doc:"Resolutions sorted descending by width"`
	Framerates   []float64 `json:"framerates" doc:"Framerates sorted descending"`
}

// LibcameraPrefix marks camera subsystem URIs, as opposed to device nodes.
const LibcameraPrefix = "libcamera:"

// IsLibcameraPath reports whether a device path addresses the camera subsystem.
func IsLibcameraPath(path string) bool {
	return strings.HasPrefix(path, LibcameraPrefix)
}

// libcameraCapabilities is the fixed capability table for CSI cameras; the
// libcamera stack offers no per-mode negotiation we can query.
var libcameraCapabilities = Capabilities{
	PixelFormats: []string{"YUV420", "RGB24"},
	Resolutions:  []string{"1920x1080", "1640x1232", "1280x720", "640x480"},
	Framerates:   []float64{30, 25, 15, 10},
}

// Prober queries external tooling for devices and capabilities.
type Prober struct {
	runner      Runner
	platform    platform.Kind
	mediamtxBin string
	logger      *slog.Logger
}

// New creates a Prober. mediamtxBin is the path to the MediaMTX binary used
// for version probing.
func New(runner Runner, kind platform.Kind, mediamtxBin string) *Prober {
	return &Prober{
		runner:      runner,
		platform:    kind,
		mediamtxBin: mediamtxBin,
		logger:      logging.GetLogger("probe"),
	}
}

// ListDevices enumerates capture devices from the V4L2 subsystem and, on
// Raspberry Pi, the libcamera stack. Tool failures are logged and contribute
// no devices; the call itself never fails.
func (p *Prober) ListDevices(ctx context.Context) []Device {
	var devices []Device

	if p.platform == platform.KindRaspberryPi {
		out, err := p.runner.Run(ctx, "libcamera-hello", "--list-cameras")
		if err != nil {
			p.logger.Debug("libcamera not available", "error", err)
		} else {
			devices = append(devices, ParseLibcameraList(out)...)
		}
	}

	out, err := p.runner.Run(ctx, "v4l2-ctl", "--list-devices")
	if err != nil {
		p.logger.Error("failed to list V4L2 devices", "error", err)
		return devices
	}
	if out == "" {
		p.logger.Warn("v4l2-ctl --list-devices produced no output")
		return devices
	}

	return append(devices, ParseDeviceList(out)...)
}

// Capabilities returns the ordered capability sets for a device. Libcamera
// devices get the fixed built-in table.
func (p *Prober) Capabilities(ctx context.Context, devicePath string) (*Capabilities, error) {
	if IsLibcameraPath(devicePath) {
		caps := libcameraCapabilities
		return &caps, nil
	}

	out, err := p.runner.Run(ctx, "v4l2-ctl", "--device="+devicePath, "--list-formats-ext")
	if err != nil {
		p.logger.Error("failed to query device formats", "device", devicePath, "error", err)
		return nil, fmt.Errorf("query formats for %s: %w", devicePath, err)
	}
	if out == "" {
		return nil, fmt.Errorf("no format information available for %s", devicePath)
	}

	caps := ParseFormats(out)
	p.logger.Debug("parsed device capabilities",
		"device", devicePath,
		"formats", len(caps.PixelFormats),
		"resolutions", len(caps.Resolutions),
		"framerates", len(caps.Framerates))
	return caps, nil
}

// RawCapabilities returns the unparsed format listing for diagnostics.
func (p *Prober) RawCapabilities(ctx context.Context, devicePath string) string {
	if IsLibcameraPath(devicePath) {
		out, err := p.runner.Run(ctx, "libcamera-hello", "--list-cameras")
		if err != nil {
			return "libcamera device detected but no detailed capabilities available"
		}
		return out
	}
	out, err := p.runner.Run(ctx, "v4l2-ctl", "--device="+devicePath, "--list-formats-ext")
	if err != nil || out == "" {
		return "No format information available"
	}
	return out
}

// MediaMTXVersion probes the MediaMTX binary version. Returns an empty
// string when the probe fails; callers fall back to conservative HLS
// settings in that case.
func (p *Prober) MediaMTXVersion(ctx context.Context) string {
	out, err := p.runner.Run(ctx, p.mediamtxBin, "--version")
	if err != nil {
		p.logger.Warn("could not determine MediaMTX version", "error", err)
		return ""
	}
	p.logger.Info("MediaMTX version", "version", out)
	return out
}
