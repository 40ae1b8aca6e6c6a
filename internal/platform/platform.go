// Package platform detects which single-board computer the daemon runs on
// and maps platform-specific encoder names.
package platform

import (
	"os"
	"strings"
	"sync"
)

// Kind identifies the detected hardware platform.
type Kind string

const (
	// KindRadxa is a Rockchip-based board with the rkmpp encoder stack.
	KindRadxa Kind = "radxa"
	// KindRaspberryPi is a Broadcom-based board with the v4l2m2m encoder.
	KindRaspberryPi Kind = "raspberry_pi"
	// KindUnknown means software encoding only.
	KindUnknown Kind = "unknown"
)

var (
	detectOnce sync.Once
	detected   Kind
)

// Detect returns the platform kind, probing /proc/cpuinfo and known device
// nodes on first call. The result is cached for the process lifetime.
func Detect() Kind {
	detectOnce.Do(func() {
		detected = detect("/proc/cpuinfo")
	})
	return detected
}

func detect(cpuinfoPath string) Kind {
	if data, err := os.ReadFile(cpuinfoPath); err == nil {
		cpuinfo := strings.ToLower(string(data))
		if strings.Contains(cpuinfo, "rockchip") || strings.Contains(cpuinfo, "rk3566") {
			return KindRadxa
		}
		if strings.Contains(cpuinfo, "raspberry pi") || strings.Contains(cpuinfo, "bcm") {
			return KindRaspberryPi
		}
	}

	// cpuinfo was inconclusive, check hardware-specific device nodes
	if pathExists("/dev/rga") || pathExists("/dev/mpp_service") {
		return KindRadxa
	}
	if pathExists("/dev/vchiq") || pathExists("/opt/vc/bin/vcgencmd") {
		return KindRaspberryPi
	}

	return KindUnknown
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SupportedEncoders lists the encoder names offered by a platform.
func SupportedEncoders(kind Kind) []string {
	switch kind {
	case KindRadxa:
		return []string{"h264_rkmpp", "h264_rkmpp_encoder", "libx264"}
	case KindRaspberryPi:
		return []string{"h264_v4l2m2m", "libx264"}
	default:
		return []string{"libx264", "libx265"}
	}
}

// HardwareAccelerated reports whether the platform has a hardware encoder.
func HardwareAccelerated(kind Kind) bool {
	return kind == KindRadxa || kind == KindRaspberryPi
}

// ResolveEncoder maps encoder aliases that belong to a different platform's
// accelerator onto the local hardware encoder. On a Raspberry Pi a request
// for the Rockchip encoder is served by h264_v4l2m2m.
func ResolveEncoder(kind Kind, encoder string) string {
	if kind == KindRaspberryPi {
		switch encoder {
		case "h264_rkmpp", "h264_rkmpp_encoder":
			return "h264_v4l2m2m"
		}
	}
	return encoder
}
