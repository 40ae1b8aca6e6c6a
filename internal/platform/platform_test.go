package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCpuinfo(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cpuinfo")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDetectFromCpuinfo(t *testing.T) {
	tests := []struct {
		name    string
		cpuinfo string
		want    Kind
	}{
		{"rockchip", "Hardware\t: Rockchip RK3566\n", KindRadxa},
		{"raspberry", "Model\t\t: Raspberry Pi Zero 2 W Rev 1.0\n", KindRaspberryPi},
		{"bcm", "Hardware\t: BCM2835\n", KindRaspberryPi},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detect(writeCpuinfo(t, tt.cpuinfo)); got != tt.want {
				t.Errorf("detect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveEncoder(t *testing.T) {
	if got := ResolveEncoder(KindRaspberryPi, "h264_rkmpp"); got != "h264_v4l2m2m" {
		t.Errorf("ResolveEncoder(pi, h264_rkmpp) = %q, want h264_v4l2m2m", got)
	}
	if got := ResolveEncoder(KindRaspberryPi, "libx264"); got != "libx264" {
		t.Errorf("ResolveEncoder(pi, libx264) = %q, want libx264", got)
	}
	if got := ResolveEncoder(KindRadxa, "h264_rkmpp"); got != "h264_rkmpp" {
		t.Errorf("ResolveEncoder(radxa, h264_rkmpp) = %q, want h264_rkmpp", got)
	}
}

func TestSupportedEncoders(t *testing.T) {
	if encoders := SupportedEncoders(KindUnknown); len(encoders) == 0 {
		t.Error("unknown platform should still offer software encoders")
	}
	if !HardwareAccelerated(KindRadxa) || HardwareAccelerated(KindUnknown) {
		t.Error("HardwareAccelerated mismatch")
	}
}
