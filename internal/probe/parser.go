package probe

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	formatTokenRe = regexp.MustCompile(`'([^']+)'`)
	resolutionRe  = regexp.MustCompile(`(\d+)x(\d+)`)
	framerateRe   = regexp.MustCompile(`\(([0-9.]+)\s+fps\)`)
)

// formatPreference ranks common pixel formats for the dashboard dropdown.
// Formats not listed here keep their discovery order after the ranked ones.
var formatPreference = []string{"YUYV", "MJPG", "H264", "RGB24", "BGR24", "YUV420", "NV12"}

// ParseDeviceList parses `v4l2-ctl --list-devices` output. The tool prints a
// device name line followed by one or more indented /dev/video* path lines;
// only the first path of each block is kept.
func ParseDeviceList(output string) []Device {
	var devices []Device
	var currentName string

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/dev/video") {
			currentName = line
			continue
		}
		if currentName != "" {
			devices = append(devices, Device{
				Name: currentName,
				Path: line,
				Kind: DeviceKindV4L2,
			})
			currentName = ""
		}
	}
	return devices
}

// ParseFormats parses `v4l2-ctl --list-formats-ext` free text into ordered
// capability sets. Pixel formats are deduplicated and ranked by the fixed
// preference list, resolutions sorted descending by width, framerates sorted
// descending with exact values truncated to integers.
func ParseFormats(output string) *Capabilities {
	caps := &Capabilities{}
	seenFormats := make(map[string]bool)
	seenResolutions := make(map[string]bool)
	seenFramerates := make(map[float64]bool)

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "[") && strings.Contains(line, "]:"):
			if m := formatTokenRe.FindStringSubmatch(line); m != nil && !seenFormats[m[1]] {
				seenFormats[m[1]] = true
				caps.PixelFormats = append(caps.PixelFormats, m[1])
			}

		case strings.Contains(line, "Size: Discrete"):
			if m := resolutionRe.FindStringSubmatch(line); m != nil {
				res := m[1] + "x" + m[2]
				if !seenResolutions[res] {
					seenResolutions[res] = true
					caps.Resolutions = append(caps.Resolutions, res)
				}
			}

		case strings.Contains(line, "Interval: Discrete") && strings.Contains(line, "fps"):
			if m := framerateRe.FindStringSubmatch(line); m != nil {
				fps, err := strconv.ParseFloat(m[1], 64)
				if err != nil {
					continue
				}
				if !seenFramerates[fps] {
					seenFramerates[fps] = true
					caps.Framerates = append(caps.Framerates, fps)
				}
			}
		}
	}

	sortCapabilities(caps)
	return caps
}

// sortCapabilities applies the ordering contract described on ParseFormats.
func sortCapabilities(caps *Capabilities) {
	sort.SliceStable(caps.Resolutions, func(i, j int) bool {
		return resolutionWidth(caps.Resolutions[i]) > resolutionWidth(caps.Resolutions[j])
	})

	sort.Sort(sort.Reverse(sort.Float64Slice(caps.Framerates)))

	ranked := make([]string, 0, len(caps.PixelFormats))
	present := make(map[string]bool, len(caps.PixelFormats))
	for _, f := range caps.PixelFormats {
		present[f] = true
	}
	for _, f := range formatPreference {
		if present[f] {
			ranked = append(ranked, f)
			present[f] = false
		}
	}
	for _, f := range caps.PixelFormats {
		if present[f] {
			ranked = append(ranked, f)
			present[f] = false
		}
	}
	caps.PixelFormats = ranked
}

func resolutionWidth(res string) int {
	w, _, ok := strings.Cut(res, "x")
	if !ok {
		return 0
	}
	width, _ := strconv.Atoi(w)
	return width
}

// ParseLibcameraList extracts camera entries from `libcamera-hello
// --list-cameras` output. Sensor lines mention the sensor model (imx*, ov*)
// or the word camera.
func ParseLibcameraList(output string) []Device {
	if !strings.Contains(output, "Available cameras") {
		return nil
	}
	for _, line := range strings.Split(output, "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(line, ":") {
			continue
		}
		if strings.Contains(lower, "imx") || strings.Contains(lower, "ov") || strings.Contains(lower, "camera") {
			return []Device{{
				Name: "CSI Camera (" + strings.TrimSpace(line) + ")",
				Path: "libcamera:0",
				Kind: DeviceKindLibcamera,
			}}
		}
	}
	return nil
}
