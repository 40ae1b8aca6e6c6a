package ffmpeg

import (
	"regexp"
	"strings"
)

// ffmpeg prints progress on stderr as "frame= 123 fps= 30 ... bitrate=2100.3kbits/s speed=1.01x".
var (
	bitrateRe = regexp.MustCompile(`bitrate=\s*(\S+)`)
	speedRe   = regexp.MustCompile(`speed=\s*(\S+)`)
)

// Stats keys reported to the dashboard.
const (
	StatBitrate = "bitrate"
	StatSpeed   = "speed"
)

// ExtractStats pulls bitrate and speed markers out of a single ffmpeg stderr
// line. It returns nil when the line carries neither marker.
func ExtractStats(line string) map[string]string {
	var stats map[string]string
	if m := bitrateRe.FindStringSubmatch(line); m != nil {
		stats = map[string]string{StatBitrate: m[1]}
	}
	if m := speedRe.FindStringSubmatch(line); m != nil {
		if stats == nil {
			stats = map[string]string{}
		}
		stats[StatSpeed] = m[1]
	}
	return stats
}

// ParseLogLevel extracts the log level from an ffmpeg output line. Lines look
// like "[error] message" or "[mjpeg @ 0x...] [warning] message"; the level
// tag is stripped but any component prefix is preserved.
func ParseLogLevel(line string) (level, msg string) {
	if len(line) < 3 || line[0] != '[' {
		return "info", line
	}

	end := strings.Index(line, "] ")
	if end == -1 {
		return "info", line
	}

	bracket := line[1:end]
	if isLogLevel(bracket) {
		return bracket, line[end+2:]
	}

	component := line[:end+2]
	rest := line[end+2:]
	if len(rest) > 2 && rest[0] == '[' {
		if nextEnd := strings.Index(rest, "] "); nextEnd != -1 {
			if isLogLevel(rest[1:nextEnd]) {
				return rest[1:nextEnd], component + rest[nextEnd+2:]
			}
		}
	}

	return "info", line
}

func isLogLevel(s string) bool {
	switch s {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace":
		return true
	}
	return false
}
