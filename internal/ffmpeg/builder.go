package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/scsiexpress/rcsm/internal/platform"
)

// Command is one executable plus its arguments. A pipeline of more than one
// command pipes each stdout into the next stdin.
type Command struct {
	Path string
	Args []string
}

// String renders the command for logging.
func (c Command) String() string {
	return c.Path + " " + strings.Join(c.Args, " ")
}

// BuildPipeline constructs the transcoder pipeline for the given parameters.
// Camera subsystem sources produce a two-stage pipeline (capture tool piped
// into ffmpeg); V4L2 sources produce a single ffmpeg command reading the
// device node directly.
func BuildPipeline(p *Params) ([]Command, error) {
	width, height, err := p.Geometry()
	if err != nil {
		return nil, err
	}
	if p.Framerate <= 0 {
		return nil, fmt.Errorf("invalid framerate %d", p.Framerate)
	}
	if p.BitrateKbps <= 0 {
		return nil, fmt.Errorf("invalid bitrate %d", p.BitrateKbps)
	}

	encoder := platform.ResolveEncoder(p.Platform, p.Encoder)

	if p.IsLibcamera() {
		capture := Command{
			Path: "libcamera-vid",
			Args: []string{
				"--codec", "yuv420",
				"--width", width,
				"--height", height,
				"--framerate", strconv.Itoa(p.Framerate),
				"--timeout", "0",
				"--inline",
				"--listen",
				"-o", "-",
			},
		}
		transcode := Command{
			Path: "ffmpeg",
			Args: append([]string{
				"-f", "rawvideo",
				"-pix_fmt", "yuv420p",
				"-s", width + "x" + height,
				"-framerate", strconv.Itoa(p.Framerate),
				"-i", "-",
			}, encoderArgs(p, encoder, false)...),
		}
		return []Command{capture, transcode}, nil
	}

	args := []string{"-f", "v4l2"}
	// MJPEG input is detected by ffmpeg on its own; every other format gets
	// an explicit -input_format token.
	if !strings.EqualFold(p.PixelFormat, "MJPG") {
		args = append(args, "-input_format", InputFormat(p.PixelFormat))
	}
	args = append(args,
		"-video_size", width+"x"+height,
		"-framerate", strconv.Itoa(p.Framerate),
		"-i", p.DevicePath,
	)
	args = append(args, encoderArgs(p, encoder, true)...)
	return []Command{{Path: "ffmpeg", Args: args}}, nil
}

// encoderArgs builds the shared encode and mux tail. forceKeyframes adds the
// scene-cut suppression flags used on the V4L2 path.
func encoderArgs(p *Params, encoder string, forceKeyframes bool) []string {
	args := []string{
		"-c:v", encoder,
		"-b:v", fmt.Sprintf("%dk", p.BitrateKbps),
		"-g", strconv.Itoa(p.Framerate),
		"-keyint_min", strconv.Itoa(p.Framerate),
	}
	if forceKeyframes {
		args = append(args,
			"-sc_threshold", "0",
			"-force_key_frames", "expr:gte(t,n_forced*1)",
		)
	}
	args = append(args,
		"-preset", "ultrafast",
		"-tune", "zerolatency",
		"-bufsize", fmt.Sprintf("%dk", p.BitrateKbps*2),
		"-maxrate", fmt.Sprintf("%dk", int(float64(p.BitrateKbps)*1.2)),
		"-f", "mpegts",
		p.OutputURL(),
	)
	return args
}
