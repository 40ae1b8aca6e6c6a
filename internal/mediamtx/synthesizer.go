package mediamtx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/scsiexpress/rcsm/internal/logging"
	"github.com/scsiexpress/rcsm/internal/probe"
)

// Validator checks whether a configuration document would be accepted by the
// MediaMTX binary before it is written to the live config path.
type Validator interface {
	Validate(ctx context.Context, cfg *Config) bool
}

// Synthesizer builds the MediaMTX configuration for a stream. It first tries
// a tuned low-latency document; if the installed binary rejects it, it falls
// back to a minimal document that any MediaMTX release accepts.
type Synthesizer struct {
	validator Validator
	logger    *slog.Logger
}

// NewSynthesizer creates a Synthesizer using the given validator.
func NewSynthesizer(validator Validator) *Synthesizer {
	return &Synthesizer{
		validator: validator,
		logger:    logging.GetLogger("mediamtx"),
	}
}

// Synthesize produces the configuration document for the given stream. The
// version string reported by the installed binary selects the segment tuning:
// a known version gets the aggressive 2x1s window, an unknown one gets a more
// conservative 3x2s window. When the tuned document fails validation the
// minimal fallback is returned instead; the fallback is never validated.
func (s *Synthesizer) Synthesize(ctx context.Context, streamName string, srtPort int, version string) *Config {
	cfg := s.preferred(streamName, srtPort, version)
	if s.validator.Validate(ctx, cfg) {
		return cfg
	}
	s.logger.Warn("generated config rejected by mediamtx, using minimal fallback",
		"stream", streamName, "version", version)
	return s.fallback(streamName, srtPort)
}

func (s *Synthesizer) preferred(streamName string, srtPort int, version string) *Config {
	segmentCount, segmentDuration := 3, "2s"
	if version != "" {
		segmentCount, segmentDuration = 2, "1s"
	}
	encryption := false
	onDemand := false
	return &Config{
		SRT:                true,
		SRTAddress:         fmt.Sprintf(":%d", srtPort),
		HLS:                true,
		HLSAddress:         HLSAddress,
		HLSEncryption:      &encryption,
		HLSAllowOrigin:     "*",
		HLSVariant:         "mpegts",
		HLSSegmentCount:    segmentCount,
		HLSSegmentDuration: segmentDuration,
		Paths: map[string]PathConfig{
			streamName: {Source: "publisher", SourceOnDemand: &onDemand},
		},
	}
}

func (s *Synthesizer) fallback(streamName string, srtPort int) *Config {
	return &Config{
		SRT:            true,
		SRTAddress:     fmt.Sprintf(":%d", srtPort),
		HLS:            true,
		HLSAddress:     HLSAddress,
		HLSAllowOrigin: "*",
		Paths: map[string]PathConfig{
			streamName: {Source: "publisher"},
		},
	}
}

// CheckValidator validates configs by writing them to a scratch file and
// running the MediaMTX binary with its --check flag.
type CheckValidator struct {
	runner     probe.Runner
	binPath    string
	scratchDir string
	logger     *slog.Logger
}

// NewCheckValidator creates a validator backed by the binary at binPath.
func NewCheckValidator(runner probe.Runner, binPath string) *CheckValidator {
	return &CheckValidator{
		runner:     runner,
		binPath:    binPath,
		scratchDir: os.TempDir(),
		logger:     logging.GetLogger("mediamtx"),
	}
}

// Validate writes cfg to a scratch file, asks the binary to check it and
// removes the scratch file again. Any failure along the way, including a
// missing binary, counts as rejection.
func (v *CheckValidator) Validate(ctx context.Context, cfg *Config) bool {
	scratch, err := os.CreateTemp(v.scratchDir, "mediamtx-check-*.yml")
	if err != nil {
		v.logger.Warn("cannot create scratch config", "error", err)
		return false
	}
	scratchPath := scratch.Name()
	scratch.Close()
	defer os.Remove(scratchPath)

	if err := cfg.WriteToFile(scratchPath); err != nil {
		v.logger.Warn("cannot write scratch config", "error", err)
		return false
	}

	output, err := v.runner.Run(ctx, v.binPath, "--conf", scratchPath, "--check")
	if err != nil {
		v.logger.Debug("config check failed",
			"binary", filepath.Base(v.binPath), "output", output, "error", err)
		return false
	}
	return true
}
