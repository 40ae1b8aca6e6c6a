// Package mediamtx generates and validates MediaMTX configuration documents.
package mediamtx

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default locations for the MediaMTX installation managed by this daemon.
const (
	DefaultBinaryPath = "/opt/mediamtx/mediamtx"
	DefaultConfigPath = "/opt/mediamtx/mediamtx.yml"
	ServiceName       = "mediamtx.service"
	HLSAddress        = ":8080"
	HLSPort           = 8080
)

// Config is the MediaMTX configuration document written before every stream
// start. The whole document is regenerated and overwrites the previous one;
// there is always exactly one path entry.
type Config struct {
	SRT        bool   `yaml:"srt"`
	SRTAddress string `yaml:"srtAddress"`

	HLS                bool   `yaml:"hls"`
	HLSAddress         string `yaml:"hlsAddress"`
	HLSEncryption      *bool  `yaml:"hlsEncryption,omitempty"`
	HLSAllowOrigin     string `yaml:"hlsAllowOrigin"`
	HLSVariant         string `yaml:"hlsVariant,omitempty"`
	HLSSegmentCount    int    `yaml:"hlsSegmentCount,omitempty"`
	HLSSegmentDuration string `yaml:"hlsSegmentDuration,omitempty"`

	Paths map[string]PathConfig `yaml:"paths"`
}

// PathConfig configures a single MediaMTX path.
type PathConfig struct {
	Source         string `yaml:"source"`
	SourceOnDemand *bool  `yaml:"sourceOnDemand,omitempty"`
}

// WriteToFile serializes the configuration to a YAML file, overwriting any
// previous content.
func (c *Config) WriteToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// StreamName returns the single configured path name, or "" when the
// document has no paths.
func (c *Config) StreamName() string {
	for name := range c.Paths {
		return name
	}
	return ""
}
