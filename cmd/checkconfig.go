package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/scsiexpress/rcsm/internal/logging"
	"github.com/scsiexpress/rcsm/internal/mediamtx"
	"github.com/scsiexpress/rcsm/internal/platform"
	"github.com/scsiexpress/rcsm/internal/probe"
)

// CreateCheckConfigCmd creates the check-config command. It synthesizes the
// media server config the supervisor would write for a stream and prints it,
// after running it through the binary's own config check.
func CreateCheckConfigCmd() *cobra.Command {
	var streamName string
	var srtPort int
	var binPath string

	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Synthesize and validate a media server config",
		Long:  `Generates the MediaMTX configuration for a stream name and SRT port, validates it with the MediaMTX binary's --check flag when available, and prints the result to stdout.`,
		Run: func(_ *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			runner := probe.NewRunner()
			prober := probe.New(runner, platform.Detect(), binPath)
			validator := mediamtx.NewCheckValidator(runner, binPath)
			synth := mediamtx.NewSynthesizer(validator)

			version := prober.MediaMTXVersion(ctx)
			cfg := synth.Synthesize(ctx, streamName, srtPort, version)

			data, err := yaml.Marshal(cfg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "marshal failed: %v\n", err)
				os.Exit(1)
			}
			if version == "" {
				fmt.Fprintln(os.Stderr, "note: MediaMTX version unknown, using conservative segment settings")
			}
			os.Stdout.Write(data)
		},
	}

	cmd.Flags().StringVarP(&streamName, "stream", "s", "live", "Stream path name")
	cmd.Flags().IntVarP(&srtPort, "port", "p", 8888, "SRT ingest port")
	cmd.Flags().StringVarP(&binPath, "binary", "b", mediamtx.DefaultBinaryPath, "Path to the MediaMTX binary")

	return cmd
}
