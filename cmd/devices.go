// Package cmd holds the auxiliary CLI subcommands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/scsiexpress/rcsm/internal/logging"
	"github.com/scsiexpress/rcsm/internal/mediamtx"
	"github.com/scsiexpress/rcsm/internal/platform"
	"github.com/scsiexpress/rcsm/internal/probe"
)

// CreateDevicesCmd creates the devices command, which probes capture devices
// and prints their capabilities without touching any running stream.
func CreateDevicesCmd() *cobra.Command {
	var showOptions bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List video capture devices",
		Long:  `Enumerates V4L2 and libcamera capture devices and optionally their supported formats, resolutions, and framerates.`,
		Run: func(_ *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			kind := platform.Detect()
			prober := probe.New(probe.NewRunner(), kind, mediamtx.DefaultBinaryPath)

			devices := prober.ListDevices(ctx)
			if len(devices) == 0 {
				fmt.Println("no capture devices found")
				return
			}

			for _, dev := range devices {
				fmt.Printf("%s\t%s\t(%s)\n", dev.Path, dev.Name, dev.Kind)
				if !showOptions {
					continue
				}
				caps, err := prober.Capabilities(ctx, dev.Path)
				if err != nil {
					fmt.Fprintf(os.Stderr, "  probe failed: %v\n", err)
					continue
				}
				fmt.Printf("  formats:     %v\n", caps.PixelFormats)
				fmt.Printf("  resolutions: %v\n", caps.Resolutions)
				fmt.Printf("  framerates:  %v\n", caps.Framerates)
			}
		},
	}

	cmd.Flags().BoolVarP(&showOptions, "options", "o", false, "Also probe formats, resolutions, and framerates per device")

	return cmd
}
