package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scsiexpress/rcsm/cmd"
	"github.com/scsiexpress/rcsm/internal/api"
	"github.com/scsiexpress/rcsm/internal/config"
	"github.com/scsiexpress/rcsm/internal/events"
	"github.com/scsiexpress/rcsm/internal/logging"
	"github.com/scsiexpress/rcsm/internal/mediamtx"
	"github.com/scsiexpress/rcsm/internal/platform"
	"github.com/scsiexpress/rcsm/internal/probe"
	"github.com/scsiexpress/rcsm/internal/session"
	"github.com/scsiexpress/rcsm/internal/sysinfo"
	"github.com/scsiexpress/rcsm/internal/systemd"
)

// Options for the CLI, flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Host       string `help:"Address to bind" default:"0.0.0.0" toml:"server.host" env:"SERVER_HOST"`
	Port       int    `help:"Port to listen on" short:"p" default:"8000" toml:"server.port" env:"SERVER_PORT"`
	CORSOrigin string `help:"Allowed CORS origin" default:"*" toml:"server.cors_origin" env:"SERVER_CORS_ORIGIN"`

	// Stream settings
	StreamConfigFile string `help:"Persisted stream intent file" default:"stream.toml" toml:"stream.config_file" env:"STREAM_CONFIG_FILE"`

	// MediaMTX settings
	MediaMTXBinary string `help:"Path to the MediaMTX binary" default:"/opt/mediamtx/mediamtx" toml:"mediamtx.binary" env:"MEDIAMTX_BINARY"`
	MediaMTXConfig string `help:"Path to the MediaMTX config" default:"/opt/mediamtx/mediamtx.yml" toml:"mediamtx.config" env:"MEDIAMTX_CONFIG"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSession  string `help:"Stream session logging level" default:"info" toml:"logging.session" env:"LOGGING_SESSION"`
	LoggingProcess  string `help:"Process supervisor logging level" default:"info" toml:"logging.process" env:"LOGGING_PROCESS"`
	LoggingFFmpeg   string `help:"Transcoder output logging level" default:"info" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingProbe    string `help:"Capability prober logging level" default:"info" toml:"logging.probe" env:"LOGGING_PROBE"`
	LoggingAPI      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP     string `help:"HTTP access logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingMediaMTX string `help:"Config synthesizer logging level" default:"info" toml:"logging.mediamtx" env:"LOGGING_MEDIAMTX"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadOptions(opts, cli.Root()); loadErr != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"session":  opts.LoggingSession,
				"process":  opts.LoggingProcess,
				"ffmpeg":   opts.LoggingFFmpeg,
				"probe":    opts.LoggingProbe,
				"api":      opts.LoggingAPI,
				"http":     opts.LoggingHTTP,
				"mediamtx": opts.LoggingMediaMTX,
			},
		})

		logger := logging.GetLogger("main")
		kind := platform.Detect()
		logger.Info("Platform detected", "platform", kind)

		runner := probe.NewRunner()
		prober := probe.New(runner, kind, opts.MediaMTXBinary)
		validator := mediamtx.NewCheckValidator(runner, opts.MediaMTXBinary)
		synth := mediamtx.NewSynthesizer(validator)
		bus := events.New()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		services, err := systemd.NewManager(ctx, runner)
		cancel()
		if err != nil {
			logger.Error("Cannot connect to systemd, media server control unavailable", "error", err)
			os.Exit(1)
		}

		streamSession := session.New(session.Deps{
			Services:    services,
			Synth:       synth,
			Prober:      prober,
			Runner:      runner,
			Bus:         bus,
			Platform:    kind,
			ServiceName: mediamtx.ServiceName,
			ConfigPath:  opts.MediaMTXConfig,
			BinaryPath:  opts.MediaMTXBinary,
			Retry:       session.DefaultRetryPolicy,
			Delays:      session.DefaultDelays,
		})

		store := config.NewStore(opts.StreamConfigFile)
		watcher := config.NewWatcher(store, logging.GetLogger("config"))
		watcher.OnReload(func(intent *config.StreamIntent) {
			bus.Publish(events.ConfigReloadedEvent{
				Path:      store.Path(),
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
		})

		recovery := session.NewRecoveryLoader(store, streamSession)

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			CORSAllowOrigin:   opts.CORSOrigin,
			Controller:        streamSession,
			Prober:            prober,
			Store:             store,
			SysInfo:           sysinfo.NewCollector(),
			Platform:          kind,
			Bus:               bus,
			PrometheusHandler: promhttp.Handler(),
		})

		hooks.OnStart(func() {
			if watchErr := watcher.Start(); watchErr != nil {
				logger.Warn("Config watcher unavailable", "error", watchErr)
			}

			go recovery.Run(context.Background())

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			logger.Info("Starting HTTP server", "addr", addr)
			if startErr := server.Start(addr); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping config watcher", "error", stopErr)
			}

			// Stops the transcoder and joins the background goroutines.
			streamSession.Close()
			services.Close()
		})
	})

	cli.Root().Use = "rcsm"
	cli.Root().Short = "Stream manager for embedded video nodes"
	cli.Root().AddCommand(cmd.CreateDevicesCmd())
	cli.Root().AddCommand(cmd.CreateCheckConfigCmd())

	cli.Run()
}
