// Package api exposes the stream control surface over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/scsiexpress/rcsm/internal/api/models"
	"github.com/scsiexpress/rcsm/internal/config"
	"github.com/scsiexpress/rcsm/internal/events"
	"github.com/scsiexpress/rcsm/internal/logging"
	"github.com/scsiexpress/rcsm/internal/platform"
	"github.com/scsiexpress/rcsm/internal/probe"
	"github.com/scsiexpress/rcsm/internal/session"
	"github.com/scsiexpress/rcsm/internal/sysinfo"
	"github.com/scsiexpress/rcsm/internal/version"
	"github.com/scsiexpress/rcsm/ui"
)

// StreamController is the slice of the stream session the API drives.
type StreamController interface {
	Start(ctx context.Context, intent *config.StreamIntent) (string, error)
	Stop()
	State() session.State
	Stats() map[string]string
	TranscoderRunning() bool
	MediaServerRunning(ctx context.Context) bool
}

// DeviceProber is the slice of the capability prober the API reads from.
type DeviceProber interface {
	ListDevices(ctx context.Context) []probe.Device
	Capabilities(ctx context.Context, devicePath string) (*probe.Capabilities, error)
}

// Options configures the API server and its collaborators.
type Options struct {
	AuthUsername string
	AuthPassword string

	// CORSAllowOrigin defaults to "*".
	CORSAllowOrigin string

	Controller StreamController
	Prober     DeviceProber
	Store      *config.Store
	SysInfo    *sysinfo.Collector
	Platform   platform.Kind
	Bus        *events.Bus

	// PrometheusHandler serves GET /metrics when set.
	PrometheusHandler http.Handler

	// HLSBaseURL overrides the local media server playlist origin.
	HLSBaseURL string
}

// Server hosts the huma API plus the embedded dashboard.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    *Options
	logger     *slog.Logger

	controller StreamController
	prober     DeviceProber
	store      *config.Store
	sysinfo    *sysinfo.Collector
	bus        *events.Bus

	// hlsClient fetches playlists from the media server; replaced in tests.
	hlsClient *http.Client

	// lookPath reports whether a binary is installed; replaced in tests.
	lookPath func(name string) bool
}

// NewServer wires middleware, routes, metrics, and the UI fallback.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsOrigin := opts.CORSAllowOrigin
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	registerPreflight(mux, corsOrigin)

	humaConfig := huma.DefaultConfig("rcsm API", version.String())
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, humaConfig)
	api.UseMiddleware(corsMiddleware(corsOrigin))
	api.UseMiddleware(HTTPLoggingMiddleware)

	server := &Server{
		api:        api,
		mux:        mux,
		options:    opts,
		logger:     logging.GetLogger("api"),
		controller: opts.Controller,
		prober:     opts.Prober,
		store:      opts.Store,
		sysinfo:    opts.SysInfo,
		bus:        opts.Bus,
		hlsClient:  &http.Client{Timeout: 5 * time.Second},
		lookPath:   binaryInstalled,
	}

	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()

	if uiHandler, err := ui.Handler(); err == nil {
		mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api") {
				http.NotFound(w, r)
				return
			}
			uiHandler.ServeHTTP(w, r)
		}))
	} else {
		server.logger.Warn("UI assets unavailable", "error", err)
	}

	return server
}

// withAuth returns the security requirement applied to protected routes, or
// none when credentials are not configured.
func (s *Server) withAuth() []map[string][]string {
	if s.options.AuthUsername == "" || s.options.AuthPassword == "" {
		return nil
	}
	return []map[string][]string{{"basicAuth": {}}}
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health Check",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{Status: "ok", Message: "API is healthy"},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Build and runtime version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		return &models.VersionResponse{Body: version.Get()}, nil
	})

	s.registerStatusRoutes()
	s.registerDeviceRoutes()
	s.registerStreamRoutes()
	s.registerConfigRoutes()
	s.registerLogRoutes()
	s.registerEventRoutes()
}

// Start begins serving on the given address. Blocks until the server exits.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("HTTP server listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down, allowing in-flight requests to finish.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// basicAuthMiddleware enforces HTTP basic auth on routes carrying a security
// requirement. Routes registered with an empty security list stay open.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		user, pass, ok := parseBasicAuth(ctx.Header("Authorization"))
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(password)) != 1 {
			ctx.SetHeader("WWW-Authenticate", `Basic realm="rcsm"`)
			_ = huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "authentication required")
			return
		}
		next(ctx)
	}
}

func parseBasicAuth(header string) (string, string, bool) {
	r := &http.Request{Header: http.Header{"Authorization": {header}}}
	return r.BasicAuth()
}

// mapSessionError converts stream session failures into huma status errors,
// keeping the machine-readable code in front of the message.
func mapSessionError(err error) error {
	se, ok := session.AsSessionError(err)
	if !ok {
		return huma.Error500InternalServerError(err.Error())
	}
	msg := fmt.Sprintf("%s: %s", se.Code, se.Message)
	if se.Detail != "" {
		return huma.NewError(se.HTTPStatus(), msg, &huma.ErrorDetail{
			Message:  se.Detail,
			Location: "detail",
		})
	}
	return huma.NewError(se.HTTPStatus(), msg)
}
