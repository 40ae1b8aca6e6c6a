package api

import (
	"context"
	"net/http"
	"os/exec"

	"github.com/danielgtaylor/huma/v2"

	"github.com/scsiexpress/rcsm/internal/api/models"
	"github.com/scsiexpress/rcsm/internal/platform"
)

func serviceWord(running bool) string {
	if running {
		return "running"
	}
	return "stopped"
}

func binaryInstalled(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// registerStatusRoutes registers the runtime status and platform endpoints.
func (s *Server) registerStatusRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Runtime Status",
		Description: "Media server state, transcoder state, live telemetry, and host health",
		Tags:        []string{"status"},
		Errors:      []int{401},
		Security:    s.withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.StatusResponse, error) {
		sys := s.sysinfo.Snapshot()
		return &models.StatusResponse{
			Body: models.StatusData{
				State:    string(s.controller.State()),
				MediaMTX: models.ServiceStatus{Status: serviceWord(s.controller.MediaServerRunning(ctx))},
				Transcoder: models.TranscoderStatus{
					Status: serviceWord(s.controller.TranscoderRunning()),
					Stats:  s.controller.Stats(),
				},
				System: models.SystemStatus{
					Temperature:   sys.Temperature,
					CPUPercent:    sys.CPUPercent,
					MemoryPercent: sys.MemoryPercent,
				},
				Platform: string(s.options.Platform),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-platform",
		Method:      http.MethodGet,
		Path:        "/api/platform",
		Summary:     "Platform Info",
		Description: "Detected board, usable encoders, and capture stack availability",
		Tags:        []string{"status"},
		Errors:      []int{401},
		Security:    s.withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.PlatformResponse, error) {
		kind := s.options.Platform
		return &models.PlatformResponse{
			Body: models.PlatformData{
				Platform:            string(kind),
				Encoders:            platform.SupportedEncoders(kind),
				HardwareAccelerated: platform.HardwareAccelerated(kind),
				LibcameraAvailable:  s.lookPath("libcamera-vid"),
			},
		}, nil
	})
}
