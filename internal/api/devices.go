package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/scsiexpress/rcsm/internal/api/models"
	"github.com/scsiexpress/rcsm/internal/probe"
	"github.com/scsiexpress/rcsm/internal/session"
)

// DeviceOptionsInput captures the rest of the URL after the route prefix so
// device node paths with slashes survive routing.
type DeviceOptionsInput struct {
	DevicePath string `path:"device_path" example:"dev/video0" doc:"Device node path or libcamera:N URI"`
}

// normalizeDevicePath restores the leading slash the router consumed from
// device node paths. Camera subsystem URIs pass through untouched.
func normalizeDevicePath(p string) string {
	if probe.IsLibcameraPath(p) || strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}

// registerDeviceRoutes registers capture device discovery endpoints.
func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/video/devices",
		Summary:     "List Capture Devices",
		Description: "Enumerate V4L2 and libcamera capture devices",
		Tags:        []string{"devices"},
		Errors:      []int{401},
		Security:    s.withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.DeviceListResponse, error) {
		devices := s.prober.ListDevices(ctx)
		return &models.DeviceListResponse{
			Body: models.DeviceListData{Devices: devices, Count: len(devices)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-device-options",
		Method:      http.MethodGet,
		Path:        "/api/video/options/{device_path...}",
		Summary:     "Device Options",
		Description: "Pixel formats, resolutions, and framerates a device can produce",
		Tags:        []string{"devices"},
		Errors:      []int{401, 500},
		Security:    s.withAuth(),
	}, func(ctx context.Context, input *DeviceOptionsInput) (*models.DeviceOptionsResponse, error) {
		caps, err := s.prober.Capabilities(ctx, normalizeDevicePath(input.DevicePath))
		if err != nil {
			return nil, mapSessionError(&session.Error{
				Code:    session.CodeProbe,
				Message: "device probe failed",
				Detail:  err.Error(),
				Err:     err,
			})
		}
		return &models.DeviceOptionsResponse{Body: *caps}, nil
	})
}
