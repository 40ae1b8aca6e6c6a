package api

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/scsiexpress/rcsm/internal/api/models"
	"github.com/scsiexpress/rcsm/internal/mediamtx"
)

// HLSProbeInput names the stream whose playlist to inspect.
type HLSProbeInput struct {
	Name string `path:"name" example:"live" doc:"Stream path name"`
}

const playlistPreviewLimit = 200

// registerStreamRoutes registers the stream lifecycle endpoints.
func (s *Server) registerStreamRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "start-stream",
		Method:      http.MethodPost,
		Path:        "/api/stream/start",
		Summary:     "Start Stream",
		Description: "Write the media server config, restart it, and launch the transcoder",
		Tags:        []string{"stream"},
		Errors:      []int{400, 401, 500},
		Security:    s.withAuth(),
	}, func(ctx context.Context, input *models.StreamStartRequest) (*models.StreamStartResponse, error) {
		intent := input.Body
		command, err := s.controller.Start(ctx, &intent)
		if err != nil {
			return nil, mapSessionError(err)
		}
		return &models.StreamStartResponse{
			Body: models.StreamStartData{Status: "started", Command: command},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-stream",
		Method:      http.MethodPost,
		Path:        "/api/stream/stop",
		Summary:     "Stop Stream",
		Description: "Terminate the transcoder process if one is running",
		Tags:        []string{"stream"},
		Errors:      []int{401},
		Security:    s.withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.StreamStopResponse, error) {
		s.controller.Stop()
		return &models.StreamStopResponse{
			Body: models.StreamStopData{Status: "stopped"},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-stream-stats",
		Method:      http.MethodGet,
		Path:        "/api/stream/stats",
		Summary:     "Stream Stats",
		Description: "Live bitrate and encode speed extracted from transcoder output",
		Tags:        []string{"stream"},
		Errors:      []int{401},
		Security:    s.withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.StreamStatsResponse, error) {
		return &models.StreamStatsResponse{Body: s.controller.Stats()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "probe-stream-hls",
		Method:      http.MethodGet,
		Path:        "/api/stream/hls/{name}",
		Summary:     "HLS Playlist Probe",
		Description: "Fetch the HLS playlist from the media server and report segment timing",
		Tags:        []string{"stream"},
		Errors:      []int{401},
		Security:    s.withAuth(),
	}, func(ctx context.Context, input *HLSProbeInput) (*models.HLSProbeResponse, error) {
		return &models.HLSProbeResponse{Body: s.probePlaylist(ctx, input.Name)}, nil
	})
}

func (s *Server) hlsBaseURL() string {
	if s.options.HLSBaseURL != "" {
		return s.options.HLSBaseURL
	}
	return fmt.Sprintf("http://localhost:%d", mediamtx.HLSPort)
}

// probePlaylist fetches <base>/<name>/index.m3u8 and summarizes what the
// media server is actually serving. Failures report as unavailable.
func (s *Server) probePlaylist(ctx context.Context, name string) models.HLSProbeData {
	url := fmt.Sprintf("%s/%s/index.m3u8", s.hlsBaseURL(), name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.HLSProbeData{Available: false, Error: err.Error()}
	}
	resp, err := s.hlsClient.Do(req)
	if err != nil {
		return models.HLSProbeData{Available: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return models.HLSProbeData{Available: false, StatusCode: resp.StatusCode, Error: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return models.HLSProbeData{
			Available:  false,
			StatusCode: resp.StatusCode,
			Error:      fmt.Sprintf("playlist returned status %d", resp.StatusCode),
		}
	}

	data := parsePlaylist(string(body))
	data.Available = true
	data.StatusCode = resp.StatusCode
	return data
}

// parsePlaylist extracts segment timing and LL-HLS markers from an M3U8 body.
func parsePlaylist(body string) models.HLSProbeData {
	data := models.HLSProbeData{}

	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "#EXT-X-TARGETDURATION:"):
			if v, err := strconv.ParseFloat(strings.TrimPrefix(line, "#EXT-X-TARGETDURATION:"), 64); err == nil {
				data.TargetDuration = v
			}
		case strings.HasPrefix(line, "#EXTINF:"):
			data.SegmentCount++
		case strings.HasPrefix(line, "#EXT-X-PART") || strings.HasPrefix(line, "#EXT-X-PRELOAD-HINT"):
			data.LowLatency = true
		}
	}

	if data.TargetDuration > 0 && data.SegmentCount > 0 {
		data.EstimatedLatency = data.TargetDuration * float64(data.SegmentCount)
	}

	if len(body) > playlistPreviewLimit {
		data.Preview = body[:playlistPreviewLimit]
	} else {
		data.Preview = body
	}
	return data
}
