package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/scsiexpress/rcsm/internal/api/models"
	"github.com/scsiexpress/rcsm/internal/logging"
)

// LogsInput bounds how many entries to return.
type LogsInput struct {
	Count int `query:"count" default:"100" minimum:"1" maximum:"500" doc:"Maximum entries to return"`
}

// registerLogRoutes registers the recent-logs endpoint backed by the in-memory
// ring buffer.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Tags:        []string{"logs"},
		Errors:      []int{401},
		Security:    s.withAuth(),
	}, func(ctx context.Context, input *LogsInput) (*models.LogsResponse, error) {
		count := input.Count
		if count <= 0 {
			count = 100
		}
		var entries []logging.LogEntry
		if buffer := logging.Buffer(); buffer != nil {
			entries = buffer.Tail(count)
		}
		return &models.LogsResponse{
			Body: models.LogsData{Entries: entries, Count: len(entries)},
		}, nil
	})
}
