package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/scsiexpress/rcsm/internal/api/models"
)

// registerConfigRoutes registers the persisted stream config endpoints. The
// saved intent drives boot-time recovery when auto_start is set.
func (s *Server) registerConfigRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-config",
		Method:      http.MethodGet,
		Path:        "/api/config",
		Summary:     "Get Saved Config",
		Tags:        []string{"config"},
		Errors:      []int{401, 404, 500},
		Security:    s.withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.ConfigResponse, error) {
		if !s.store.Exists() {
			return nil, huma.Error404NotFound("no saved configuration")
		}
		intent, err := s.store.Load()
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to read saved configuration", err)
		}
		return &models.ConfigResponse{
			Body: models.ConfigData{Exists: true, Intent: intent},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "save-config",
		Method:      http.MethodPost,
		Path:        "/api/config",
		Summary:     "Save Config",
		Description: "Persist a stream intent; with auto_start set it is restored at boot",
		Tags:        []string{"config"},
		Errors:      []int{400, 401, 500},
		Security:    s.withAuth(),
	}, func(ctx context.Context, input *models.ConfigSaveRequest) (*models.ConfigSaveResponse, error) {
		intent := input.Body
		intent.ApplyDefaults()
		if err := intent.Validate(); err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		if err := s.store.Save(&intent); err != nil {
			return nil, huma.Error500InternalServerError("failed to write configuration", err)
		}
		return &models.ConfigSaveResponse{
			Body: models.ConfigSaveData{Status: "saved"},
		}, nil
	})
}
