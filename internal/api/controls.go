package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dbsystel-hub/cameractl/internal/api/models"
)

// registerControlRoutes registers the camera control surface endpoints.
func (s *Server) registerControlRoutes() {
	// List controls
	huma.Register(s.api, huma.Operation{
		OperationID: "list-controls",
		Method:      http.MethodGet,
		Path:        "/api/controls",
		Summary:     "List Controls",
		Description: "Get the controls registered with the capture session and their current values",
		Tags:        []string{"controls"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.ControlListResponse, error) {
		controls := s.controller.Controls()
		return &models.ControlListResponse{
			Body: models.ControlListData{
				Controls: controls,
				Count:    len(controls),
			},
		}, nil
	})

	// Adjust a control
	huma.Register(s.api, huma.Operation{
		OperationID: "adjust-control",
		Method:      http.MethodPut,
		Path:        "/api/controls/{name}",
		Summary:     "Adjust Control",
		Description: "Set a slider value or select a picker option. Slider values are clamped to the control's range.",
		Tags:        []string{"controls"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404},
	}, func(ctx context.Context, input *models.ControlAdjustRequest) (*models.ControlResponse, error) {
		switch {
		case input.Body.Value != nil:
			if err := s.controller.AdjustControl(input.Name, *input.Body.Value); err != nil {
				return nil, huma.Error404NotFound("unknown control", err)
			}
		case input.Body.Index != nil:
			if err := s.controller.SelectControl(input.Name, *input.Body.Index); err != nil {
				return nil, huma.Error400BadRequest("cannot select option", err)
			}
		default:
			return nil, huma.Error400BadRequest("either value or index is required")
		}

		for _, ctl := range s.controller.Controls() {
			if ctl.Name == input.Name {
				return &models.ControlResponse{Body: ctl}, nil
			}
		}
		return nil, huma.Error404NotFound("unknown control")
	})
}
