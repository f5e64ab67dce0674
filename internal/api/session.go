package api

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dbsystel-hub/cameractl/internal/api/models"
	"github.com/dbsystel-hub/cameractl/internal/camera"
)

// registerSessionRoutes registers the capture session lifecycle endpoints.
func (s *Server) registerSessionRoutes() {
	// Session status
	huma.Register(s.api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/session",
		Summary:     "Session Status",
		Description: "Get the capture session lifecycle state, permission and active device",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.SessionStatusResponse, error) {
		return &models.SessionStatusResponse{Body: s.sessionStatus()}, nil
	})

	// Start session
	huma.Register(s.api, huma.Operation{
		OperationID: "start-session",
		Method:      http.MethodPost,
		Path:        "/api/session/start",
		Summary:     "Start Session",
		Description: "Request the capture session to run. A no-op when already running or not yet configured.",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.SessionStatusResponse, error) {
		s.controller.StartSession()
		return &models.SessionStatusResponse{Body: s.sessionStatus()}, nil
	})

	// Stop session
	huma.Register(s.api, huma.Operation{
		OperationID: "stop-session",
		Method:      http.MethodPost,
		Path:        "/api/session/stop",
		Summary:     "Stop Session",
		Description: "Request the capture session to stop. A no-op when already stopped.",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.SessionStatusResponse, error) {
		s.controller.StopSession()
		return &models.SessionStatusResponse{Body: s.sessionStatus()}, nil
	})

	// Switch camera position
	huma.Register(s.api, huma.Operation{
		OperationID: "set-position",
		Method:      http.MethodPost,
		Path:        "/api/session/position",
		Summary:     "Switch Camera",
		Description: "Switch the session to the front or back camera, rebuilding the configuration",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404, 409},
	}, func(ctx context.Context, input *models.PositionRequest) (*models.SessionStatusResponse, error) {
		pos := camera.Position(input.Body.Position)
		if err := s.controller.SetPosition(pos); err != nil {
			return nil, mapControllerError(err)
		}
		return &models.SessionStatusResponse{Body: s.sessionStatus()}, nil
	})

	// Capture photo
	huma.Register(s.api, huma.Operation{
		OperationID: "capture-photo",
		Method:      http.MethodPost,
		Path:        "/api/session/capture",
		Summary:     "Capture Photo",
		Description: "Take a still photo on the configured device and return it base64-encoded",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401, 409, 500},
	}, func(ctx context.Context, input *struct{}) (*models.CaptureResponse, error) {
		data, err := s.controller.CapturePhoto(ctx)
		if err != nil {
			return nil, mapControllerError(err)
		}
		dev := s.controller.Device()
		return &models.CaptureResponse{
			Body: models.CaptureData{
				Status:    "success",
				DeviceID:  dev.ID,
				Bytes:     len(data),
				ImageData: base64.StdEncoding.EncodeToString(data),
			},
		}, nil
	})
}

func (s *Server) sessionStatus() models.SessionStatusData {
	dev := s.controller.Device()
	return models.SessionStatusData{
		State:      string(s.controller.State()),
		Running:    s.controller.IsRunning(),
		Permission: string(s.controller.Permission()),
		DeviceID:   dev.ID,
		DeviceName: dev.Name,
		Position:   string(dev.Position),
	}
}

// mapControllerError converts controller errors to HTTP status errors.
func mapControllerError(err error) error {
	switch {
	case errors.Is(err, camera.ErrPermissionDenied):
		return huma.Error409Conflict("camera permission denied", err)
	case errors.Is(err, camera.ErrNotConfigured):
		return huma.Error409Conflict("session not configured", err)
	case errors.Is(err, camera.ErrDeviceNotFound):
		return huma.Error404NotFound("no camera device for position", err)
	case errors.Is(err, camera.ErrInputCreationFailed),
		errors.Is(err, camera.ErrInputNotAddable),
		errors.Is(err, camera.ErrOutputNotAddable):
		return huma.Error409Conflict("session cannot accept configuration", err)
	default:
		return huma.Error500InternalServerError("operation failed", err)
	}
}
