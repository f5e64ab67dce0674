package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dbsystel-hub/cameractl/internal/api/models"
)

// registerDeviceRoutes registers the device discovery endpoints.
func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List Devices",
		Description: "Get all camera devices currently present on the system",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, input *struct{}) (*models.DeviceListResponse, error) {
		found, err := s.detector.FindDevices()
		if err != nil {
			return nil, huma.Error500InternalServerError("device scan failed", err)
		}

		devices := make([]models.DeviceData, len(found))
		for i, dev := range found {
			devices[i] = models.DeviceData{
				ID:        dev.ID,
				Name:      dev.Name,
				Path:      dev.Path,
				Position:  string(dev.Position),
				WideAngle: dev.WideAngle,
			}
		}

		return &models.DeviceListResponse{
			Body: models.DeviceListData{
				Devices: devices,
				Count:   len(devices),
			},
		}, nil
	})
}
