package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/dbsystel-hub/cameractl/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time event stream for session lifecycle, permission, control and device changes",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"permission-changed":    events.PermissionChangedEvent{},
		"session-state-changed": events.SessionStateChangedEvent{},
		"configure-failed":      events.ConfigureFailedEvent{},
		"control-rejected":      events.ControlRejectedEvent{},
		"control-adjusted":      events.ControlAdjustedEvent{},
		"photo-captured":        events.PhotoCapturedEvent{},
		"capture-error":         events.CaptureErrorEvent{},
		"device-discovery":      events.DeviceDiscoveryEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Per-connection event channel
		eventCh := make(chan any, 10)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.PermissionChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SessionStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ConfigureFailedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ControlRejectedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ControlAdjustedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.PhotoCapturedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.CaptureErrorEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.DeviceDiscoveryEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Initial snapshot so clients can render state immediately
		if err := send.Data(events.SessionStateChangedEvent{
			State:     string(s.controller.State()),
			Running:   s.controller.IsRunning(),
			DeviceID:  s.controller.Device().ID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					// Connection failed, clean up and exit
					return
				}
			}
		}
	})
}
