package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/scsiexpress/rcsm/internal/events"
)

// registerEventRoutes registers the SSE stream the dashboard listens on for
// session state transitions, live telemetry, and config reloads.
func (s *Server) registerEventRoutes() {
	if s.bus == nil {
		return
	}

	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Event Stream",
		Description: "Server-Sent Events: session state changes, telemetry updates, config reloads",
		Tags:        []string{"events"},
		Errors:      []int{401},
		Security:    s.withAuth(),
	}, map[string]any{
		"session-state": events.SessionStateChangedEvent{},
		"telemetry":     events.TelemetryEvent{},
		"config-reload": events.ConfigReloadedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.SessionStateChangedEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.TelemetryEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.ConfigReloadedEvent](s.bus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Opening state snapshot so a client does not wait for the next
		// transition to learn where the session is.
		if err := send.Data(events.SessionStateChangedEvent{
			State:     string(s.controller.State()),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				if err := send.Data(ev); err != nil {
					return
				}
			}
		}
	})
}
