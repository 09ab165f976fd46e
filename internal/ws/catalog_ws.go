package ws

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"github.com/zuccone/super-lunch-buddies/internal/models"
	"github.com/zuccone/super-lunch-buddies/internal/observability"
	"github.com/zuccone/super-lunch-buddies/internal/state"
)

// CatalogStreamHandler streams the shared restaurant list to websocket
// clients.
type CatalogStreamHandler struct {
	hub   *Hub
	cache *state.Cache
}

// NewCatalogStreamHandler constructs a CatalogStreamHandler.
func NewCatalogStreamHandler(hub *Hub, cache *state.Cache) *CatalogStreamHandler {
	return &CatalogStreamHandler{hub: hub, cache: cache}
}

// Handle upgrades the connection, sends the current catalog and registers
// the client for subsequent change events.
func (h *CatalogStreamHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("super-lunch-buddies/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}

	if err := conn.WriteJSON(models.StreamEvent{
		Type:    "catalog",
		Path:    state.CatalogDocPath,
		Catalog: h.cache.Catalog(),
	}); err != nil {
		conn.Close()
		return
	}
	h.hub.AddCatalogClient(conn, info)

	observability.IncWSActive("catalog")
	observability.IncWSEvent("catalog", "ws_connect")
	_ = observability.PublishEvent(ctx, observability.RouteWSCatalog, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"kind":        "catalog",
				"resource_id": "shared-list",
				"event":       "ws_connect",
				"conn_id":     info.ConnID,
				"duration_ms": 0,
				"reason":      "",
			},
			"identity": map[string]interface{}{
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(requestID, traceID))

	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveCatalogClient(conn)
			observability.DecWSActive("catalog")
			observability.IncWSEvent("catalog", "ws_disconnect")
			_ = observability.PublishEvent(ctx, observability.RouteWSCatalog, observability.EventEnvelope{
				EventType: "ws_events",
				EventName: "ws_disconnect",
				Payload: map[string]interface{}{
					"ws": map[string]interface{}{
						"kind":        "catalog",
						"resource_id": "shared-list",
						"event":       "ws_disconnect",
						"conn_id":     info.ConnID,
						"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
						"reason":      closeReason,
					},
					"identity": map[string]interface{}{
						"device_id": info.DeviceID,
						"ip":        info.IP,
					},
				},
			}, observability.BuildHeaders(requestID, traceID))
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("catalog", "ws_error")
				}
				return
			}
		}
	}()
}
