package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zuccone/super-lunch-buddies/internal/models"
	"github.com/zuccone/super-lunch-buddies/internal/observability"
)

// Hub maintains active websocket rooms: one room per group plus a single
// shared room for catalog watchers.
type Hub struct {
	groupRooms      map[string]map[*websocket.Conn]bool
	catalogRoom     map[*websocket.Conn]bool
	groupConnInfo   map[string]map[*websocket.Conn]ConnInfo
	catalogConnInfo map[*websocket.Conn]ConnInfo
	mu              sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		groupRooms:      make(map[string]map[*websocket.Conn]bool),
		catalogRoom:     make(map[*websocket.Conn]bool),
		groupConnInfo:   make(map[string]map[*websocket.Conn]ConnInfo),
		catalogConnInfo: make(map[*websocket.Conn]ConnInfo),
	}
}

// AddGroupClient registers a websocket connection to a group room.
func (h *Hub) AddGroupClient(groupID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.groupRooms[groupID]; !ok {
		h.groupRooms[groupID] = make(map[*websocket.Conn]bool)
	}
	h.groupRooms[groupID][conn] = true
	if _, ok := h.groupConnInfo[groupID]; !ok {
		h.groupConnInfo[groupID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.groupConnInfo[groupID][conn] = info
}

// RemoveGroupClient removes a group websocket connection.
func (h *Hub) RemoveGroupClient(groupID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.groupRooms[groupID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.groupRooms, groupID)
		}
	}
	if infos, ok := h.groupConnInfo[groupID]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.groupConnInfo, groupID)
		}
	}
}

// AddCatalogClient registers a websocket connection to the catalog room.
func (h *Hub) AddCatalogClient(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.catalogRoom[conn] = true
	h.catalogConnInfo[conn] = info
}

// RemoveCatalogClient removes a catalog websocket connection.
func (h *Hub) RemoveCatalogClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.catalogRoom, conn)
	delete(h.catalogConnInfo, conn)
}

// BroadcastGroup sends a stream event to every client watching the group.
func (h *Hub) BroadcastGroup(groupID string, event models.StreamEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.groupRooms[groupID]))
	for conn := range h.groupRooms[groupID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.RemoveGroupClient(groupID, conn)
			h.publishWSError("group", groupID, conn, err)
		}
	}
}

// BroadcastCatalog sends a stream event to every catalog watcher.
func (h *Hub) BroadcastCatalog(event models.StreamEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.catalogRoom))
	for conn := range h.catalogRoom {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.RemoveCatalogClient(conn)
			h.publishWSError("catalog", "shared-list", conn, err)
		}
	}
}

func (h *Hub) publishWSError(kind, resourceID string, conn *websocket.Conn, err error) {
	info, ok := h.getConnInfo(kind, resourceID, conn)
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"resource_id": resourceID,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent(kind, "ws_error")
}

func (h *Hub) getConnInfo(kind, resourceID string, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if kind == "catalog" {
		info, exists := h.catalogConnInfo[conn]
		return info, exists
	}
	if infos, ok := h.groupConnInfo[resourceID]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}

func wsRoutingKey(kind string) string {
	if kind == "catalog" {
		return observability.RouteWSCatalog
	}
	return observability.RouteWSGroups
}
