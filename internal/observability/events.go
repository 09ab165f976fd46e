package observability

// Routing keys for domain events.
const (
	RouteRosterEvents  = "lunch_events.roster"
	RouteCatalogEvents = "lunch_events.catalog"
	RouteGroupEvents   = "lunch_events.groups"
	RouteSuggestEvents = "lunch_events.suggestions"
	RouteWSGroups      = "ws_events.groups"
	RouteWSCatalog     = "ws_events.catalog"
)

type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
