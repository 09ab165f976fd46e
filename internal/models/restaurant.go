package models

import "time"

// Restaurant is one entry of the shared catalog. The catalog is visible to
// every group; rating is a single shared counter while lastVisited keeps one
// stamp per group so catalog-wide history and group recency coexist.
type Restaurant struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Nickname    string               `json:"nickname,omitempty"`
	Address     string               `json:"address,omitempty"`
	Rating      int                  `json:"rating"`
	Description string               `json:"description,omitempty"`
	LastVisited map[string]time.Time `json:"lastVisited,omitempty"`
}

// VisitedBy returns the group's last-visited stamp, zero when never visited.
func (r Restaurant) VisitedBy(groupID string) time.Time {
	return r.LastVisited[groupID]
}

// StreamEvent is what websocket subscribers receive whenever a subscribed
// document changes.
type StreamEvent struct {
	Type    string       `json:"type"`
	Path    string       `json:"path"`
	Group   *Group       `json:"group,omitempty"`
	Catalog []Restaurant `json:"catalog,omitempty"`
	Deleted bool         `json:"deleted,omitempty"`
}
