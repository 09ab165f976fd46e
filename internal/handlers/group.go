package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zuccone/super-lunch-buddies/internal/models"
	"github.com/zuccone/super-lunch-buddies/internal/observability"
	"github.com/zuccone/super-lunch-buddies/internal/suggest"
	"github.com/zuccone/super-lunch-buddies/internal/telemetry"
	"github.com/zuccone/super-lunch-buddies/internal/views"
)

// GroupService owns group lifecycle operations.
type GroupService interface {
	List() []models.Group
	Get(id string) (models.Group, bool)
	Create(ctx context.Context, name, defaultLocation string) (models.Group, error)
	Update(ctx context.Context, id, name, defaultLocation string) error
	SetVibe(ctx context.Context, id, vibe string) error
	Delete(ctx context.Context, id string) (string, error)
}

// Recommender runs the two-step recommendation pipeline.
type Recommender interface {
	Run(ctx context.Context, req suggest.Request) ([]models.Recommendation, error)
	State(groupID string) string
}

// CatalogSource provides the last-observed shared restaurant list.
type CatalogSource interface {
	Catalog() []models.Restaurant
}

// GroupHandler manages group-related endpoints.
type GroupHandler struct {
	svc         GroupService
	recommender Recommender
	catalog     CatalogSource
	audit       *telemetry.AuditEmitter
	now         func() time.Time
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(svc GroupService, recommender Recommender, catalog CatalogSource, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{svc: svc, recommender: recommender, catalog: catalog, audit: audit, now: time.Now}
}

// ListGroups handles GET /groups.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"groups": h.svc.List()})
}

// CreateGroup handles POST /groups.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name            string `json:"name" binding:"required"`
		DefaultLocation string `json:"default_location"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.svc.Create(c.Request.Context(), req.Name, req.DefaultLocation)
	if err != nil {
		h.emitAudit(c, "ERROR", "group create failed")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Group created")
	_ = observability.PublishEvent(c.Request.Context(), observability.RouteGroupEvents, observability.EventEnvelope{
		EventType: "group_events",
		EventName: "group_created",
		Payload:   map[string]interface{}{"group_id": group.ID},
	}, observability.BuildHeaders(requestIDFromContext(c), ""))
	c.JSON(http.StatusCreated, group)
}

// UpdateGroup handles PATCH /groups/:group_id.
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	var req struct {
		Name            string `json:"name" binding:"required"`
		DefaultLocation string `json:"default_location"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.Update(c.Request.Context(), c.Param("group_id"), req.Name, req.DefaultLocation); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteGroup handles DELETE /groups/:group_id. The surviving group id is
// returned so clients can reselect.
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	remainingID, err := h.svc.Delete(c.Request.Context(), c.Param("group_id"))
	if err != nil {
		h.emitAudit(c, "ERROR", "group delete failed")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Group deleted")
	c.JSON(http.StatusOK, gin.H{"remaining_group_id": remainingID})
}

// SetVibe handles PUT /groups/:group_id/vibe.
func (h *GroupHandler) SetVibe(c *gin.Context) {
	var req struct {
		Vibe string `json:"vibe"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.SetVibe(c.Request.Context(), c.Param("group_id"), req.Vibe); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Board handles GET /groups/:group_id/board: who joined within the recency
// window and which friends are still out.
func (h *GroupHandler) Board(c *gin.Context) {
	group, ok := h.svc.Get(c.Param("group_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		return
	}

	now := h.now()
	recent := views.RecentlyIn(group.Roster, now)

	type boardEntry struct {
		Name        string `json:"name"`
		Suggestion  string `json:"suggestion,omitempty"`
		JoinedLabel string `json:"joined_label"`
	}
	in := make([]boardEntry, 0, len(recent))
	for _, e := range recent {
		in = append(in, boardEntry{
			Name:        e.PersonName,
			Suggestion:  e.Suggestion,
			JoinedLabel: views.FormatStatusTime(e.JoinedAt, now),
		})
	}

	// The out list is friends minus everyone in the roster, not minus the
	// windowed view: an entry older than the window is still attending.
	c.JSON(http.StatusOK, gin.H{
		"in":  in,
		"out": views.OutList(group.Friends, group.Roster),
	})
}

// Recommend handles POST /groups/:group_id/recommendations: runs the
// pipeline against the group's current roster, vibe and the shared catalog.
func (h *GroupHandler) Recommend(c *gin.Context) {
	groupID := c.Param("group_id")
	group, ok := h.svc.Get(groupID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		return
	}

	var req struct {
		Coords *suggest.Coords `json:"coords"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	recs, err := h.recommender.Run(c.Request.Context(), suggest.Request{
		GroupID:         groupID,
		Roster:          group.Roster,
		Vibe:            group.VibeText,
		Catalog:         h.catalog.Catalog(),
		DefaultLocation: group.DefaultLocation,
		Coords:          req.Coords,
	})
	if err != nil {
		h.emitAudit(c, "ERROR", "recommendation run failed")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Recommendations generated")
	_ = observability.PublishEvent(c.Request.Context(), observability.RouteSuggestEvents, observability.EventEnvelope{
		EventType: "suggestion_events",
		EventName: "recommendations_generated",
		Payload: map[string]interface{}{
			"group_id": groupID,
			"count":    len(recs),
		},
	}, observability.BuildHeaders(requestIDFromContext(c), ""))
	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}

// RecommendState handles GET /groups/:group_id/recommendations/state.
func (h *GroupHandler) RecommendState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.recommender.State(c.Param("group_id"))})
}

func (h *GroupHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), deviceIDFromContext(c))
}
