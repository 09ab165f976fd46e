package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zuccone/super-lunch-buddies/internal/catalog"
	"github.com/zuccone/super-lunch-buddies/internal/models"
	"github.com/zuccone/super-lunch-buddies/internal/observability"
	"github.com/zuccone/super-lunch-buddies/internal/telemetry"
	"github.com/zuccone/super-lunch-buddies/internal/views"
)

// CatalogMutator mutates the shared restaurant list.
type CatalogMutator interface {
	Add(ctx context.Context, in catalog.AddInput) (models.Restaurant, error)
	Edit(ctx context.Context, id string, in catalog.EditInput) error
	Remove(ctx context.Context, id string) error
	Rate(ctx context.Context, id string, delta int) error
	MarkVisitedToday(ctx context.Context, id, groupID string) error
}

// GroupSnapshot provides the last-observed groups for the visit-history join.
type GroupSnapshot interface {
	GroupsSnapshot() []models.Group
}

// CatalogHandler manages restaurant endpoints.
type CatalogHandler struct {
	mutator CatalogMutator
	catalog CatalogSource
	groups  GroupSnapshot
	audit   *telemetry.AuditEmitter
	now     func() time.Time
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(mutator CatalogMutator, source CatalogSource, groups GroupSnapshot, audit *telemetry.AuditEmitter) *CatalogHandler {
	return &CatalogHandler{mutator: mutator, catalog: source, groups: groups, audit: audit, now: time.Now}
}

// ListRestaurants handles GET /restaurants: the catalog sorted and filtered
// for the selected group.
func (h *CatalogHandler) ListRestaurants(c *gin.Context) {
	groupID := c.Query("group_id")

	sortState := views.DefaultSort()
	if key := c.Query("sort"); key != "" {
		sortState.Key = key
	}
	if direction := c.Query("direction"); direction != "" {
		sortState.Direction = direction
	}

	list := views.SortRestaurants(h.catalog.Catalog(), groupID, sortState)
	list = views.Filter(list, c.Query("q"))

	type restaurantView struct {
		models.Restaurant
		VisitedLabel string `json:"visited_label"`
	}
	now := h.now()
	resp := make([]restaurantView, 0, len(list))
	for _, r := range list {
		resp = append(resp, restaurantView{
			Restaurant:   r,
			VisitedLabel: views.FormatVisited(r.VisitedBy(groupID), now),
		})
	}

	c.JSON(http.StatusOK, gin.H{"restaurants": resp})
}

// AddRestaurant handles POST /restaurants.
func (h *CatalogHandler) AddRestaurant(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Nickname    string `json:"nickname"`
		Address     string `json:"address"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	added, err := h.mutator.Add(c.Request.Context(), catalog.AddInput{
		Name:        req.Name,
		Nickname:    req.Nickname,
		Address:     req.Address,
		Description: req.Description,
	})
	if err != nil {
		h.emitAudit(c, "ERROR", "restaurant add failed")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Restaurant added")
	_ = observability.PublishEvent(c.Request.Context(), observability.RouteCatalogEvents, observability.EventEnvelope{
		EventType: "catalog_events",
		EventName: "restaurant_added",
		Payload:   map[string]interface{}{"restaurant_id": added.ID},
	}, observability.BuildHeaders(requestIDFromContext(c), ""))
	c.JSON(http.StatusCreated, added)
}

// EditRestaurant handles PATCH /restaurants/:restaurant_id.
func (h *CatalogHandler) EditRestaurant(c *gin.Context) {
	var req struct {
		Name               string `json:"name" binding:"required"`
		Nickname           string `json:"nickname"`
		Address            string `json:"address"`
		RewriteInstruction string `json:"rewrite_instruction"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.mutator.Edit(c.Request.Context(), c.Param("restaurant_id"), catalog.EditInput{
		Name:               req.Name,
		Nickname:           req.Nickname,
		Address:            req.Address,
		RewriteInstruction: req.RewriteInstruction,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteRestaurant handles DELETE /restaurants/:restaurant_id.
func (h *CatalogHandler) DeleteRestaurant(c *gin.Context) {
	if err := h.mutator.Remove(c.Request.Context(), c.Param("restaurant_id")); err != nil {
		h.emitAudit(c, "ERROR", "restaurant delete failed")
		respondError(c, err)
		return
	}
	h.emitAudit(c, "INFO", "Restaurant deleted")
	c.Status(http.StatusNoContent)
}

// Rate handles POST /restaurants/:restaurant_id/rating.
func (h *CatalogHandler) Rate(c *gin.Context) {
	// Pointer so an explicit zero delta is distinguishable from a missing one.
	var req struct {
		Delta *int `json:"delta" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.mutator.Rate(c.Request.Context(), c.Param("restaurant_id"), *req.Delta); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkVisited handles POST /restaurants/:restaurant_id/visited.
func (h *CatalogHandler) MarkVisited(c *gin.Context) {
	var req struct {
		GroupID string `json:"group_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.mutator.MarkVisitedToday(c.Request.Context(), c.Param("restaurant_id"), req.GroupID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// OtherVisits handles GET /restaurants/:restaurant_id/other-visits: when the
// other groups last went, newest first.
func (h *CatalogHandler) OtherVisits(c *gin.Context) {
	restaurantID := c.Param("restaurant_id")
	for _, r := range h.catalog.Catalog() {
		if r.ID != restaurantID {
			continue
		}
		visits := views.OtherGroupVisits(r, h.groups.GroupsSnapshot(), c.Query("group_id"))
		c.JSON(http.StatusOK, gin.H{"visits": visits})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "restaurant not found"})
}

func (h *CatalogHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), deviceIDFromContext(c))
}
