package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zuccone/super-lunch-buddies/internal/observability"
	"github.com/zuccone/super-lunch-buddies/internal/telemetry"
)

// RosterSynchronizer toggles attendance and edits suggestion text.
type RosterSynchronizer interface {
	SetAttendance(ctx context.Context, personName, targetGroupID string, attending bool, suggestion string) error
	UpdateSuggestion(ctx context.Context, personName, groupID, suggestion string) error
}

// AttendanceHandler manages attendance endpoints.
type AttendanceHandler struct {
	sync  RosterSynchronizer
	audit *telemetry.AuditEmitter
}

// NewAttendanceHandler constructs an AttendanceHandler.
func NewAttendanceHandler(sync RosterSynchronizer, audit *telemetry.AuditEmitter) *AttendanceHandler {
	return &AttendanceHandler{sync: sync, audit: audit}
}

// SetAttendance handles PUT /attendance.
func (h *AttendanceHandler) SetAttendance(c *gin.Context) {
	var req struct {
		Name       string `json:"name" binding:"required"`
		GroupID    string `json:"group_id" binding:"required"`
		Attending  bool   `json:"attending"`
		Suggestion string `json:"suggestion"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sync.SetAttendance(c.Request.Context(), req.Name, req.GroupID, req.Attending, req.Suggestion); err != nil {
		h.emitAudit(c, "ERROR", "attendance toggle failed")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Attendance updated")
	_ = observability.PublishEvent(c.Request.Context(), observability.RouteRosterEvents, observability.EventEnvelope{
		EventType: "roster_events",
		EventName: "attendance_set",
		Payload: map[string]interface{}{
			"group_id":  req.GroupID,
			"attending": req.Attending,
		},
	}, observability.BuildHeaders(requestIDFromContext(c), ""))
	c.Status(http.StatusNoContent)
}

// UpdateSuggestion handles PUT /attendance/suggestion.
func (h *AttendanceHandler) UpdateSuggestion(c *gin.Context) {
	var req struct {
		Name       string `json:"name" binding:"required"`
		GroupID    string `json:"group_id" binding:"required"`
		Suggestion string `json:"suggestion"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sync.UpdateSuggestion(c.Request.Context(), req.Name, req.GroupID, req.Suggestion); err != nil {
		h.emitAudit(c, "ERROR", "suggestion update failed")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Suggestion updated")
	c.Status(http.StatusNoContent)
}

func (h *AttendanceHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), deviceIDFromContext(c))
}
