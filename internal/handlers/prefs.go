package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PrefsStore reads and writes per-device preferences.
type PrefsStore interface {
	Get(ctx context.Context, deviceID, key string) (string, bool, error)
	Set(ctx context.Context, deviceID, key, value string, ttlDays int) error
}

// PrefsHandler manages preference endpoints.
type PrefsHandler struct {
	prefs PrefsStore
}

// NewPrefsHandler constructs a PrefsHandler.
func NewPrefsHandler(prefs PrefsStore) *PrefsHandler {
	return &PrefsHandler{prefs: prefs}
}

// Get handles GET /prefs/:key.
func (h *PrefsHandler) Get(c *gin.Context) {
	value, ok, err := h.prefs.Get(c.Request.Context(), deviceIDFromContext(c), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "preference not set"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": value})
}

// Set handles PUT /prefs/:key.
func (h *PrefsHandler) Set(c *gin.Context) {
	var req struct {
		Value   string `json:"value"`
		TTLDays int    `json:"ttl_days"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.prefs.Set(c.Request.Context(), deviceIDFromContext(c), c.Param("key"), req.Value, req.TTLDays); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
