package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/zuccone/super-lunch-buddies/internal/apperr"
	"github.com/zuccone/super-lunch-buddies/internal/store"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func deviceIDFromContext(c *gin.Context) string {
	if val, ok := c.Get("deviceID"); ok {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return c.GetHeader("X-Device-Id")
}

// statusForError maps the error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	var validation *apperr.ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound
	}
	var suggestion *apperr.SuggestionServiceError
	if errors.As(err, &suggestion) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}
