package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const deviceIDContextKey = "deviceID"

// DeviceIdentity attaches an anonymous per-device identity to the request.
// Clients send X-Device-Id; a fresh id is minted and echoed back when the
// header is absent so the first response hands the client its identity.
func DeviceIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := c.GetHeader("X-Device-Id")
		if deviceID == "" {
			deviceID = uuid.NewString()
		}
		c.Set(deviceIDContextKey, deviceID)
		c.Header("X-Device-Id", deviceID)
		c.Next()
	}
}
