package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/remi-scorer/internal/models"
)

// deviceIDKey context key for the requesting device
const deviceIDKey = "deviceID"

// DeviceHeader header clients use to identify their device
const DeviceHeader = "X-Device-ID"

// DeviceID extracts the device identifier from the request and stores
// it in the context. The header wins; a query parameter is accepted
// for clients that cannot set headers. Requests without one proceed,
// each handler decides whether a device is required.
func DeviceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := c.GetHeader(DeviceHeader)
		if deviceID == "" {
			deviceID = c.Query("deviceId")
		}

		c.Set(deviceIDKey, deviceID)
		c.Next()
	}
}

// GetDeviceID returns the device identifier stored by DeviceID
func GetDeviceID(c *gin.Context) string {
	if v, exists := c.Get(deviceIDKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// GetDeviceIDOrUnknown returns the device identifier or the unknown
// sentinel for requests that never declared one
func GetDeviceIDOrUnknown(c *gin.Context) string {
	if id := GetDeviceID(c); id != "" {
		return id
	}
	return models.CreatorUnknown
}
