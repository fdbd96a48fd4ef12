package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/covoitsn/covoiturage-backend/internal/services"
)

// WebSocketHandler upgrades the connection and attaches it to the hub.
// Authentication happens upstream, the middleware accepts ?token= for
// browser WebSocket clients that cannot set headers.
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		services.HandleWebSocket(hub, c.Writer, c.Request, userId)
	}
}
