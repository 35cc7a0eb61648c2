package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/presentation/controller"
)

// memberIDHeader carries the identity resolved by the upstream auth layer.
// The edge strips it from external traffic, so its presence is trusted here.
const memberIDHeader = "X-Member-Id"

// RegisterRoutes mounts the websocket endpoints under the given router group.
// Human rooms and AI coach rooms get separate endpoints; each admits only its
// own room kind.
func RegisterRoutes(g *gin.RouterGroup, deps controller.Deps) {
	humanCtl := controller.NewChatSocketController(controller.RoomKindHuman, deps)
	coachCtl := controller.NewChatSocketController(controller.RoomKindAssistant, deps)

	// GET /api/v1/rooms/:roomId/ws -> realtime chat for team rooms
	g.GET("/rooms/:roomId/ws", identityRequired(), humanCtl.Handle())

	// GET /api/v1/rooms/:roomId/coach/ws -> realtime chat with the AI coach
	g.GET("/rooms/:roomId/coach/ws", identityRequired(), coachCtl.Handle())
}

// identityRequired moves the upstream-resolved member id into the request
// context. Connections without an identity are rejected before any upgrade.
func identityRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID := c.GetHeader(memberIDHeader)
		if memberID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing member identity"})
			return
		}
		c.Set(controller.ContextMemberIDKey, memberID)
		c.Next()
	}
}
