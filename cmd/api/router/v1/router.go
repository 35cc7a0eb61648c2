package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/presentation/controller"
	httpHandler "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/presentation/http"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1.
func RegisterRoutes(r *gin.Engine, deps controller.Deps) {
	v1 := r.Group("/api/v1")
	httpHandler.RegisterRoutes(v1, deps)
}
