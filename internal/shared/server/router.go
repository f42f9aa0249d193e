package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"extraction-backend/internal/shared/config"
	"extraction-backend/internal/shared/metrics"
	"extraction-backend/internal/shared/server/middleware"
	"extraction-backend/internal/shared/server/respond"
)

// RouteRegistrar attaches a handler's routes to an API group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config        config.Config
	SchemaHandler RouteRegistrar
	RunHandler    RouteRegistrar
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	if deps.SchemaHandler != nil {
		deps.SchemaHandler.RegisterRoutes(api)
	}
	if deps.RunHandler != nil {
		deps.RunHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
