package app

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"kv-shepherd.io/vmwizard/internal/api/handlers"
	"kv-shepherd.io/vmwizard/internal/api/middleware"
	"kv-shepherd.io/vmwizard/internal/config"
	"kv-shepherd.io/vmwizard/internal/pkg/logger"
)

// defaultAllowedOrigins are the local development frontends.
var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

func newRouter(cfg *config.Config, server *handlers.Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.ErrorHandler())
	router.Use(cors.New(buildCORSConfig(cfg)))

	server.RegisterRoutes(router.Group("/api/v1"))

	// GET reads and PUT {"level":"debug"} changes the level at runtime.
	level := gin.WrapH(logger.HTTPHandler())
	router.GET("/log/level", level)
	router.PUT("/log/level", level)
	return router
}

// buildCORSConfig turns the server settings into a cors.Config. A wildcard origin is
// only honored with UnsafeAllowAllOrigins, and then credentials are never allowed.
// An allowlist left empty falls back to the local development origins.
func buildCORSConfig(cfg *config.Config) cors.Config {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	if cfg.Server.UnsafeAllowAllOrigins {
		cc.AllowAllOrigins = true
		cc.AllowCredentials = false
		return cc
	}

	origins := slices.DeleteFunc(slices.Clone(cfg.Server.AllowedOrigins), func(o string) bool {
		return o == "*" || o == ""
	})
	if len(origins) == 0 {
		origins = slices.Clone(defaultAllowedOrigins)
	}
	cc.AllowOrigins = origins
	cc.AllowCredentials = cfg.Server.AllowCredentials
	return cc
}
