// Package handlers implements the HTTP API of the VM wizard service.
//
// Handlers report failures with c.Error; the ErrorHandler middleware renders them.
// Route registration lives in RegisterRoutes.
//
// Import Path: kv-shepherd.io/vmwizard/internal/api/handlers
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"kv-shepherd.io/vmwizard/internal/api/middleware"
	"kv-shepherd.io/vmwizard/internal/pkg/worker"
	"kv-shepherd.io/vmwizard/internal/provider"
	"kv-shepherd.io/vmwizard/internal/session"
	"kv-shepherd.io/vmwizard/internal/storage/combined"
)

// ClusterLookup lists the live DataVolumes and claims of a namespace.
type ClusterLookup interface {
	Lookup(ctx context.Context, namespace string) (combined.DataVolumes, combined.Claims, error)
}

// Server holds the dependencies of all API handlers.
type Server struct {
	sessions *session.Service
	lookup   ClusterLookup
	mapper   *provider.KubeVirtMapper
	health   *provider.ClusterHealthChecker // nil when no cluster is configured
	pools    *worker.Pools
}

// ServerDeps holds all dependencies for creating a Server.
type ServerDeps struct {
	Sessions *session.Service
	Lookup   ClusterLookup
	Health   *provider.ClusterHealthChecker
	Pools    *worker.Pools
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		sessions: deps.Sessions,
		lookup:   deps.Lookup,
		mapper:   provider.NewKubeVirtMapper(),
		health:   deps.Health,
		pools:    deps.Pools,
	}
}

// RegisterRoutes mounts every API route under rg. Request bodies and path parameters
// are checked against the embedded OpenAPI document before any handler runs.
func (s *Server) RegisterRoutes(rg *gin.RouterGroup) {
	rg.Use(middleware.MustOpenAPIValidator(rg.BasePath()))

	rg.GET("/health/live", s.GetLiveness)
	rg.GET("/health/ready", s.GetReadiness)

	rg.POST("/storage/classify", s.ClassifyStorage)
	rg.POST("/storage/disks", s.CombineDisks)

	ws := rg.Group("/wizard/sessions", middleware.SessionFields())
	ws.POST("", s.CreateSession)
	ws.GET("/:id", s.GetSession)
	ws.DELETE("/:id", s.DeleteSession)
	ws.PATCH("/:id/settings", s.UpdateSettings)
	ws.PUT("/:id/storages", s.SetStorages)
	ws.POST("/:id/storages", s.PutStorage)
	ws.PUT("/:id/storages/:storageID", s.PutStorage)
	ws.DELETE("/:id/storages/:storageID", s.RemoveStorage)
	ws.GET("/:id/storages/:storageID/validation", s.ValidateStorage)
	ws.PUT("/:id/networks", s.SetNetworks)
	ws.PUT("/:id/advanced", s.SetAdvanced)
	ws.PUT("/:id/references", s.SetReferences)
	ws.GET("/:id/validation", s.ValidateSession)
}
