package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kv-shepherd.io/vmwizard/internal/provider"
)

// Health status values.
const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
)

// HealthResponse is the body of the health probes.
type HealthResponse struct {
	Status   string                 `json:"status"`
	Checks   map[string]string      `json:"checks,omitempty"`
	Sessions int                    `json:"sessions,omitempty"`
	Pools    map[string]interface{} `json:"pools,omitempty"`
}

// GetLiveness handles GET /health/live, the liveness probe.
func (s *Server) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: HealthStatusOK})
}

// GetReadiness handles GET /health/ready, the readiness probe.
// The cluster only counts once it has been checked; an unchecked cluster is reported
// but does not fail the probe.
func (s *Server) GetReadiness(c *gin.Context) {
	checks := make(map[string]string)
	allHealthy := true

	if s.health == nil {
		checks["cluster"] = "disabled"
	} else {
		h := s.health.Health()
		checks["cluster"] = string(h.Status)
		if h.Status == provider.ClusterStatusUnreachable {
			allHealthy = false
		}
	}

	resp := HealthResponse{Status: HealthStatusOK, Checks: checks}
	if s.sessions != nil {
		resp.Sessions = s.sessions.Len()
	}
	if s.pools != nil {
		resp.Pools = s.pools.Metrics()
	}

	httpStatus := http.StatusOK
	if !allHealthy {
		resp.Status = HealthStatusDegraded
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, resp)
}
