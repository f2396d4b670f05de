package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	apperrors "kv-shepherd.io/vmwizard/internal/pkg/errors"
	"kv-shepherd.io/vmwizard/internal/pkg/logger"
	"kv-shepherd.io/vmwizard/internal/session"
	"kv-shepherd.io/vmwizard/internal/wizard"
)

// CreateSessionRequest is the body of POST /wizard/sessions.
type CreateSessionRequest struct {
	Namespace string `json:"namespace" binding:"required"`
}

// UpdateSettingsRequest is the body of PATCH /wizard/sessions/:id/settings.
type UpdateSettingsRequest struct {
	Patches []wizard.FieldPatch `json:"patches" binding:"required"`
}

// StoragesRequest is the body of PUT /wizard/sessions/:id/storages.
type StoragesRequest struct {
	Storages []wizard.Storage `json:"storages"`
}

// NetworksRequest is the body of PUT /wizard/sessions/:id/networks.
type NetworksRequest struct {
	Networks []wizard.Network `json:"networks"`
}

// CreateSession handles POST /wizard/sessions.
func (s *Server) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if !bind(c, &req) {
		return
	}
	v, err := s.sessions.Create(req.Namespace)
	respond(c, http.StatusCreated, v, err)
}

// GetSession handles GET /wizard/sessions/:id.
func (s *Server) GetSession(c *gin.Context) {
	v, err := s.sessions.Get(c.Param("id"))
	respond(c, http.StatusOK, v, err)
}

// DeleteSession handles DELETE /wizard/sessions/:id.
func (s *Server) DeleteSession(c *gin.Context) {
	if err := s.sessions.Delete(c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateSettings handles PATCH /wizard/sessions/:id/settings.
func (s *Server) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if !bind(c, &req) {
		return
	}
	v, err := s.sessions.UpdateSettings(c.Param("id"), req.Patches)
	respondEdit(c, v, err)
}

// SetStorages handles PUT /wizard/sessions/:id/storages.
func (s *Server) SetStorages(c *gin.Context) {
	var req StoragesRequest
	if !bind(c, &req) {
		return
	}
	v, err := s.sessions.SetStorages(c.Param("id"), req.Storages)
	respondEdit(c, v, err)
}

// PutStorage handles POST /wizard/sessions/:id/storages and
// PUT /wizard/sessions/:id/storages/:storageID. The path ID wins over the body.
func (s *Server) PutStorage(c *gin.Context) {
	var st wizard.Storage
	if !bind(c, &st) {
		return
	}
	if c.Param("storageID") != "" {
		id, ok := storageID(c)
		if !ok {
			return
		}
		st.ID = id
	} else {
		st.ID = 0
	}
	v, err := s.sessions.PutStorage(c.Param("id"), st)
	respondEdit(c, v, err)
}

// RemoveStorage handles DELETE /wizard/sessions/:id/storages/:storageID.
func (s *Server) RemoveStorage(c *gin.Context) {
	id, ok := storageID(c)
	if !ok {
		return
	}
	v, err := s.sessions.RemoveStorage(c.Param("id"), id)
	respondEdit(c, v, err)
}

// ValidateStorage handles GET /wizard/sessions/:id/storages/:storageID/validation.
func (s *Server) ValidateStorage(c *gin.Context) {
	id, ok := storageID(c)
	if !ok {
		return
	}
	res, err := s.sessions.ValidateStorage(c.Param("id"), id)
	respond(c, http.StatusOK, res, err)
}

// SetNetworks handles PUT /wizard/sessions/:id/networks.
func (s *Server) SetNetworks(c *gin.Context) {
	var req NetworksRequest
	if !bind(c, &req) {
		return
	}
	v, err := s.sessions.SetNetworks(c.Param("id"), req.Networks)
	respondEdit(c, v, err)
}

// SetAdvanced handles PUT /wizard/sessions/:id/advanced.
func (s *Server) SetAdvanced(c *gin.Context) {
	var req wizard.Advanced
	if !bind(c, &req) {
		return
	}
	v, err := s.sessions.SetAdvanced(c.Param("id"), req)
	respondEdit(c, v, err)
}

// SetReferences handles PUT /wizard/sessions/:id/references.
func (s *Server) SetReferences(c *gin.Context) {
	var req wizard.References
	if !bind(c, &req) {
		return
	}
	v, err := s.sessions.SetReferences(c.Param("id"), req)
	respondEdit(c, v, err)
}

// ValidateSession handles GET /wizard/sessions/:id/validation.
func (s *Server) ValidateSession(c *gin.Context) {
	res, err := s.sessions.Validate(c.Param("id"))
	respond(c, http.StatusOK, res, err)
}

// bind decodes the request body. Its shape was already checked by the OpenAPI validator.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(apperrors.InvalidRequest(err.Error()))
		return false
	}
	return true
}

func storageID(c *gin.Context) (int, bool) {
	var id int
	err := runtime.BindStyledParameterWithOptions("simple", "storageID", c.Param("storageID"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil || id <= 0 {
		_ = c.Error(apperrors.ErrInvalidRequestFieldf("storageID"))
		return 0, false
	}
	return id, true
}

// respondEdit renders the session after an edit and logs the updaters it ran on the
// request logger, which carries request_id and session_id.
func respondEdit(c *gin.Context, v *session.View, err error) {
	if err == nil {
		logger.From(c.Request.Context()).Debug("wizard edit applied",
			zap.Int("mutations", len(v.Mutations)),
			zap.Strings("updaters", v.Updaters),
		)
	}
	respond(c, http.StatusOK, v, err)
}

func respond[T any](c *gin.Context, status int, body T, err error) {
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(status, body)
}
