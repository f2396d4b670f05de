package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/apimachinery/pkg/util/sets"
	kubevirtv1 "kubevirt.io/api/core/v1"

	"kv-shepherd.io/vmwizard/internal/domain"
	apperrors "kv-shepherd.io/vmwizard/internal/pkg/errors"
	"kv-shepherd.io/vmwizard/internal/storage/combined"
	"kv-shepherd.io/vmwizard/internal/storage/source"
	"kv-shepherd.io/vmwizard/internal/storage/wrapper"
)

// ClassifyRequest is the body of POST /storage/classify.
type ClassifyRequest struct {
	Volume      domain.Volume      `json:"volume"`
	DataVolume  *domain.DataVolume `json:"dataVolume,omitempty"`
	HasNewClaim bool               `json:"hasNewClaim,omitempty"`
}

// ClassifyResponse describes the storage source of a volume.
type ClassifyResponse struct {
	source.Capabilities
	Description string `json:"description"`
}

// CombineDisksRequest is the body of POST /storage/disks. Exactly one of Entity and
// VirtualMachine is set. With Lookup, live records are listed from the cluster instead
// of being taken from the request.
type CombineDisksRequest struct {
	Entity         *domain.VMLikeEntity       `json:"entity,omitempty"`
	VirtualMachine *kubevirtv1.VirtualMachine `json:"virtualMachine,omitempty"`
	DataVolumes    combined.DataVolumes       `json:"dataVolumes"`
	Claims         combined.Claims            `json:"claims"`
	Lookup         bool                       `json:"lookup,omitempty"`
}

// CombineDisksResponse lists the reconciled disks of an entity.
type CombineDisksResponse struct {
	Disks               []combined.View     `json:"disks"`
	UsedDiskNames       []string            `json:"usedDiskNames"`
	UsedDataVolumeNames []string            `json:"usedDataVolumeNames"`
	UsedClaimNames      []string            `json:"usedClaimNames"`
	BootSource          combined.BootSource `json:"bootSource"`
}

// ClassifyStorage handles POST /storage/classify.
func (s *Server) ClassifyStorage(c *gin.Context) {
	var req ClassifyRequest
	if !bind(c, &req) {
		return
	}

	var dv *wrapper.DataVolume
	if req.DataVolume != nil {
		w := wrapper.WrapDataVolume(*req.DataVolume)
		dv = &w
	}
	src := source.ClassifyRecords(wrapper.WrapVolume(req.Volume), dv, req.HasNewClaim)
	c.JSON(http.StatusOK, ClassifyResponse{
		Capabilities: src.Capabilities(),
		Description:  src.Describe(),
	})
}

// CombineDisks handles POST /storage/disks.
func (s *Server) CombineDisks(c *gin.Context) {
	var req CombineDisksRequest
	if !bind(c, &req) {
		return
	}

	var entity domain.VMLikeEntity
	switch {
	case req.Entity != nil && req.VirtualMachine != nil:
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequestField, "set either entity or virtualMachine, not both"))
		return
	case req.Entity != nil:
		entity = *req.Entity
	case req.VirtualMachine != nil:
		mapped, err := s.mapper.MapVM(req.VirtualMachine)
		if err != nil {
			_ = c.Error(apperrors.UnprocessableEntity(apperrors.CodeInvalidRequestField, err.Error()))
			return
		}
		entity = mapped
	default:
		_ = c.Error(apperrors.ErrInvalidRequestFieldf("entity"))
		return
	}

	dvs, claims := req.DataVolumes, req.Claims
	if req.Lookup {
		if s.lookup == nil {
			_ = c.Error(apperrors.ServiceUnavailable(apperrors.CodeClusterUnhealthy, "no cluster configured"))
			return
		}
		var err error
		dvs, claims, err = s.lookup.Lookup(c.Request.Context(), entity.Metadata.Namespace)
		if err != nil {
			_ = c.Error(apperrors.ErrClusterUnhealthyf(err))
			return
		}
	}

	set := combined.ForEntity(entity, dvs, claims)
	resp := CombineDisksResponse{
		Disks:               make([]combined.View, 0, set.Len()),
		UsedDiskNames:       sets.List(set.UsedDiskNames(0)),
		UsedDataVolumeNames: sets.List(set.UsedDataVolumeNames(0)),
		UsedClaimNames:      sets.List(set.UsedClaimNames(0)),
		BootSource:          set.ValidateBootSource(),
	}
	for _, d := range set.Disks() {
		resp.Disks = append(resp.Disks, d.View())
	}
	c.JSON(http.StatusOK, resp)
}
