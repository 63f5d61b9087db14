package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/service"
)

type VendorHandler struct {
	svc *service.ReplenishmentService
}

func NewVendorHandler(svc *service.ReplenishmentService) *VendorHandler {
	return &VendorHandler{svc: svc}
}

func (h *VendorHandler) Reliability(c *gin.Context) {
	rel, err := h.svc.GetVendorReliability(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrStaleVendorData) {
		c.JSON(http.StatusNotFound, gin.H{"error": "vendor not found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rel)
}
