package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/andresuchdata/replenish/internal/service"
)

type RunHandler struct {
	svc *service.ReplenishmentService
}

func NewRunHandler(svc *service.ReplenishmentService) *RunHandler {
	return &RunHandler{svc: svc}
}

type triggerRunRequest struct {
	AsOf *time.Time `json:"as_of"`
}

// TriggerRun executes a replenishment run synchronously and returns its result.
func (h *RunHandler) TriggerRun(c *gin.Context) {
	var req triggerRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}

	opts := service.RunOptions{}
	if req.AsOf != nil {
		opts.Now = *req.AsOf
	}

	result, err := h.svc.Run(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *RunHandler) LatestRun(c *gin.Context) {
	run, err := h.svc.LatestRun(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *RunHandler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid run id")
		return
	}

	run, err := h.svc.GetRun(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// ListReports lists the audit reports uploaded to object storage.
func (h *RunHandler) ListReports(c *gin.Context) {
	reports, err := h.svc.ListReports(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}
