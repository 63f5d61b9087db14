package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/service"
)

type POHandler struct {
	svc *service.ReplenishmentService
}

func NewPOHandler(svc *service.ReplenishmentService) *POHandler {
	return &POHandler{svc: svc}
}

type approveRequest struct {
	ApproverID string `json:"approver_id" binding:"required"`
}

type rejectRequest struct {
	ApproverID string `json:"approver_id" binding:"required"`
	Reason     string `json:"reason"`
}

type receiveRequest struct {
	ActualDate string `json:"actual_date" binding:"required"`
}

// ListPurchaseOrders supports ?status=, ?vendor_id=, ?limit= and ?offset=.
func (h *POHandler) ListPurchaseOrders(c *gin.Context) {
	filter := repository.POFilter{
		VendorID: c.Query("vendor_id"),
		Limit:    parsePositiveIntWithDefault(c.Query("limit"), 50),
		Offset:   parseNonNegativeInt(c.Query("offset")),
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := domain.ParsePOStatus(raw)
		if !ok {
			badRequest(c, "unknown status "+raw)
			return
		}
		filter.Status = status
	}

	orders, err := h.svc.ListPurchaseOrders(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *POHandler) GetPurchaseOrder(c *gin.Context) {
	id, ok := poID(c)
	if !ok {
		return
	}

	po, err := h.svc.GetPurchaseOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, po)
}

func (h *POHandler) Approve(c *gin.Context) {
	id, ok := poID(c)
	if !ok {
		return
	}
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "approver_id is required")
		return
	}

	po, err := h.svc.Approve(c.Request.Context(), id, req.ApproverID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, po)
}

func (h *POHandler) Reject(c *gin.Context) {
	id, ok := poID(c)
	if !ok {
		return
	}
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "approver_id is required")
		return
	}

	po, err := h.svc.Reject(c.Request.Context(), id, req.ApproverID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, po)
}

func (h *POHandler) Send(c *gin.Context) {
	id, ok := poID(c)
	if !ok {
		return
	}

	po, err := h.svc.MarkSent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, po)
}

// Receive confirms goods receipt. actual_date is YYYY-MM-DD or RFC3339.
func (h *POHandler) Receive(c *gin.Context) {
	id, ok := poID(c)
	if !ok {
		return
	}
	var req receiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "actual_date is required")
		return
	}
	actual, err := parseDate(req.ActualDate)
	if err != nil {
		badRequest(c, "actual_date must be YYYY-MM-DD or RFC3339")
		return
	}

	po, rel, err := h.svc.ConfirmReceipt(c.Request.Context(), id, actual)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchase_order": po, "vendor_reliability": rel})
}

func poID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid purchase order id")
		return uuid.Nil, false
	}
	return id, true
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func parsePositiveIntWithDefault(value string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func parseNonNegativeInt(value string) int {
	if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && v >= 0 {
		return v
	}
	return 0
}
