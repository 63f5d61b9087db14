package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/andresuchdata/replenish/internal/report"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/service"
)

type AlertHandler struct {
	svc *service.ReplenishmentService
}

func NewAlertHandler(svc *service.ReplenishmentService) *AlertHandler {
	return &AlertHandler{svc: svc}
}

// ListAlerts serves the alerts of ?run_id= or of the latest run, as JSON,
// CSV (?format=csv) or xlsx (?format=xlsx). The xlsx export also carries the
// run's purchase orders.
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	runID := uuid.Nil
	if raw := c.Query("run_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "invalid run_id")
			return
		}
		runID = id
	}

	ctx := c.Request.Context()
	run, summary, err := h.svc.AlertSummary(ctx, runID)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := "alerts-" + run.StartedAt.Format("20060102")
	switch strings.ToLower(c.DefaultQuery("format", "json")) {
	case "json":
		c.JSON(http.StatusOK, gin.H{"run": run, "summary": summary})
	case "csv":
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", filename))
		c.Header("Content-Type", "text/csv")
		c.Status(http.StatusOK)
		if err := report.WriteAlertsCSV(c.Writer, summary.Alerts); err != nil {
			_ = c.Error(err)
		}
	case "xlsx":
		orders, err := h.svc.ListPurchaseOrders(ctx, repository.POFilter{RunID: run.ID})
		if err != nil {
			respondError(c, err)
			return
		}
		buf, err := report.Workbook(summary.Alerts, orders)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", filename))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	default:
		badRequest(c, "format must be json, csv or xlsx")
	}
}
