package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/repository/memory"
	"github.com/andresuchdata/replenish/internal/sequence"
	"github.com/andresuchdata/replenish/internal/service"
	"github.com/andresuchdata/replenish/internal/source"
	"github.com/andresuchdata/replenish/internal/storage"
)

var now = time.Date(2026, 4, 15, 9, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	store := memory.NewStore()
	require.NoError(t, store.UpsertVendor(ctx, domain.Vendor{ID: "V1", Name: "Alpine", Seq: 1}))

	var sales []domain.SalesRecord
	for i := 0; i < 30; i++ {
		sales = append(sales, domain.SalesRecord{SKU: "A", Date: now.AddDate(0, 0, -30+i), QuantitySold: 10})
	}
	catalog := source.NewStatic([]domain.ProductSnapshot{{
		SKU:          "A",
		ProductName:  "Widget",
		VendorID:     "V1",
		CurrentStock: 20,
		CostPerUnit:  decimal.NewFromInt(5),
		LeadTimeDays: 10,
		MaxLeadDays:  14,
	}}, sales)

	svc, err := service.NewReplenishmentService(service.Dependencies{
		Catalog:     catalog,
		Sales:       catalog,
		Orders:      store,
		Vendors:     store,
		Reliability: store,
		Runs:        store,
		Allocator:   sequence.NewMemoryAllocator(),
		Storage:     storage.NewMemory(),
		Clock:       func() time.Time { return now },
	}, config.DefaultEngineConfig())
	require.NoError(t, err)

	return NewRouter(svc, []string{"*"})
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(nil, nil)
	rec := doJSON(t, router, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLatestRun_NotFoundBeforeFirstRun(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/api/v1/runs/latest", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPurchaseOrderLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/runs", map[string]any{"as_of": now})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := decode[service.RunResult](t, rec)
	assert.Equal(t, domain.RunCompleted, result.Run.Status)
	require.Len(t, result.PurchaseOrders, 1)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/purchase-orders?status=pending_approval", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	orders := decode[[]domain.PurchaseOrder](t, rec)
	require.Len(t, orders, 1)
	po := orders[0]
	assert.Equal(t, "PO-20260415-VEN001-0001", po.PONumber)
	base := "/api/v1/purchase-orders/" + po.ID.String()

	rec = doJSON(t, router, http.MethodPost, base+"/send", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodPost, base+"/approve", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, base+"/approve", map[string]string{"approver_id": "buyer-7"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	approved := decode[domain.PurchaseOrder](t, rec)
	assert.Equal(t, domain.POApproved, approved.Status)
	assert.Equal(t, "buyer-7", approved.ApprovedBy)

	rec = doJSON(t, router, http.MethodPost, base+"/reject", map[string]string{"approver_id": "buyer-7", "reason": "late"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodPost, base+"/send", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, base+"/receive", map[string]string{"actual_date": "not-a-date"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, base+"/receive", map[string]string{"actual_date": "2026-04-24"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	receipt := decode[struct {
		PurchaseOrder     domain.PurchaseOrder     `json:"purchase_order"`
		VendorReliability domain.VendorReliability `json:"vendor_reliability"`
	}](t, rec)
	assert.Equal(t, domain.POReceived, receipt.PurchaseOrder.Status)
	assert.Equal(t, 1, receipt.VendorReliability.TotalOrders)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/vendors/V1/reliability", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rel := decode[domain.VendorReliability](t, rec)
	assert.Equal(t, 100.0, rel.ReliabilityScore)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/reports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reports/")
}

func TestPurchaseOrderLookupErrors(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/purchase-orders/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/purchase-orders/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/purchase-orders?status=shipped", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/vendors/V9/reliability", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAlertsExportFormats(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/api/v1/runs", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/v1/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Summary domain.AlertSummary `json:"summary"`
	}](t, rec)
	assert.Equal(t, 1, body.Summary.TotalAlerts)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/alerts?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Widget")

	rec = doJSON(t, router, http.MethodGet, "/api/v1/alerts?format=xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, rec.Body.Len())

	rec = doJSON(t, router, http.MethodGet, "/api/v1/alerts?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/alerts?run_id="+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"https://a.example, https://b.example", " "})
	assert.False(t, all)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, origins)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}
