package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/replenish/internal/api/handlers"
	"github.com/andresuchdata/replenish/internal/api/middleware"
	"github.com/andresuchdata/replenish/internal/service"
)

func NewRouter(svc *service.ReplenishmentService, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	apiGroup := router.Group("/api/v1")
	apiGroup.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if svc != nil {
		runHandler := handlers.NewRunHandler(svc)
		alertHandler := handlers.NewAlertHandler(svc)
		poHandler := handlers.NewPOHandler(svc)
		vendorHandler := handlers.NewVendorHandler(svc)

		runGroup := apiGroup.Group("/runs")
		{
			runGroup.POST("", runHandler.TriggerRun)
			runGroup.GET("/latest", runHandler.LatestRun)
			runGroup.GET("/:id", runHandler.GetRun)
		}
		apiGroup.GET("/reports", runHandler.ListReports)
		apiGroup.GET("/alerts", alertHandler.ListAlerts)

		poGroup := apiGroup.Group("/purchase-orders")
		{
			poGroup.GET("", poHandler.ListPurchaseOrders)
			poGroup.GET("/:id", poHandler.GetPurchaseOrder)
			poGroup.POST("/:id/approve", poHandler.Approve)
			poGroup.POST("/:id/reject", poHandler.Reject)
			poGroup.POST("/:id/send", poHandler.Send)
			poGroup.POST("/:id/receive", poHandler.Receive)
		}

		apiGroup.GET("/vendors/:id/reliability", vendorHandler.Reliability)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
