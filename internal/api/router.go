package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/constants"
	"github.com/joseph-ayodele/invoice-vouchers/internal/logger"
)

// HealthFunc reports store reachability for /healthz.
type HealthFunc func(ctx context.Context) error

// NewRouter wires the HTTP routes.
func NewRouter(svc InvoiceService, health HealthFunc, log *zap.SugaredLogger) *gin.Engine {
	log = logger.OrNop(log)
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	// base64 inflates by 4/3; leave room for the JSON envelope
	r.MaxMultipartMemory = constants.MaxUploadBytes * 2
	r.Use(gin.Recovery(), RequestIDMiddleware, LoggerMiddleware(log), ErrorHandler(log))

	r.GET("/healthz", func(c *gin.Context) {
		if health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
			defer cancel()
			if err := health(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := NewInvoiceHandler(svc, log)
	api := r.Group("/api")
	{
		api.POST("/invoices", h.ProcessInvoice)
		api.GET("/invoices", h.ListProcessedInvoices)
		api.GET("/invoices/:id", h.GetInvoice)
		api.GET("/vouchers/export", h.ExportVouchers)
	}
	return r
}
