package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/barberdash/internal/config"
	"github.com/mamadbah2/barberdash/internal/server/handlers"
)

// apiPrefix is accepted in front of record store paths, like the json-server
// routes file the dashboard used to ship with.
const apiPrefix = "/api"

// New wires the dashboard Gin engine with its routes and middlewares. The
// WhatsApp webhook is only mounted when webhook is non-nil.
func New(handler *handlers.DashboardHandler, webhook *handlers.WebhookHandler, auth config.OperatorConfig, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := newEngine(logger)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if webhook != nil {
		r.GET("/webhook", webhook.Verify)
		r.POST("/webhook", webhook.Receive)
	}

	api := r.Group(apiPrefix, operatorAuth(auth, logger))
	api.GET("/state", handler.State)
	api.POST("/refresh", handler.Refresh)

	api.GET("/day", handler.Day)
	api.PUT("/day", handler.SelectDay)
	api.POST("/day/next", handler.NextDay)
	api.POST("/day/prev", handler.PrevDay)
	api.POST("/day/today", handler.Today)

	api.POST("/barbers", handler.CreateBarber)
	api.PATCH("/barbers/:id", handler.UpdateBarber)
	api.DELETE("/barbers/:id", handler.RemoveBarber)
	api.GET("/barbers/:id/summary", handler.Summary)
	api.GET("/barbers/:id/weekly", handler.Weekly)
	api.GET("/barbers/:id/share", handler.ShareText)
	api.GET("/barbers/:id/export.csv", handler.ExportCSV)
	api.DELETE("/barbers/:id/history", handler.ClearHistory)

	services := api.Group("/barbers/:id/services/:service")
	services.POST("/sale", handler.RecordSale)
	services.POST("/undo", handler.UndoSale)
	services.PUT("/surcharge", handler.SetSurcharge)
	services.PUT("/price", handler.SetPrice)
	services.PUT("/payment-method", handler.SetPaymentMethod)

	api.DELETE("/history/:id", handler.RemoveHistoryItem)

	api.GET("/appointments", handler.ListAppointments)
	api.POST("/appointments", handler.CreateAppointment)
	api.PATCH("/appointments/:id", handler.UpdateAppointment)
	api.POST("/appointments/:id/cancel", handler.CancelAppointment)
	api.POST("/appointments/:id/complete", handler.CompleteAppointment)
	api.DELETE("/appointments/:id", handler.DeleteAppointment)

	api.GET("/catalog", handler.Catalog)
	api.POST("/catalog", handler.SaveService)
	api.PUT("/catalog/:id", handler.SaveService)
	api.DELETE("/catalog/:id", handler.RemoveService)

	api.POST("/reports/close", handler.PublishReport)

	logger.Info("router initialized")
	return r
}

// NewRecordStore serves a record store over the json-server dialect. Paths
// are accepted with or without the /api prefix.
func NewRecordStore(handler *handlers.RecordHandler, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := newEngine(logger)
	handler.Register(r)

	logger.Info("record store router initialized")
	return stripPrefix(apiPrefix, r)
}

func newEngine(logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func stripPrefix(prefix string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, prefix)
		if rest != req.URL.Path && strings.HasPrefix(rest, "/") {
			req = req.Clone(req.Context())
			req.URL.Path = rest
			req.URL.RawPath = ""
		}
		next.ServeHTTP(w, req)
	})
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
