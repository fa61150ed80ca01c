package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignatzorin/escrow-backend/internal/config"
	"github.com/ignatzorin/escrow-backend/internal/http/middleware"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/handler"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

// Handlers - все HTTP хэндлеры приложения.
type Handlers struct {
	Orders    *handler.OrderHandler
	Execution *handler.ExecutionHandler
	Disputes  *handler.DisputeHandler
	Payments  *handler.PaymentHandler
	Audit     *handler.AuditHandler
	Catalog   *handler.CatalogHandler
	WS        *handler.WSHandler
	Health    *handler.HealthHandler
	// Dev подключается только в development
	Dev *handler.DevHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokenManager *service.TokenManager, gatherer prometheus.Gatherer) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")

	if h.Dev != nil && cfg.Env == "development" {
		api.POST("/dev/token", h.Dev.IssueToken)
	}

	api.GET("/ws", h.WS.Handle)
	api.GET("/services/:id", middleware.UUIDValidator("id"), h.Catalog.Get)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	protected.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		protected.POST("/services", h.Catalog.Create)
		protected.PUT("/services/:id", middleware.UUIDValidator("id"), h.Catalog.Update)
		protected.DELETE("/services/:id", middleware.UUIDValidator("id"), h.Catalog.Delete)

		protected.POST("/orders", h.Orders.Submit)
		protected.GET("/orders", h.Orders.List)

		orders := protected.Group("/orders/:id")
		orders.Use(middleware.UUIDValidator("id"))
		{
			orders.GET("", h.Orders.Get)
			orders.GET("/escrow", h.Orders.Escrow)
			orders.POST("/accept", h.Orders.Accept)
			orders.POST("/reject", h.Orders.Reject)
			orders.POST("/counter-offer", h.Orders.CounterOffer)
			orders.POST("/finalize", h.Orders.FinalizeDetails)
			orders.POST("/cancel", h.Orders.Cancel)
			orders.POST("/payment", h.Orders.CapturePayment)

			orders.POST("/start", h.Execution.MarkStart)
			orders.POST("/start/confirm", h.Execution.ConfirmStart)
			orders.POST("/finish", h.Execution.MarkFinish)
			orders.POST("/finish/confirm", h.Execution.ConfirmFinish)

			orders.POST("/dispute", h.Disputes.Open)
		}

		protected.GET("/disputes", h.Disputes.List)
		disputes := protected.Group("/disputes/:id")
		disputes.Use(middleware.UUIDValidator("id"))
		{
			disputes.GET("", h.Disputes.Get)
			disputes.POST("/review", h.Disputes.BeginReview)
			disputes.POST("/resolve", h.Disputes.Resolve)
			disputes.POST("/close", h.Disputes.Close)
			disputes.POST("/evidence", h.Disputes.UploadEvidence)
		}

		protected.POST("/payments/:id/hold", middleware.UUIDValidator("id"), h.Payments.Hold)

		protected.GET("/audit", h.Audit.List)
		protected.GET("/audit/verify", h.Audit.Verify)
	}

	return r
}
