package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"commerce-backend/internal/shared/middleware"
	"commerce-backend/internal/shared/response"
	"commerce-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		setupPublicRoutes(v1, c)
		setupOrderRoutes(v1, c)
		setupPaymentRoutes(v1, c)
		setupWebhookRoutes(v1, c)
		setupAdminRoutes(v1, c)
	}

	return router
}

// ========================================
// PUBLIC ROUTES
// ========================================
func setupPublicRoutes(v1 *gin.RouterGroup, c *container.Container) {
	v1.POST("/inventory/check", c.InventoryHandler.CheckAvailability)
	v1.GET("/shipping-methods", c.OrderHandler.ListShippingMethods)
}

// ========================================
// ORDER ROUTES
// ========================================
func setupOrderRoutes(v1 *gin.RouterGroup, c *container.Container) {
	secret := c.Config.JWT.Secret

	// Direct buy accepts guests; they identify with an email instead.
	v1.POST("/orders/create-direct", middleware.OptionalAuth(secret), c.OrderHandler.CreateDirect)

	orders := v1.Group("/orders")
	orders.Use(middleware.Auth(secret))
	{
		orders.POST("/create", c.OrderHandler.Create)
		orders.GET("", c.OrderHandler.List)
		orders.GET("/:id", c.OrderHandler.Get)
		orders.POST("/:id/cancel", c.OrderHandler.Cancel)
	}

	reservations := v1.Group("/reservations")
	reservations.Use(middleware.Auth(secret))
	{
		reservations.GET("/mine", c.ReservationHandler.Mine)
	}
}

// ========================================
// PAYMENT ROUTES
// ========================================
func setupPaymentRoutes(v1 *gin.RouterGroup, c *container.Container) {
	secret := c.Config.JWT.Secret

	payments := v1.Group("/payments")
	payments.Use(middleware.OptionalAuth(secret))
	{
		payments.POST("/initiate", c.PaymentHandler.Initiate)
		payments.GET("/status", c.PaymentHandler.Status)
	}

	// Browser return targets. The handler re-verifies with the gateway, so
	// the four paths only differ in what the customer clicked.
	payment := v1.Group("/payment")
	{
		payment.GET("/success", c.PaymentHandler.Return)
		payment.GET("/declined", c.PaymentHandler.Return)
		payment.GET("/failed", c.PaymentHandler.Return)
		payment.GET("/cancelled", c.PaymentHandler.Return)
	}
}

// ========================================
// WEBHOOK ROUTES
// ========================================
func setupWebhookRoutes(v1 *gin.RouterGroup, c *container.Container) {
	v1.POST("/webhooks/paypro", c.PaymentHandler.Webhook)
}

// ========================================
// ADMIN ROUTES
// ========================================
func setupAdminRoutes(v1 *gin.RouterGroup, c *container.Container) {
	admin := v1.Group("/admin")
	admin.Use(middleware.Auth(c.Config.JWT.Secret), middleware.Admin())
	{
		admin.GET("/orders", c.OrderHandler.AdminList)
		admin.GET("/orders/:id/reservations", c.ReservationHandler.ByOrder)
		admin.POST("/orders/:id/cancel", c.OrderHandler.AdminCancel)
		admin.POST("/orders/:id/ship", c.OrderHandler.AdminShip)
		admin.POST("/orders/:id/deliver", c.OrderHandler.AdminDeliver)
		admin.POST("/orders/bulk-cancel", c.OrderHandler.BulkCancel)
		admin.POST("/orders/bulk-fulfill", c.OrderHandler.BulkFulfill)

		admin.GET("/inventory/dashboard", c.InventoryHandler.Dashboard)
		admin.GET("/inventory/low-stock", c.InventoryHandler.LowStock)
		admin.POST("/inventory/bulk-update", c.InventoryHandler.BulkUpdate)
	}
}

func healthCheckHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		status := gin.H{"status": "ok"}
		code := http.StatusOK

		if err := c.DB.HealthCheck(ctx.Request.Context()); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if err := c.Cache.Ping(ctx.Request.Context()); err != nil {
			status["status"] = "degraded"
			status["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		}

		response.Success(ctx, code, status)
	}
}
