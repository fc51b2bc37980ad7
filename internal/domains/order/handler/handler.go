package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"commerce-backend/internal/domains/order/model"
	"commerce-backend/internal/domains/order/service"
	"commerce-backend/internal/shared/middleware"
	"commerce-backend/internal/shared/response"
)

type Handler struct {
	checkout  service.CheckoutService
	lifecycle service.LifecycleService
}

func NewHandler(checkout service.CheckoutService, lifecycle service.LifecycleService) *Handler {
	return &Handler{checkout: checkout, lifecycle: lifecycle}
}

// Create handles POST /orders/create: checkout of the caller's cart.
func (h *Handler) Create(c *gin.Context) {
	var req model.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	result, err := h.checkout.CreateOrder(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// CreateDirect handles POST /orders/create-direct: direct buy, guests allowed.
func (h *Handler) CreateDirect(c *gin.Context) {
	var req model.CreateDirectOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	var userID *uuid.UUID
	if id := middleware.UserID(c); id != uuid.Nil {
		userID = &id
	}

	result, err := h.checkout.CreateDirectOrder(c.Request.Context(), userID, req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// Get handles GET /orders/:id. Owners and admins only.
func (h *Handler) Get(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return
	}

	result, err := h.checkout.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	if c.GetString("role") != "admin" && !result.Order.OwnedBy(middleware.UserID(c)) {
		response.NotFound(c, "order not found")
		return
	}

	response.Success(c, http.StatusOK, result)
}

// List handles GET /orders: the caller's own orders.
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, err := h.checkout.ListByUser(c.Request.Context(), middleware.UserID(c), limit, offset)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// Cancel handles POST /orders/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return
	}

	order, err := h.lifecycle.CancelByUser(c.Request.Context(), middleware.UserID(c), orderID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, order)
}

// ListShippingMethods handles GET /shipping-methods (public).
func (h *Handler) ListShippingMethods(c *gin.Context) {
	methods, err := h.checkout.ListShippingMethods(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"shipping_methods": methods})
}

// =====================================================
// ADMIN HANDLERS
// =====================================================

// AdminList handles GET /admin/orders with status filters.
func (h *Handler) AdminList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, err := h.checkout.ListAdmin(c.Request.Context(),
		c.Query("order_status"), c.Query("payment_status"), limit, offset)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// AdminCancel handles POST /admin/orders/:id/cancel.
func (h *Handler) AdminCancel(c *gin.Context) {
	h.applyAdminEvent(c, model.EventAdminCancel, nil)
}

// AdminShip handles POST /admin/orders/:id/ship.
func (h *Handler) AdminShip(c *gin.Context) {
	var req model.ShipOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION", "invalid request", err)
		return
	}
	h.applyAdminEvent(c, model.EventAdminShip, &req.TrackingNumber)
}

// AdminDeliver handles POST /admin/orders/:id/deliver.
func (h *Handler) AdminDeliver(c *gin.Context) {
	h.applyAdminEvent(c, model.EventAdminDeliver, nil)
}

func (h *Handler) applyAdminEvent(c *gin.Context, event string, trackingNumber *string) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return
	}

	order, err := h.lifecycle.ApplyEvent(c.Request.Context(), orderID, event, trackingNumber)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, order)
}

// BulkCancel handles POST /admin/orders/bulk-cancel.
func (h *Handler) BulkCancel(c *gin.Context) {
	h.bulk(c, model.EventAdminCancel)
}

// BulkFulfill handles POST /admin/orders/bulk-fulfill: manual payment
// capture for orders settled outside the gateway.
func (h *Handler) BulkFulfill(c *gin.Context) {
	h.bulk(c, model.EventPaymentSucceeded)
}

func (h *Handler) bulk(c *gin.Context, event string) {
	var req model.BulkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION", "invalid request", err)
		return
	}

	results := h.lifecycle.BulkApply(c.Request.Context(), req.OrderIDs, event)

	applied := 0
	for _, r := range results {
		if r.Applied {
			applied++
		}
	}
	response.Success(c, http.StatusOK, gin.H{"results": results, "applied": applied})
}
