package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"commerce-backend/internal/domains/inventory/model"
	"commerce-backend/internal/domains/inventory/service"
	"commerce-backend/internal/shared/response"
)

type Handler struct {
	service service.Service
}

func NewHandler(service service.Service) *Handler {
	return &Handler{service: service}
}

// CheckAvailability handles POST /inventory/check (public).
func (h *Handler) CheckAvailability(c *gin.Context) {
	var req model.CheckAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	results, err := h.service.CheckAvailability(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"items": results})
}

// Dashboard handles GET /admin/inventory/dashboard.
func (h *Handler) Dashboard(c *gin.Context) {
	dashboard, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, dashboard)
}

// LowStock handles GET /admin/inventory/low-stock.
func (h *Handler) LowStock(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	items, err := h.service.ListLowStock(c.Request.Context(), limit)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// BulkUpdate handles POST /admin/inventory/bulk-update.
func (h *Handler) BulkUpdate(c *gin.Context) {
	var req model.BulkAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	results, err := h.service.BulkAdjust(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}
