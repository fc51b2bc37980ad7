package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"commerce-backend/internal/domains/reservation/service"
	"commerce-backend/internal/shared/middleware"
	"commerce-backend/internal/shared/response"
)

type Handler struct {
	store service.Store
}

func NewHandler(store service.Store) *Handler {
	return &Handler{store: store}
}

// Mine handles GET /reservations/mine: the caller's active holds with
// their countdowns.
func (h *Handler) Mine(c *gin.Context) {
	reservations, err := h.store.ListActiveByUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reservations": reservations, "count": len(reservations)})
}

// ByOrder handles GET /admin/orders/:id/reservations.
func (h *Handler) ByOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return
	}

	reservations, err := h.store.ListByOrder(c.Request.Context(), orderID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reservations": reservations, "count": len(reservations)})
}
