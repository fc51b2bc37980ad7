package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"commerce-backend/internal/domains/payment/gateway"
	"commerce-backend/internal/domains/payment/model"
	"commerce-backend/internal/domains/payment/service"
	"commerce-backend/internal/shared/response"
	"commerce-backend/pkg/logger"
)

type Handler struct {
	service service.Service
	gateway gateway.Gateway
}

func NewHandler(svc service.Service, gw gateway.Gateway) *Handler {
	return &Handler{service: svc, gateway: gw}
}

type initiateRequest struct {
	OrderID string `json:"order_id"`
}

func (r initiateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OrderID, validation.Required, is.UUID),
	)
}

// Initiate handles POST /payments/initiate.
func (h *Handler) Initiate(c *gin.Context) {
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION", "invalid request", err)
		return
	}
	orderID, _ := uuid.Parse(req.OrderID)

	result, err := h.service.InitiatePayment(c.Request.Context(), orderID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// Status handles GET /payments/status?token=...
func (h *Handler) Status(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.BadRequest(c, "missing checkout token")
		return
	}

	result, err := h.service.CheckStatus(c.Request.Context(), token)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Webhook handles POST /webhooks/paypro. The gateway retries until it
// sees 2xx, so replays of settled notifications answer 200.
func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		response.BadRequest(c, "failed to read body")
		return
	}

	if err := h.gateway.VerifyWebhook(c.Request, body); err != nil {
		logger.Warn("rejected webhook", map[string]interface{}{"error": err.Error()})
		response.Unauthorized(c, "webhook verification failed")
		return
	}

	var notification model.WebhookNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		response.BadRequest(c, "malformed notification")
		return
	}

	result, err := h.service.HandleWebhook(c.Request.Context(), notification)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Return handles the browser redirects GET /payment/success, /declined,
// /failed and /cancelled. The path's claim is discarded; the outcome is
// re-read from the gateway before the customer is forwarded on.
func (h *Handler) Return(c *gin.Context) {
	token := c.Query("token")

	redirect, err := h.service.HandleReturn(c.Request.Context(), token)
	if err != nil {
		logger.Warn("payment return failed", map[string]interface{}{
			"token": token,
			"error": err.Error(),
		})
	}

	c.Redirect(http.StatusFound, redirect)
}
