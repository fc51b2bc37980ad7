package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-backend/internal/domains/payment/gateway"
	"commerce-backend/internal/domains/payment/model"
	"commerce-backend/internal/shared/response"
)

type fakeService struct {
	webhookResult *model.OutcomeResult
	webhookErr    error
}

func (f *fakeService) InitiatePayment(ctx context.Context, orderID uuid.UUID) (*model.InitiateResult, error) {
	return nil, nil
}

func (f *fakeService) HandleWebhook(ctx context.Context, n model.WebhookNotification) (*model.OutcomeResult, error) {
	return f.webhookResult, f.webhookErr
}

func (f *fakeService) HandleReturn(ctx context.Context, token string) (string, error) {
	return "https://shop.example.com/checkout/result?status=pending", nil
}

func (f *fakeService) CheckStatus(ctx context.Context, token string) (*model.StatusResult, error) {
	return nil, nil
}

func (f *fakeService) ReconcilePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	return 0, nil
}

type fakeGateway struct {
	verifyErr error
}

func (f *fakeGateway) CreateCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.Checkout, error) {
	return nil, nil
}

func (f *fakeGateway) GetCheckout(ctx context.Context, token string) (*gateway.CheckoutStatus, error) {
	return nil, nil
}

func (f *fakeGateway) VerifyWebhook(r *http.Request, body []byte) error {
	return f.verifyErr
}

func postWebhook(h *Handler, payload interface{}) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/webhooks/paypro", h.Webhook)

	raw, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paypro", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhook_ReplayAnswersOK(t *testing.T) {
	// The gateway retries anything that is not 2xx, so a replayed
	// notification must answer 200 even though nothing changed.
	h := NewHandler(&fakeService{
		webhookResult: &model.OutcomeResult{
			AttemptStatus:    model.AttemptStatusSucceeded,
			AlreadyProcessed: true,
		},
	}, &fakeGateway{})

	w := postWebhook(h, gin.H{
		"transaction": gin.H{"token": "tok-1", "status": "successful"},
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var envelope response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)

	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, true, data["already_processed"])
	assert.Equal(t, false, data["applied"])
}

func TestWebhook_FailedVerificationIsUnauthorized(t *testing.T) {
	h := NewHandler(&fakeService{}, &fakeGateway{verifyErr: errors.New("bad credentials")})

	w := postWebhook(h, gin.H{
		"transaction": gin.H{"token": "tok-1", "status": "successful"},
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhook_MalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewHandler(&fakeService{}, &fakeGateway{})
	router.POST("/webhooks/paypro", h.Webhook)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/paypro", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReturn_AlwaysRedirects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewHandler(&fakeService{}, &fakeGateway{})
	router.GET("/payment/success", h.Return)

	req := httptest.NewRequest(http.MethodGet, "/payment/success?token=tok-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "checkout/result")
}
