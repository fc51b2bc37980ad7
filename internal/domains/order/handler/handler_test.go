package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-backend/internal/domains/order/model"
	"commerce-backend/internal/shared/apperrors"
	"commerce-backend/internal/shared/response"
)

type fakeCheckout struct {
	createDirectErr error
}

func (f *fakeCheckout) CreateOrder(ctx context.Context, userID uuid.UUID, req model.CreateOrderRequest) (*model.OrderResponse, error) {
	return nil, f.createDirectErr
}

func (f *fakeCheckout) CreateDirectOrder(ctx context.Context, userID *uuid.UUID, req model.CreateDirectOrderRequest) (*model.OrderResponse, error) {
	return nil, f.createDirectErr
}

func (f *fakeCheckout) GetOrder(ctx context.Context, orderID uuid.UUID) (*model.OrderResponse, error) {
	return nil, apperrors.New(apperrors.KindNotFound, "order not found")
}

func (f *fakeCheckout) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.OrderSummary, error) {
	return nil, nil
}

func (f *fakeCheckout) ListAdmin(ctx context.Context, os, ps string, limit, offset int) ([]model.OrderSummary, error) {
	return nil, nil
}

func (f *fakeCheckout) ListShippingMethods(ctx context.Context) ([]model.ShippingMethod, error) {
	return nil, nil
}

type fakeLifecycle struct {
	applyErr error
}

func (f *fakeLifecycle) ApplyEvent(ctx context.Context, orderID uuid.UUID, event string, tracking *string) (*model.Order, error) {
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	return &model.Order{ID: orderID}, nil
}

func (f *fakeLifecycle) CancelByUser(ctx context.Context, userID, orderID uuid.UUID) (*model.Order, error) {
	return f.ApplyEvent(ctx, orderID, model.EventUserCancel, nil)
}

func (f *fakeLifecycle) BulkApply(ctx context.Context, ids []uuid.UUID, event string) []model.BulkOrderResult {
	return nil
}

func serve(h *Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/orders/create-direct", h.CreateDirect)
	router.POST("/admin/orders/:id/cancel", h.AdminCancel)

	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateDirect_InsufficientStockEnvelope(t *testing.T) {
	deficits := []apperrors.StockDeficit{
		{Line: 0, SKU: "DROP-001", Requested: 3, Available: 1},
	}
	h := NewHandler(&fakeCheckout{createDirectErr: apperrors.InsufficientStock(deficits)}, &fakeLifecycle{})

	w := serve(h, http.MethodPost, "/orders/create-direct", gin.H{
		"email": "buyer@example.com",
		"items": []gin.H{{"sku": "DROP-001", "quantity": 3}},
	})

	assert.Equal(t, http.StatusConflict, w.Code)

	var envelope response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "INSUFFICIENT_STOCK", envelope.ErrorCode)

	details, ok := envelope.ErrorDetails.([]interface{})
	require.True(t, ok, "details carry the per-line deficits")
	line := details[0].(map[string]interface{})
	assert.Equal(t, "DROP-001", line["sku"])
	assert.Equal(t, float64(3), line["requested"])
	assert.Equal(t, float64(1), line["available"])
}

func TestAdminCancel_StateGuardIsConflict(t *testing.T) {
	h := NewHandler(&fakeCheckout{}, &fakeLifecycle{
		applyErr: apperrors.New(apperrors.KindStateGuard, "order already decided"),
	})

	w := serve(h, http.MethodPost, "/admin/orders/"+uuid.NewString()+"/cancel", nil)

	assert.Equal(t, http.StatusConflict, w.Code)

	var envelope response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "STATE_GUARD_VIOLATION", envelope.ErrorCode)
}

func TestAdminCancel_InvalidID(t *testing.T) {
	h := NewHandler(&fakeCheckout{}, &fakeLifecycle{})

	w := serve(h, http.MethodPost, "/admin/orders/not-a-uuid/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
