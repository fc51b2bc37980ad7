package paypro

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"commerce-backend/internal/domains/payment/gateway"
	"commerce-backend/internal/shared/apperrors"
)

// =====================================================
// PAYPRO CLIENT
// =====================================================

type Client struct {
	config     *Config
	httpClient *http.Client
}

func NewClient(config *Config) (gateway.Gateway, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid paypro config: %w", err)
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

func (c *Client) CreateCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.Checkout, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.New(apperrors.KindValidation, "amount must be positive")
	}

	body := checkoutRequest{
		Checkout: checkoutBody{
			Test:            c.config.Sandbox,
			TransactionType: "payment",
			Order: orderBody{
				Amount:      minorUnits(req.Amount),
				Currency:    req.Currency,
				Description: req.Description,
				TrackingID:  req.OrderID.String(),
			},
			Settings: settingsBody{
				SuccessURL:      req.ReturnURLs.Success,
				DeclineURL:      req.ReturnURLs.Decline,
				FailURL:         req.ReturnURLs.Fail,
				CancelURL:       req.ReturnURLs.Cancel,
				NotificationURL: req.NotificationURL,
				Language:        "en",
			},
		},
	}
	if req.CustomerEmail != "" {
		body.Checkout.Customer = &customerBody{Email: req.CustomerEmail}
	}

	var resp checkoutResponse
	if err := c.do(ctx, http.MethodPost, checkoutPath, body, &resp); err != nil {
		return nil, err
	}
	if resp.Checkout.Token == "" || resp.Checkout.RedirectURL == "" {
		return nil, apperrors.New(apperrors.KindGatewayRejection, "gateway returned no checkout token")
	}

	return &gateway.Checkout{
		Token:       resp.Checkout.Token,
		RedirectURL: resp.Checkout.RedirectURL,
	}, nil
}

func (c *Client) GetCheckout(ctx context.Context, token string) (*gateway.CheckoutStatus, error) {
	if token == "" {
		return nil, apperrors.New(apperrors.KindValidation, "checkout token is required")
	}

	var resp checkoutStatusResponse
	if err := c.do(ctx, http.MethodGet, checkoutPath+"/"+token, nil, &resp); err != nil {
		return nil, err
	}

	raw := map[string]interface{}{
		"token":       resp.Checkout.Token,
		"status":      resp.Checkout.Status,
		"tracking_id": resp.Checkout.Order.TrackingID,
	}
	return &gateway.CheckoutStatus{
		Token:      resp.Checkout.Token,
		Status:     resp.Checkout.Status,
		TrackingID: resp.Checkout.Order.TrackingID,
		Raw:        raw,
	}, nil
}

// VerifyWebhook checks the basic-auth credentials the gateway signs its
// notifications with.
func (c *Client) VerifyWebhook(r *http.Request, body []byte) error {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return apperrors.New(apperrors.KindGatewayRejection, "webhook is missing credentials")
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(c.config.ShopID)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(c.config.SecretKey)) == 1
	if !userOK || !passOK {
		return apperrors.New(apperrors.KindGatewayRejection, "webhook credentials mismatch")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal gateway request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	httpReq.SetBasicAuth(c.config.ShopID, c.config.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-API-Version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return apperrors.Wrap(apperrors.KindGatewayTimeout, "gateway request timed out", err)
		}
		return apperrors.Wrap(apperrors.KindGatewayUnreachable, "gateway is unreachable", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.Wrap(apperrors.KindGatewayUnreachable, "failed to read gateway response", err)
	}

	if resp.StatusCode >= 400 {
		msg := rejectionMessage(bodyBytes)
		return apperrors.New(apperrors.KindGatewayRejection,
			fmt.Sprintf("gateway rejected the request (status %d): %s", resp.StatusCode, msg))
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return apperrors.Wrap(apperrors.KindGatewayRejection, "gateway returned malformed response", err)
	}
	return nil
}

func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func rejectionMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
