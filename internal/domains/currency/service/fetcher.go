package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"commerce-backend/pkg/logger"
)

// RateFetcher obtains a live exchange rate from an external provider.
type RateFetcher interface {
	Fetch(ctx context.Context, from, to string) (decimal.Decimal, error)
}

type restyFetcher struct {
	client *resty.Client
	apiKey string
}

// NewRateFetcher builds the HTTP fetcher. The primary provider needs an
// API key; without one only the free fallback provider is tried.
func NewRateFetcher(apiKey string) RateFetcher {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &restyFetcher{client: client, apiKey: apiKey}
}

type exchangeRateAPIResponse struct {
	Result         string  `json:"result"`
	ConversionRate float64 `json:"conversion_rate"`
}

type exchangeHostResponse struct {
	Success bool `json:"success"`
	Info    struct {
		Rate float64 `json:"rate"`
	} `json:"info"`
}

func (f *restyFetcher) Fetch(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if f.apiKey != "" {
		rate, err := f.fetchPrimary(ctx, from, to)
		if err == nil {
			return rate, nil
		}
		logger.Warn("primary exchange rate provider failed", map[string]interface{}{
			"error": err.Error(),
			"pair":  from + "/" + to,
		})
	}
	return f.fetchFallback(ctx, from, to)
}

func (f *restyFetcher) fetchPrimary(ctx context.Context, from, to string) (decimal.Decimal, error) {
	var body exchangeRateAPIResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get(fmt.Sprintf("https://v6.exchangerate-api.com/v6/%s/pair/%s/%s", f.apiKey, from, to))
	if err != nil {
		return decimal.Zero, fmt.Errorf("exchangerate-api request failed: %w", err)
	}
	if resp.IsError() || body.Result != "success" || body.ConversionRate <= 0 {
		return decimal.Zero, fmt.Errorf("exchangerate-api returned no usable rate (status %d)", resp.StatusCode())
	}
	return decimal.NewFromFloat(body.ConversionRate), nil
}

func (f *restyFetcher) fetchFallback(ctx context.Context, from, to string) (decimal.Decimal, error) {
	var body exchangeHostResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"from":   from,
			"to":     to,
			"amount": "1",
		}).
		SetResult(&body).
		Get("https://api.exchangerate.host/convert")
	if err != nil {
		return decimal.Zero, fmt.Errorf("exchangerate.host request failed: %w", err)
	}
	if resp.IsError() || !body.Success || body.Info.Rate <= 0 {
		return decimal.Zero, fmt.Errorf("exchangerate.host returned no usable rate (status %d)", resp.StatusCode())
	}
	return decimal.NewFromFloat(body.Info.Rate), nil
}
