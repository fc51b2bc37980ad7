package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"commerce-backend/pkg/cache"
	"commerce-backend/pkg/logger"
)

// Converter turns amounts between the pricing currency and the gateway's
// payment currency. Money is rounded half-up to two decimal places.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

type converter struct {
	cache        cache.Cache
	fetcher      RateFetcher
	fallbackRate decimal.Decimal
	cacheTTL     time.Duration
}

// NewConverter wires the rate source chain: cache, live provider, then
// the configured static fallback so checkout never hard-fails on a rate
// provider outage.
func NewConverter(c cache.Cache, fetcher RateFetcher, fallbackRate decimal.Decimal, cacheTTL time.Duration) Converter {
	return &converter{
		cache:        c,
		fetcher:      fetcher,
		fallbackRate: fallbackRate,
		cacheTTL:     cacheTTL,
	}
}

func cacheKey(from, to string) string {
	return fmt.Sprintf("fx:rate:%s:%s", from, to)
}

func (s *converter) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	var cached string
	if found, err := s.cache.Get(ctx, cacheKey(from, to), &cached); err == nil && found {
		if rate, err := decimal.NewFromString(cached); err == nil && rate.IsPositive() {
			return rate, nil
		}
	}

	rate, err := s.fetcher.Fetch(ctx, from, to)
	if err != nil {
		logger.Warn("exchange rate fetch failed, using fallback rate", map[string]interface{}{
			"pair":     from + "/" + to,
			"fallback": s.fallbackRate.String(),
			"error":    err.Error(),
		})
		return s.fallbackRate, nil
	}

	if err := s.cache.Set(ctx, cacheKey(from, to), rate.String(), s.cacheTTL); err != nil {
		logger.Warn("failed to cache exchange rate", map[string]interface{}{
			"pair":  from + "/" + to,
			"error": err.Error(),
		})
	}
	return rate, nil
}

func (s *converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	rate, err := s.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	// Round half-up to cents; decimal.Round is half away from zero, which
	// is half-up for the non-negative amounts money deals in.
	return amount.Mul(rate).Round(2), nil
}
