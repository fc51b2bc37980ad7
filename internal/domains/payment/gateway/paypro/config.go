package paypro

import (
	"fmt"
	"time"
)

const (
	apiVersion   = "2"
	checkoutPath = "/ctp/api/checkouts"
)

type Config struct {
	ShopID    string
	SecretKey string
	BaseURL   string
	Sandbox   bool
	Timeout   time.Duration
}

func (c *Config) Validate() error {
	if c.ShopID == "" {
		return fmt.Errorf("shop_id is required")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret_key is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}
