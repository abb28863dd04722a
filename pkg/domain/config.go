package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// SessionConfig holds the merchant credentials and gateway coordinates used
// to seed request templates. It is copied into the session at creation time;
// later edits to the source configuration never mutate an existing session.
type SessionConfig struct {
	MerchantID string `json:"merchantId" koanf:"merchant_id"`
	Username   string `json:"username" koanf:"username"`
	Password   string `json:"password" koanf:"password"`
	APIBaseURL string `json:"apiBaseUrl" koanf:"api_base_url"`
	APIVersion string `json:"apiVersion" koanf:"api_version"`
	Currency   string `json:"currency" koanf:"currency"`
	MCC        string `json:"mcc" koanf:"mcc"`
}

// Validate checks the configuration the same way the settings surface does
// before a test run is allowed to start.
func (c SessionConfig) Validate() error {
	if c.MerchantID == "" {
		return fmt.Errorf("merchant ID is required")
	}
	if c.Username == "" {
		return fmt.Errorf("API username is required")
	}
	if c.Password == "" {
		return fmt.Errorf("API password is required")
	}
	if len(c.Password) < 8 {
		return fmt.Errorf("API password must be at least 8 characters")
	}
	if c.APIBaseURL == "" {
		return fmt.Errorf("gateway URL is required")
	}
	if !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("gateway URL must use https")
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("currency must be a 3-letter ISO code")
	}
	return nil
}

// TestCard is the card used to seed default request bodies. Like
// SessionConfig, it is copied into the session as a generation-time value.
type TestCard struct {
	Number      string `json:"cardNumber" koanf:"number"`
	ExpiryMonth string `json:"expiryMonth" koanf:"expiry_month"`
	ExpiryYear  string `json:"expiryYear" koanf:"expiry_year"`
	CVV         string `json:"cvv" koanf:"cvv"`
}

// Validate checks the card fields against the same rules as the settings
// surface: PAN length 13-19 and expiry month 1-12.
func (c TestCard) Validate() error {
	if c.Number == "" {
		return fmt.Errorf("card number is required")
	}
	if len(c.Number) < 13 || len(c.Number) > 19 {
		return fmt.Errorf("card number must be 13-19 digits")
	}
	if c.ExpiryMonth == "" || c.ExpiryYear == "" {
		return fmt.Errorf("expiry date is required")
	}
	month, err := strconv.Atoi(c.ExpiryMonth)
	if err != nil || month < 1 || month > 12 {
		return fmt.Errorf("invalid expiry month")
	}
	return nil
}
