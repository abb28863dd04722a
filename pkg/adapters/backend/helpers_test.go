package backend_test

import "github.com/acquirelab/threedsflow/pkg/domain"

func domainConfig(password string) domain.SessionConfig {
	return domain.SessionConfig{
		MerchantID: "TESTMERCHANT",
		Username:   "merchant.TESTMERCHANT",
		Password:   password,
		APIBaseURL: "https://mtf.gateway.mastercard.com",
		APIVersion: "100",
		Currency:   "USD",
		MCC:        "1242",
	}
}
