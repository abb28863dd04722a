package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acquirelab/threedsflow/pkg/adapters/backend"
	"github.com/acquirelab/threedsflow/pkg/ports"
)

func executeRequest() ports.ExecuteRequest {
	return ports.ExecuteRequest{
		MerchantID:    "TESTMERCHANT",
		Username:      "merchant.TESTMERCHANT",
		Password:      "supersecret1",
		APIBaseURL:    "https://mtf.gateway.mastercard.com",
		APIVersion:    "100",
		OrderID:       "ORD_X_1234567",
		TransactionID: "TXN_X_1234567",
		Method:        "PUT",
		URL:           "https://mtf.gateway.mastercard.com/api/rest/version/100/merchant/TESTMERCHANT/order/ORD_X_1234567/transaction/TXN_X_1234567",
		RequestBody:   `{"apiOperation":"INITIATE_AUTHENTICATION"}`,
	}
}

func TestExecute_ForwardsPayloadVerbatim(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":              true,
			"authenticationStatus": "AUTHENTICATION_AVAILABLE",
			"data":                 map[string]any{"order": map[string]any{"id": "ORD_X_1234567"}},
		})
	}))
	defer srv.Close()

	client := backend.New(srv.URL, nil)
	result, err := client.Execute(context.Background(), ports.StepInitiateAuthentication, executeRequest())
	require.NoError(t, err)

	assert.Equal(t, "/api/initiate-authentication", gotPath)
	assert.Equal(t, "TESTMERCHANT", gotBody["merchantId"])
	assert.Equal(t, `{"apiOperation":"INITIATE_AUTHENTICATION"}`, gotBody["requestBody"],
		"request body is forwarded as literal text, not re-encoded")

	assert.True(t, result.Success)
	assert.Equal(t, "AUTHENTICATION_AVAILABLE", result.AuthenticationStatus)
	assert.NotNil(t, result.Data["order"])
}

func TestExecute_StepRoutes(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	client := backend.New(srv.URL, nil)
	ctx := context.Background()
	for _, step := range []ports.Step{ports.StepInitiateAuthentication, ports.StepAuthenticatePayer, ports.StepAuthorizePay} {
		_, err := client.Execute(ctx, step, executeRequest())
		require.NoError(t, err)
	}
	assert.Equal(t, []string{
		"/api/initiate-authentication",
		"/api/authenticate-payer",
		"/api/authorize-pay",
	}, paths)
}

func TestExecute_GatewayFailurePayloadPreserved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":   "gateway rejected request",
			"details": map[string]any{"explanation": "INVALID_CREDENTIALS"},
		})
	}))
	defer srv.Close()

	client := backend.New(srv.URL, nil)
	result, err := client.Execute(context.Background(), ports.StepInitiateAuthentication, executeRequest())
	require.NoError(t, err, "a reported failure is a result, not a transport error")
	assert.False(t, result.Success)
	assert.Equal(t, "gateway rejected request", result.Error)
	require.NotNil(t, result.Details)
	assert.Equal(t, "INVALID_CREDENTIALS", result.Details.Explanation)
}

func TestExecute_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	client := backend.New(srv.URL, nil)
	_, err := client.Execute(context.Background(), ports.StepInitiateAuthentication, executeRequest())
	assert.Error(t, err)
}

func TestTestConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/test-config", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "supersecret1" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid credentials"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	client := backend.New(srv.URL, nil)
	cfg := domainConfig("supersecret1")
	assert.NoError(t, client.TestConfig(context.Background(), cfg))

	bad := domainConfig("wrongpassword")
	err := client.TestConfig(context.Background(), bad)
	assert.ErrorContains(t, err, "invalid credentials")
}
