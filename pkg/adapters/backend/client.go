// Package backend is the HTTP client for the backend executor: the service
// that signs each gateway call with the merchant credentials and forwards
// it, returning a normalized result.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/acquirelab/threedsflow/pkg/domain"
	"github.com/acquirelab/threedsflow/pkg/ports"
)

// stepRoutes maps each protocol step to its executor endpoint.
var stepRoutes = map[ports.Step]string{
	ports.StepInitiateAuthentication: "/api/initiate-authentication",
	ports.StepAuthenticatePayer:      "/api/authenticate-payer",
	ports.StepAuthorizePay:           "/api/authorize-pay",
}

// Client implements ports.Executor over HTTP.
type Client struct {
	Base string
	HTTP *http.Client
}

// New creates a client for the executor at base. A nil http.Client gets a
// 30 second timeout matching the orchestrator's step budget.
func New(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{Base: strings.TrimRight(base, "/"), HTTP: hc}
}

// Execute submits one step. Transport failures return an error; any response
// with a body, success or failure, is decoded into a StepResult so the
// operator can inspect exactly what came back.
func (c *Client) Execute(ctx context.Context, step ports.Step, req ports.ExecuteRequest) (*domain.StepResult, error) {
	route, ok := stepRoutes[step]
	if !ok {
		return nil, fmt.Errorf("no executor route for step %d", step)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal execute request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+route, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build executor request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executor call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read executor response: %w", err)
	}

	var result domain.StepResult
	if err := json.Unmarshal(raw, &result); err != nil {
		// A body that isn't even JSON is indistinguishable from a broken
		// transport from the operator's point of view.
		return nil, fmt.Errorf("executor status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if resp.StatusCode/100 != 2 {
		result.Success = false
		if result.Error == "" {
			result.Error = fmt.Sprintf("executor returned status %d", resp.StatusCode)
		}
	}
	return &result, nil
}

// TestConfig verifies the merchant credentials against the executor without
// starting a transaction.
func (c *Client) TestConfig(ctx context.Context, cfg domain.SessionConfig) error {
	payload := map[string]string{
		"merchantId": cfg.MerchantID,
		"username":   cfg.Username,
		"password":   cfg.Password,
		"apiBaseUrl": cfg.APIBaseURL,
		"apiVersion": cfg.APIVersion,
	}
	body, _ := json.Marshal(payload)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+"/api/test-config", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build test-config request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("test-config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var failure struct {
			Error   string `json:"error"`
			Details any    `json:"details"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&failure); decodeErr == nil && failure.Error != "" {
			return fmt.Errorf("configuration rejected: %s", failure.Error)
		}
		return fmt.Errorf("test-config status=%d", resp.StatusCode)
	}
	return nil
}
