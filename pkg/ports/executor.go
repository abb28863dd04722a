package ports

import (
	"context"

	"github.com/acquirelab/threedsflow/pkg/domain"
)

// Step identifies one of the three protocol operations.
type Step int

const (
	StepInitiateAuthentication Step = 1
	StepAuthenticatePayer      Step = 2
	StepAuthorizePay           Step = 3
)

// ExecuteRequest is the payload submitted to the backend executor for one
// step. RequestBody is the literal JSON text to forward to the gateway; the
// executor does not re-validate it against a schema.
type ExecuteRequest struct {
	MerchantID    string `json:"merchantId"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	APIBaseURL    string `json:"apiBaseUrl"`
	APIVersion    string `json:"apiVersion"`
	OrderID       string `json:"orderId"`
	TransactionID string `json:"transactionId"`
	Method        string `json:"method"`
	URL           string `json:"url"`
	RequestBody   string `json:"requestBody"`
}

// Executor dispatches a single step to the backend collaborator that signs
// and forwards the gateway call. Calls are at-most-once: a timeout or
// transport failure is surfaced as an error and never retried automatically.
type Executor interface {
	// Execute submits one step. A non-nil result with Success=false carries
	// the gateway-reported failure payload; a nil result with a non-nil
	// error indicates a transport failure.
	Execute(ctx context.Context, step Step, req ExecuteRequest) (*domain.StepResult, error)

	// TestConfig verifies the merchant credentials and gateway coordinates
	// without starting a transaction.
	TestConfig(ctx context.Context, cfg domain.SessionConfig) error
}
