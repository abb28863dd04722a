package threedsflow_test

import (
	"context"
	"fmt"
	"log"

	"github.com/acquirelab/threedsflow"
	"github.com/acquirelab/threedsflow/pkg/domain"
	"github.com/acquirelab/threedsflow/pkg/ports"
)

// gatewayStub stands in for the backend executor so the example runs
// without a gateway sandbox.
type gatewayStub struct{}

func (gatewayStub) Execute(_ context.Context, step ports.Step, _ ports.ExecuteRequest) (*domain.StepResult, error) {
	result := &domain.StepResult{Success: true}
	if step == ports.StepAuthorizePay {
		result.GatewayCode = "APPROVED"
	}
	return result, nil
}

func (gatewayStub) TestConfig(context.Context, domain.SessionConfig) error { return nil }

// ExampleHarness drives a frictionless run end to end: start a session,
// execute the three steps in order, and read the final status.
func ExampleHarness() {
	h := threedsflow.New(gatewayStub{})
	ctx := context.Background()

	cfg := domain.SessionConfig{
		MerchantID: "TESTMERCHANT",
		Username:   "merchant.TESTMERCHANT",
		Password:   "supersecret",
		APIBaseURL: "https://mtf.gateway.mastercard.com",
		APIVersion: "100",
		Currency:   "USD",
		MCC:        "1242",
	}
	card := domain.TestCard{Number: "5123450000000008", ExpiryMonth: "12", ExpiryYear: "39", CVV: "100"}

	sess, err := h.StartSession(ctx, cfg, card, threedsflow.StartParams{Amount: "25.00"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("status:", sess.Status)

	for step := 1; step <= 3; step++ {
		if _, _, err := h.ExecuteStep(ctx, sess.ID, step); err != nil {
			log.Fatal(err)
		}
	}

	final, err := h.Session(ctx, sess.ID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("status:", final.Status)

	// Output:
	// status: ready
	// status: completed
}
