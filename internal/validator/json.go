// Package validator performs local request validation before dispatch.
package validator

import (
	"encoding/json"
	"fmt"

	"github.com/acquirelab/threedsflow/pkg/domain"
)

// JSON checks that text is syntactically valid JSON and returns nil if so.
// It deliberately enforces no schema: the operator must be able to send
// arbitrary well-formed payloads to the gateway for negative testing.
func JSON(text string) error {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidBody, err)
	}
	return nil
}
