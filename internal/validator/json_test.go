package validator

import (
	"testing"

	"github.com/acquirelab/threedsflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"empty object", "{}", true},
		{"nested object", `{"order":{"amount":"99.00"}}`, true},
		{"array", `[1,2,3]`, true},
		{"bare string", `"hello"`, true},
		{"unterminated object", "{invalid", false},
		{"trailing comma", `{"a":1,}`, false},
		{"empty input", "", false},
		{"single quotes", `{'a':1}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := JSON(tt.input)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrInvalidBody)
			}
		})
	}
}
