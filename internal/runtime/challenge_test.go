package runtime

import (
	"testing"

	"github.com/acquirelab/threedsflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestUnescapeChallengeHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"escaped quotes", `<div class=\"challenge\">`, `<div class="challenge">`},
		{"escaped backslashes", `path\\to\\file`, `path\to\file`},
		{"mixed", `<a href=\"x\\y\">`, `<a href="x\y">`},
		{"no escapes untouched", `<html><body>ok</body></html>`, `<html><body>ok</body></html>`},
		{"single pass only", `\\\"`, `\"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UnescapeChallengeHTML(tt.in))
		})
	}
}

func TestExtractChallengeHTML_PriorityOrder(t *testing.T) {
	nested := &domain.StepResult{
		Success: true,
		Data: map[string]any{
			"authentication": map[string]any{
				"redirect":     map[string]any{"html": "<form>nested</form>"},
				"redirectHtml": "<form>flat</form>",
			},
		},
		RedirectHTML: "<form>top</form>",
	}
	html, rule, ok := ExtractChallengeHTML(nested)
	assert.True(t, ok)
	assert.Equal(t, "<form>nested</form>", html)
	assert.Equal(t, "data.authentication.redirect.html", rule)

	flat := &domain.StepResult{
		Success: true,
		Data: map[string]any{
			"authentication": map[string]any{"redirectHtml": "<form>flat</form>"},
		},
		RedirectHTML: "<form>top</form>",
	}
	html, rule, ok = ExtractChallengeHTML(flat)
	assert.True(t, ok)
	assert.Equal(t, "<form>flat</form>", html)
	assert.Equal(t, "data.authentication.redirectHtml", rule)

	top := &domain.StepResult{Success: true, RedirectHTML: "<form>top</form>"}
	html, rule, ok = ExtractChallengeHTML(top)
	assert.True(t, ok)
	assert.Equal(t, "<form>top</form>", html)
	assert.Equal(t, "redirectHtml", rule)
}

func TestExtractChallengeHTML_Frictionless(t *testing.T) {
	result := &domain.StepResult{
		Success: true,
		Data: map[string]any{
			"authentication": map[string]any{"status": "AUTHENTICATION_SUCCESSFUL"},
		},
	}
	_, _, ok := ExtractChallengeHTML(result)
	assert.False(t, ok)
}

func TestExtractChallengeHTML_IgnoresMalformedData(t *testing.T) {
	result := &domain.StepResult{
		Success:      true,
		Data:         map[string]any{"authentication": "not-an-object"},
		RedirectHTML: "<form>top</form>",
	}
	html, rule, ok := ExtractChallengeHTML(result)
	assert.True(t, ok)
	assert.Equal(t, "<form>top</form>", html)
	assert.Equal(t, "redirectHtml", rule)
}
