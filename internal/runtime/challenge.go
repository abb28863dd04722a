package runtime

import (
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/acquirelab/threedsflow/pkg/domain"
)

// challengeDoc is the typed projection of the loosely-shaped places the
// gateway may put challenge markup inside the response data.
type challengeDoc struct {
	Authentication struct {
		Redirect struct {
			HTML string `mapstructure:"html"`
		} `mapstructure:"redirect"`
		RedirectHTML string `mapstructure:"redirectHtml"`
	} `mapstructure:"authentication"`
}

// challengeRule is one extraction rule. Rules are tried in priority order;
// the first non-empty match wins.
type challengeRule struct {
	name    string
	extract func(doc challengeDoc, result *domain.StepResult) string
}

var challengeRules = []challengeRule{
	{
		name: "data.authentication.redirect.html",
		extract: func(doc challengeDoc, _ *domain.StepResult) string {
			return doc.Authentication.Redirect.HTML
		},
	},
	{
		name: "data.authentication.redirectHtml",
		extract: func(doc challengeDoc, _ *domain.StepResult) string {
			return doc.Authentication.RedirectHTML
		},
	},
	{
		name: "redirectHtml",
		extract: func(_ challengeDoc, result *domain.StepResult) string {
			return result.RedirectHTML
		},
	},
}

// ExtractChallengeHTML searches a step-2 result for challenge markup.
// It returns the raw (still escaped) markup, the name of the rule that
// matched, and whether anything was found. No match means frictionless
// authentication.
func ExtractChallengeHTML(result *domain.StepResult) (html string, rule string, ok bool) {
	var doc challengeDoc
	if result.Data != nil {
		// Decode errors mean the payload doesn't resemble a challenge
		// document at all; the remaining rules still get a chance.
		_ = mapstructure.Decode(result.Data, &doc)
	}
	for _, r := range challengeRules {
		if v := r.extract(doc, result); v != "" {
			return v, r.name, true
		}
	}
	return "", "", false
}

// UnescapeChallengeHTML undoes one level of backslash escaping in the
// challenge markup (`\"` to `"`, `\\` to `\`), as delivered double-encoded
// by the gateway. No other transformation or sanitization is performed; see
// domain.Challenge for the caller's isolation contract.
func UnescapeChallengeHTML(html string) string {
	html = strings.ReplaceAll(html, `\"`, `"`)
	html = strings.ReplaceAll(html, `\\`, `\`)
	return html
}
