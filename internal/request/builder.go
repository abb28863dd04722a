// Package request builds the default gateway request for each protocol step
// from the session's generation-time configuration. The operator may submit
// a default unedited; every build is a complete, valid request.
package request

import (
	"encoding/json"
	"fmt"

	"github.com/acquirelab/threedsflow/internal/ident"
	"github.com/acquirelab/threedsflow/pkg/domain"
)

// DefaultMethod is the gateway's transaction update verb.
const DefaultMethod = "PUT"

// redirectResponseURL is the fixed post-challenge return target used by the
// simulated browser.
const redirectResponseURL = "https://www.mastercard.com"

// Builder produces per-step default requests. The zero value is not usable;
// call NewBuilder.
type Builder struct {
	// correlationID is injectable so tests can pin the one always-fresh field.
	correlationID func() string
}

// Option configures the Builder.
type Option func(*Builder)

// WithCorrelationID overrides the correlation id generator.
func WithCorrelationID(gen func() string) Option {
	return func(b *Builder) {
		b.correlationID = gen
	}
}

// NewBuilder creates a Builder with the standard id generator.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		correlationID: func() string { return ident.New("CORR") },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildStep returns the default method, URL, and body for the given step
// using the session's identifiers and its generation-time config and card.
// Builds are idempotent for the same inputs, except the step-3 correlation
// id which is fresh on every call.
func (b *Builder) BuildStep(step int, sess *domain.Session) (*domain.StepState, error) {
	var body any
	switch step {
	case 1:
		body = initiateAuthenticationBody(sess)
	case 2:
		body = authenticatePayerBody(sess)
	case 3:
		body = authorizePayBody(sess, b.correlationID())
	default:
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownStep, step)
	}

	raw, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal step %d body: %w", step, err)
	}

	return &domain.StepState{
		Method:    DefaultMethod,
		URL:       TransactionURL(sess),
		Body:      string(raw),
		BodyValid: true,
	}, nil
}

// TransactionURL returns the gateway's transaction resource path for the
// session's identifiers.
func TransactionURL(sess *domain.Session) string {
	return fmt.Sprintf("%s/api/rest/version/%s/merchant/%s/order/%s/transaction/%s",
		sess.Config.APIBaseURL,
		sess.Config.APIVersion,
		sess.Config.MerchantID,
		sess.OrderID,
		sess.TransactionID,
	)
}

// Body shapes are structs rather than maps so field order is stable and two
// builds of the same step are byte-identical.

type cardExpiry struct {
	Month string `json:"month"`
	Year  string `json:"year"`
}

type cardDetails struct {
	Number string      `json:"number"`
	Expiry *cardExpiry `json:"expiry,omitempty"`
}

type sourceOfFunds struct {
	Provided struct {
		Card cardDetails `json:"card"`
	} `json:"provided"`
}

func fundsFor(card cardDetails) sourceOfFunds {
	var s sourceOfFunds
	s.Provided.Card = card
	return s
}

func initiateAuthenticationBody(sess *domain.Session) any {
	return struct {
		APIOperation   string `json:"apiOperation"`
		Authentication struct {
			Channel string `json:"channel"`
		} `json:"authentication"`
		Order struct {
			Currency string `json:"currency"`
		} `json:"order"`
		SourceOfFunds sourceOfFunds `json:"sourceOfFunds"`
	}{
		APIOperation: "INITIATE_AUTHENTICATION",
		Authentication: struct {
			Channel string `json:"channel"`
		}{Channel: "PAYER_BROWSER"},
		Order: struct {
			Currency string `json:"currency"`
		}{Currency: sess.Config.Currency},
		SourceOfFunds: fundsFor(cardDetails{Number: sess.Card.Number}),
	}
}

// browserDetails is the fixed simulated device fingerprint sent with the
// payer-authentication request.
type browserDetails struct {
	ChallengeWindowSize string `json:"3DSecureChallengeWindowSize"`
	AcceptHeaders       string `json:"acceptHeaders"`
	ColorDepth          int    `json:"colorDepth"`
	JavaEnabled         bool   `json:"javaEnabled"`
	Language            string `json:"language"`
	ScreenHeight        int    `json:"screenHeight"`
	ScreenWidth         int    `json:"screenWidth"`
	TimeZone            int    `json:"timeZone"`
}

func authenticatePayerBody(sess *domain.Session) any {
	return struct {
		SourceOfFunds sourceOfFunds `json:"sourceOfFunds"`
		Order         struct {
			Amount   string `json:"amount"`
			Currency string `json:"currency"`
		} `json:"order"`
		Authentication struct {
			RedirectResponseURL string `json:"redirectResponseUrl"`
		} `json:"authentication"`
		Device struct {
			Browser        string         `json:"browser"`
			BrowserDetails browserDetails `json:"browserDetails"`
			IPAddress      string         `json:"ipAddress"`
		} `json:"device"`
		APIOperation string `json:"apiOperation"`
	}{
		SourceOfFunds: fundsFor(cardDetails{
			Number: sess.Card.Number,
			Expiry: &cardExpiry{
				Month: sess.Card.ExpiryMonth,
				Year:  sess.Card.ExpiryYear,
			},
		}),
		Order: struct {
			Amount   string `json:"amount"`
			Currency string `json:"currency"`
		}{Amount: sess.Amount, Currency: sess.Config.Currency},
		Authentication: struct {
			RedirectResponseURL string `json:"redirectResponseUrl"`
		}{RedirectResponseURL: redirectResponseURL},
		Device: struct {
			Browser        string         `json:"browser"`
			BrowserDetails browserDetails `json:"browserDetails"`
			IPAddress      string         `json:"ipAddress"`
		}{
			Browser: "MOZILLA",
			BrowserDetails: browserDetails{
				ChallengeWindowSize: "FULL_SCREEN",
				AcceptHeaders:       "application/json",
				ColorDepth:          24,
				JavaEnabled:         true,
				Language:            "en-US",
				ScreenHeight:        640,
				ScreenWidth:         480,
				TimeZone:            273,
			},
			IPAddress: "127.0.0.1",
		},
		APIOperation: "AUTHENTICATE_PAYER",
	}
}

func authorizePayBody(sess *domain.Session, correlationID string) any {
	return struct {
		APIOperation   string `json:"apiOperation"`
		Authentication struct {
			TransactionID string `json:"transactionId"`
		} `json:"authentication"`
		CorrelationID string `json:"correlationId"`
	}{
		APIOperation: "PAY",
		Authentication: struct {
			TransactionID string `json:"transactionId"`
		}{TransactionID: sess.TransactionID},
		CorrelationID: correlationID,
	}
}
