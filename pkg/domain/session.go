package domain

import "time"

// Status is the overall lifecycle state of a session. It advances
// monotonically (ready → step1 → step2 → step3/completed) except on an
// explicit reset.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusReady     Status = "ready"
	StatusStep1     Status = "step1"
	StatusStep2     Status = "step2"
	StatusStep3     Status = "step3"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// StepState holds the editable request and the last observed outcome for one
// of the three protocol steps. It is owned exclusively by the session and
// mutated only through the orchestrator.
type StepState struct {
	Method       string      `json:"method"`
	URL          string      `json:"url"`
	Body         string      `json:"body"`
	BodyValid    bool        `json:"bodyValid"`
	LastResponse *StepResult `json:"lastResponse,omitempty"`
	LastError    string      `json:"lastError,omitempty"`
}

// Succeeded reports whether the step has produced a successful result for
// the current identifiers. It is the gating predicate for the next step.
func (s *StepState) Succeeded() bool {
	return s != nil && s.LastResponse != nil && s.LastResponse.Success
}

// ErrorDetails carries the optional structured explanation of a
// gateway-reported failure.
type ErrorDetails struct {
	Explanation string `json:"explanation,omitempty"`
}

// StepResult is the normalized outcome of one backend executor call. On
// failure the executor's error payload is preserved here so the operator can
// inspect exactly what came back.
type StepResult struct {
	Success               bool           `json:"success"`
	Data                  map[string]any `json:"data,omitempty"`
	AuthenticationStatus  string         `json:"authenticationStatus,omitempty"`
	GatewayRecommendation string         `json:"gatewayRecommendation,omitempty"`
	Result                string         `json:"result,omitempty"`
	GatewayCode           string         `json:"gatewayCode,omitempty"`
	RedirectHTML          string         `json:"redirectHtml,omitempty"`
	Error                 string         `json:"error,omitempty"`
	Details               *ErrorDetails  `json:"details,omitempty"`
}

// Challenge is a pending 3DS challenge extracted from a step-2 response.
//
// HTML is untrusted gateway markup, unescaped once but otherwise untouched.
// Callers that render it MUST isolate it in a fully sandboxed embedded
// browsing context with no access to the parent context; the core performs
// no sanitization. This is a hard contract on the presentation layer.
type Challenge struct {
	HTML        string    `json:"html"`
	PresentedAt time.Time `json:"presentedAt"`
}

// Session is the aggregate root of one test run: identifiers, per-step
// request/response state, pending challenge, and the activity log. It is
// mutated only through orchestrator operations; stores persist and return
// deep copies.
type Session struct {
	ID            string             `json:"id"`
	OrderID       string             `json:"orderId"`
	TransactionID string             `json:"transactionId"`
	Amount        string             `json:"amount"`
	Status        Status             `json:"status"`
	CurrentStep   int                `json:"currentStep"`
	Steps         map[int]*StepState `json:"steps"`
	Challenge     *Challenge         `json:"challenge,omitempty"`
	Config        SessionConfig      `json:"config"`
	Card          TestCard           `json:"card"`
	Log           ActivityLog        `json:"log"`
	CreatedAt     time.Time          `json:"createdAt"`
}

// Step returns the state for step n (1..3), or nil if out of range.
func (s *Session) Step(n int) *StepState {
	if s.Steps == nil {
		return nil
	}
	return s.Steps[n]
}

// Clone returns a deep copy of the session. Stores use it so that callers
// can never mutate persisted state through a shared pointer.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Steps = make(map[int]*StepState, len(s.Steps))
	for n, st := range s.Steps {
		if st == nil {
			continue
		}
		stCopy := *st
		if st.LastResponse != nil {
			respCopy := *st.LastResponse
			if st.LastResponse.Data != nil {
				respCopy.Data = make(map[string]any, len(st.LastResponse.Data))
				for k, v := range st.LastResponse.Data {
					respCopy.Data[k] = v
				}
			}
			if st.LastResponse.Details != nil {
				detCopy := *st.LastResponse.Details
				respCopy.Details = &detCopy
			}
			stCopy.LastResponse = &respCopy
		}
		out.Steps[n] = &stCopy
	}
	if s.Challenge != nil {
		chCopy := *s.Challenge
		out.Challenge = &chCopy
	}
	out.Log = make(ActivityLog, len(s.Log))
	copy(out.Log, s.Log)
	return &out
}
