// Package runtime implements the transaction orchestrator: the stateful
// sequencer that builds default requests, gates step ordering, dispatches
// steps to the backend executor, and records the audit log.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/acquirelab/threedsflow/internal/ident"
	"github.com/acquirelab/threedsflow/internal/logging"
	"github.com/acquirelab/threedsflow/internal/metrics"
	"github.com/acquirelab/threedsflow/internal/request"
	"github.com/acquirelab/threedsflow/internal/validator"
	"github.com/acquirelab/threedsflow/pkg/domain"
	"github.com/acquirelab/threedsflow/pkg/ports"
)

// executeTimeout bounds one backend executor call. There is no manual abort;
// the timeout is the only cancellation mechanism.
const executeTimeout = 30 * time.Second

var stepNames = map[int]string{
	1: "Initiate Authentication",
	2: "Authenticate Payer",
	3: "Authorize/Pay",
}

// Orchestrator drives a session through the three-step flow. It is the only
// mutator of a session; callers serialize access per session (one operator,
// or the session manager's lock).
type Orchestrator struct {
	executor ports.Executor
	builder  *request.Builder
	logger   *slog.Logger
	metrics  *metrics.Metrics
	newID    func(prefix string) string
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a structured logger for engine-side diagnostics. The
// session's own activity log is unaffected.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMetrics enables Prometheus collectors for step executions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithBuilder overrides the template builder.
func WithBuilder(b *request.Builder) Option {
	return func(o *Orchestrator) {
		o.builder = b
	}
}

// WithIDGenerator overrides identifier generation, for deterministic tests.
func WithIDGenerator(gen func(prefix string) string) Option {
	return func(o *Orchestrator) {
		o.newID = gen
	}
}

// New creates an Orchestrator dispatching to the given executor.
func New(executor ports.Executor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		executor: executor,
		builder:  request.NewBuilder(),
		logger:   logging.NewNop(),
		newID:    ident.New,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StartParams are the operator-supplied values for a new session. Empty
// OrderID/TransactionID are generated.
type StartParams struct {
	OrderID       string
	TransactionID string
	Amount        string
}

// NewSession validates the configuration and card, generates identifiers,
// builds the three default step requests, and returns a session in the
// ready state with an initialization log entry.
func (o *Orchestrator) NewSession(cfg domain.SessionConfig, card domain.TestCard, params StartParams) (*domain.Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := card.Validate(); err != nil {
		return nil, fmt.Errorf("invalid test card: %w", err)
	}
	if err := validateAmount(params.Amount); err != nil {
		return nil, err
	}

	sess := &domain.Session{
		ID:            uuid.NewString(),
		OrderID:       params.OrderID,
		TransactionID: params.TransactionID,
		Amount:        params.Amount,
		Status:        domain.StatusReady,
		Config:        cfg,
		Card:          card,
		CreatedAt:     time.Now().UTC(),
	}
	if sess.OrderID == "" {
		sess.OrderID = o.newID("ORD")
	}
	if sess.TransactionID == "" {
		sess.TransactionID = o.newID("TXN")
	}

	if err := o.buildAllSteps(sess); err != nil {
		return nil, err
	}

	sess.Log.Append(domain.LogInfo,
		fmt.Sprintf("Initialized transaction: %s / %s", sess.OrderID, sess.TransactionID), nil)
	o.logger.Info("session started",
		"session_id", sess.ID,
		"order_id", sess.OrderID,
		"transaction_id", sess.TransactionID,
	)
	return sess, nil
}

func validateAmount(amount string) error {
	if amount == "" {
		return fmt.Errorf("amount is required")
	}
	v, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return fmt.Errorf("amount must be a decimal number")
	}
	if v <= 0 {
		return fmt.Errorf("amount must be greater than zero")
	}
	return nil
}

func (o *Orchestrator) buildAllSteps(sess *domain.Session) error {
	sess.Steps = make(map[int]*domain.StepState, 3)
	for step := 1; step <= 3; step++ {
		st, err := o.builder.BuildStep(step, sess)
		if err != nil {
			return err
		}
		sess.Steps[step] = st
	}
	return nil
}

// UpdateStepRequest applies an operator edit to a step's method, URL, and
// body. The body is validated on every edit; an invalid body is stored (so
// the operator keeps their text) but marked invalid, which blocks dispatch.
func (o *Orchestrator) UpdateStepRequest(sess *domain.Session, step int, method, url, body string) error {
	st := sess.Step(step)
	if st == nil {
		return fmt.Errorf("%w: %d", domain.ErrUnknownStep, step)
	}

	st.Method = strings.ToUpper(method)
	st.URL = url
	st.Body = body
	if err := validator.JSON(body); err != nil {
		st.BodyValid = false
		st.LastError = err.Error()
		return err
	}
	st.BodyValid = true
	st.LastError = ""
	return nil
}

// ResetStep rebuilds a single step's default request, clearing its last
// response and error. Identifiers and other steps are untouched.
func (o *Orchestrator) ResetStep(sess *domain.Session, step int) error {
	if sess.Step(step) == nil {
		return fmt.Errorf("%w: %d", domain.ErrUnknownStep, step)
	}
	st, err := o.builder.BuildStep(step, sess)
	if err != nil {
		return err
	}
	sess.Steps[step] = st
	sess.Log.Append(domain.LogInfo, fmt.Sprintf("Step %d reset to default values", step), nil)
	return nil
}

// Reset re-initializes the session: fresh identifiers, rebuilt templates,
// cleared responses, challenge, and log. Status returns to ready and
// currentStep to 0.
func (o *Orchestrator) Reset(sess *domain.Session) error {
	sess.OrderID = o.newID("ORD")
	sess.TransactionID = o.newID("TXN")
	sess.Status = domain.StatusReady
	sess.CurrentStep = 0
	sess.Challenge = nil
	sess.Log = nil
	return o.buildAllSteps(sess)
}

// MarkFailed records that the operator abandoned the run after an
// unrecoverable failure. Terminal until reset.
func (o *Orchestrator) MarkFailed(sess *domain.Session, reason string) {
	sess.Status = domain.StatusError
	sess.Log.Append(domain.LogError, fmt.Sprintf("Session marked failed: %s", reason), nil)
}

// ExecuteStep dispatches one step to the backend executor.
//
// Preconditions are checked locally first: the stored body must be valid
// JSON, step N-1 must have succeeded, and no challenge may be pending before
// step 3. Precondition failures return an error without any network call.
//
// The call itself is at-most-once with a 30 second budget. A transport or
// gateway-reported failure is stored on the step (retryable, status
// unchanged) and returned as a non-success result with a nil error.
func (o *Orchestrator) ExecuteStep(ctx context.Context, sess *domain.Session, step int) (*domain.StepResult, error) {
	st := sess.Step(step)
	if st == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownStep, step)
	}
	if sess.Status == domain.StatusCompleted {
		return nil, domain.ErrSessionCompleted
	}

	if err := validator.JSON(st.Body); err != nil {
		st.BodyValid = false
		st.LastError = err.Error()
		return nil, err
	}
	st.BodyValid = true

	switch step {
	case 2:
		if !sess.Step(1).Succeeded() {
			return nil, fmt.Errorf("step 2: %w", domain.ErrStepOrder)
		}
	case 3:
		if !sess.Step(2).Succeeded() {
			return nil, fmt.Errorf("step 3: %w", domain.ErrStepOrder)
		}
		if sess.Challenge != nil {
			return nil, domain.ErrChallengePending
		}
	}

	if step <= 2 {
		sess.Log.Append(domain.LogInfo,
			fmt.Sprintf("Starting Step %d: %s", step, stepNames[step]), nil)
	}

	result := o.dispatch(ctx, sess, step, st)
	if !result.Success {
		return result, nil
	}

	st.LastResponse = result
	st.LastError = ""
	if step > sess.CurrentStep {
		sess.CurrentStep = step
	}

	switch step {
	case 1:
		sess.Status = domain.StatusStep1
		sess.Log.Append(domain.LogSuccess, "Step 1 completed successfully", map[string]any{
			"authenticationStatus":  result.AuthenticationStatus,
			"gatewayRecommendation": result.GatewayRecommendation,
		})
	case 2:
		sess.Status = domain.StatusStep2
		sess.Log.Append(domain.LogSuccess, "Step 2 completed successfully", map[string]any{
			"authenticationStatus": result.AuthenticationStatus,
		})
		o.gateChallenge(sess, result)
	case 3:
		sess.Status = domain.StatusCompleted
		if result.Result == "SUCCESS" && result.GatewayCode == "APPROVED" {
			sess.Log.Append(domain.LogSuccess, "Payment APPROVED - Step 3 completed successfully", map[string]any{
				"result":      result.Result,
				"gatewayCode": result.GatewayCode,
			})
		} else {
			sess.Log.Append(domain.LogWarning,
				fmt.Sprintf("Payment result: %s, Gateway code: %s", result.Result, result.GatewayCode),
				map[string]any{
					"result":      result.Result,
					"gatewayCode": result.GatewayCode,
				})
		}
	}

	return result, nil
}

// dispatch performs the bounded executor call and normalizes every failure
// mode into a stored, inspectable result. Session status is only advanced by
// the caller on success.
func (o *Orchestrator) dispatch(ctx context.Context, sess *domain.Session, step int, st *domain.StepState) *domain.StepResult {
	req := ports.ExecuteRequest{
		MerchantID:    sess.Config.MerchantID,
		Username:      sess.Config.Username,
		Password:      sess.Config.Password,
		APIBaseURL:    sess.Config.APIBaseURL,
		APIVersion:    sess.Config.APIVersion,
		OrderID:       sess.OrderID,
		TransactionID: sess.TransactionID,
		Method:        st.Method,
		URL:           st.URL,
		RequestBody:   st.Body,
	}

	ctx, cancel := context.WithTimeout(ctx, executeTimeout)
	defer cancel()

	started := time.Now()
	result, err := o.executor.Execute(ctx, ports.Step(step), req)
	elapsed := time.Since(started)

	label := strconv.Itoa(step)
	if err != nil {
		// Transport failure: synthesize an error payload so the operator can
		// inspect it like any gateway-reported failure.
		result = &domain.StepResult{Success: false, Error: err.Error()}
		st.LastResponse = result
		st.LastError = err.Error()
		sess.Log.Append(domain.LogError,
			fmt.Sprintf("Step %d failed: %s", step, err.Error()), result)
		o.metrics.ObserveStep(label, "transport_error", elapsed.Seconds())
		o.logger.Warn("step transport failure", "session_id", sess.ID, "step", step, "err", err)
		return result
	}
	if !result.Success {
		msg := failureMessage(result)
		st.LastResponse = result
		st.LastError = msg
		sess.Log.Append(domain.LogError,
			fmt.Sprintf("Step %d failed: %s", step, msg), result)
		o.metrics.ObserveStep(label, "gateway_error", elapsed.Seconds())
		o.logger.Warn("step rejected by gateway", "session_id", sess.ID, "step", step, "reason", msg)
		return result
	}

	o.metrics.ObserveStep(label, "success", elapsed.Seconds())
	return result
}

// failureMessage surfaces the gateway's explanation verbatim when present.
func failureMessage(result *domain.StepResult) string {
	if result.Details != nil && result.Details.Explanation != "" {
		return result.Details.Explanation
	}
	if result.Error != "" {
		return result.Error
	}
	return "step failed"
}

// gateChallenge inspects a successful step-2 result for a challenge document
// and, when found, blocks progression until the operator resolves it.
func (o *Orchestrator) gateChallenge(sess *domain.Session, result *domain.StepResult) {
	html, rule, ok := ExtractChallengeHTML(result)
	if !ok {
		sess.Log.Append(domain.LogInfo, "Frictionless authentication - no challenge required", nil)
		return
	}

	sess.Challenge = &domain.Challenge{
		HTML:        UnescapeChallengeHTML(html),
		PresentedAt: time.Now().UTC(),
	}
	sess.Log.Append(domain.LogInfo, "3DS Challenge required - awaiting operator", map[string]any{
		"source": rule,
	})
	o.metrics.ObserveChallenge()
	o.logger.Info("challenge presented", "session_id", sess.ID, "source", rule)
}

// ResolveChallenge signals that the operator completed the interactive
// challenge. It clears the gate and triggers step 3 exactly once.
func (o *Orchestrator) ResolveChallenge(ctx context.Context, sess *domain.Session) (*domain.StepResult, error) {
	if sess.Challenge == nil {
		return nil, domain.ErrNoChallengePending
	}
	sess.Challenge = nil
	sess.Log.Append(domain.LogInfo, "3DS challenge completed - proceeding to Step 3", nil)
	return o.ExecuteStep(ctx, sess, 3)
}

// CancelChallenge signals that the operator abandoned the challenge. Step 3
// is not triggered; the operator may still execute it manually.
func (o *Orchestrator) CancelChallenge(sess *domain.Session) error {
	if sess.Challenge == nil {
		return domain.ErrNoChallengePending
	}
	sess.Challenge = nil
	sess.Log.Append(domain.LogWarning, "3DS challenge cancelled by operator", nil)
	return nil
}

// TestConfig checks credentials against the backend executor without
// starting a transaction.
func (o *Orchestrator) TestConfig(ctx context.Context, cfg domain.SessionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return o.executor.TestConfig(ctx, cfg)
}
