// Package threedsflow is a manual test harness for the 3-D Secure
// authentication flow over a card-payment gateway. An operator (or an
// automated surface) drives a fixed three-step sequence — initiate
// authentication, authenticate payer, authorize/pay — editing each request
// before dispatch and reviewing the raw response, with an interactive
// challenge gate between steps 2 and 3.
//
// The Harness is the high-level entry point. It wraps the internal
// orchestrator with a session manager so every operation loads, mutates,
// and persists the session under a per-session lock.
package threedsflow

import (
	"context"
	"log/slog"

	"github.com/acquirelab/threedsflow/internal/logging"
	"github.com/acquirelab/threedsflow/internal/metrics"
	"github.com/acquirelab/threedsflow/internal/runtime"
	"github.com/acquirelab/threedsflow/pkg/adapters/memory"
	"github.com/acquirelab/threedsflow/pkg/domain"
	"github.com/acquirelab/threedsflow/pkg/ports"
	"github.com/acquirelab/threedsflow/pkg/session"
)

// Version is the harness release version.
const Version = "0.4.0"

// StartParams are the operator-supplied values for a new session.
type StartParams = runtime.StartParams

// Harness is the high-level API over the transaction orchestrator.
type Harness struct {
	orchestrator *runtime.Orchestrator
	sessions     *session.Manager
	store        ports.SessionStore
	locker       ports.DistributedLocker
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// Option configures the Harness.
type Option func(*Harness)

// WithStore selects the session store. Defaults to in-memory.
func WithStore(store ports.SessionStore) Option {
	return func(h *Harness) {
		h.store = store
	}
}

// WithLocker enables distributed session locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(h *Harness) {
		h.locker = locker
	}
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// WithMetrics enables Prometheus collectors for step executions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Harness) {
		h.metrics = m
	}
}

// New creates a Harness dispatching steps to the given backend executor.
func New(executor ports.Executor, opts ...Option) *Harness {
	h := &Harness{
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.store == nil {
		h.store = memory.NewStore()
	}

	h.orchestrator = runtime.New(executor,
		runtime.WithLogger(h.logger),
		runtime.WithMetrics(h.metrics),
	)

	managerOpts := []session.Option{session.WithLogger(h.logger)}
	if h.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(h.locker))
	}
	h.sessions = session.NewManager(h.store, managerOpts...)
	return h
}

// StartSession validates the configuration and card, creates a session in
// the ready state with default templates for all three steps, and persists
// it.
func (h *Harness) StartSession(ctx context.Context, cfg domain.SessionConfig, card domain.TestCard, params StartParams) (*domain.Session, error) {
	sess, err := h.orchestrator.NewSession(cfg, card, params)
	if err != nil {
		return nil, err
	}
	if err := h.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Session retrieves a session by ID.
func (h *Harness) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	return h.sessions.Load(ctx, sessionID)
}

// ListSessions returns the IDs of known sessions.
func (h *Harness) ListSessions(ctx context.Context) ([]string, error) {
	return h.sessions.List(ctx)
}

// DeleteSession discards a session.
func (h *Harness) DeleteSession(ctx context.Context, sessionID string) error {
	return h.sessions.Delete(ctx, sessionID)
}

// UpdateStepRequest applies an operator edit to a step's request. The body
// is validated; an invalid body is stored but marked invalid, blocking
// dispatch until fixed.
func (h *Harness) UpdateStepRequest(ctx context.Context, sessionID string, step int, method, url, body string) (*domain.Session, error) {
	return h.sessions.Update(ctx, sessionID, func(sess *domain.Session) error {
		return h.orchestrator.UpdateStepRequest(sess, step, method, url, body)
	})
}

// ResetStep restores one step's default request.
func (h *Harness) ResetStep(ctx context.Context, sessionID string, step int) (*domain.Session, error) {
	return h.sessions.Update(ctx, sessionID, func(sess *domain.Session) error {
		return h.orchestrator.ResetStep(sess, step)
	})
}

// ExecuteStep dispatches one step. Step failures (transport or gateway) are
// recorded on the session and returned as a non-success result with a nil
// error; only local precondition violations produce an error.
func (h *Harness) ExecuteStep(ctx context.Context, sessionID string, step int) (*domain.Session, *domain.StepResult, error) {
	var result *domain.StepResult
	sess, err := h.sessions.Update(ctx, sessionID, func(sess *domain.Session) error {
		var execErr error
		result, execErr = h.orchestrator.ExecuteStep(ctx, sess, step)
		return execErr
	})
	return sess, result, err
}

// ResolveChallenge signals challenge completion and triggers step 3 exactly
// once.
func (h *Harness) ResolveChallenge(ctx context.Context, sessionID string) (*domain.Session, *domain.StepResult, error) {
	var result *domain.StepResult
	sess, err := h.sessions.Update(ctx, sessionID, func(sess *domain.Session) error {
		var resErr error
		result, resErr = h.orchestrator.ResolveChallenge(ctx, sess)
		return resErr
	})
	return sess, result, err
}

// CancelChallenge signals that the operator abandoned the challenge.
func (h *Harness) CancelChallenge(ctx context.Context, sessionID string) (*domain.Session, error) {
	return h.sessions.Update(ctx, sessionID, func(sess *domain.Session) error {
		return h.orchestrator.CancelChallenge(sess)
	})
}

// ResetSession re-initializes the session with fresh identifiers, rebuilt
// templates, and an empty log.
func (h *Harness) ResetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	return h.sessions.Update(ctx, sessionID, func(sess *domain.Session) error {
		return h.orchestrator.Reset(sess)
	})
}

// MarkFailed records that the operator abandoned the run.
func (h *Harness) MarkFailed(ctx context.Context, sessionID string, reason string) (*domain.Session, error) {
	return h.sessions.Update(ctx, sessionID, func(sess *domain.Session) error {
		h.orchestrator.MarkFailed(sess, reason)
		return nil
	})
}

// TestConfig verifies merchant credentials against the backend executor.
func (h *Harness) TestConfig(ctx context.Context, cfg domain.SessionConfig) error {
	return h.orchestrator.TestConfig(ctx, cfg)
}
