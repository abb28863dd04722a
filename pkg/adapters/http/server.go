// Package http exposes the harness as a REST API for browser front ends
// and scripted test drivers.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acquirelab/threedsflow"
	"github.com/acquirelab/threedsflow/pkg/domain"
)

// Server routes REST requests to a Harness.
type Server struct {
	harness *threedsflow.Harness
	logger  *slog.Logger
}

// NewHandler builds the HTTP handler for the harness. The challenge iframe
// of the hosted front end is served from another origin, so CORS is open.
func NewHandler(harness *threedsflow.Harness, logger *slog.Logger) http.Handler {
	s := &Server{harness: harness, logger: logger}

	r := chi.NewRouter()
	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/config/test", s.testConfig)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.createSession)
			r.Get("/", s.listSessions)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Delete("/", s.deleteSession)
				r.Post("/reset", s.resetSession)
				r.Get("/log", s.getLog)
				r.Post("/challenge", s.challengeAction)

				r.Route("/steps/{step}", func(r chi.Router) {
					r.Put("/", s.updateStep)
					r.Post("/execute", s.executeStep)
					r.Post("/reset", s.resetStep)
				})
			})
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type createSessionRequest struct {
	Config        domain.SessionConfig `json:"config"`
	Card          domain.TestCard      `json:"card"`
	OrderID       string               `json:"orderId,omitempty"`
	TransactionID string               `json:"transactionId,omitempty"`
	Amount        string               `json:"amount"`
}

type stepUpdateRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
	Body   string `json:"body"`
}

type challengeActionRequest struct {
	Action string `json:"action"`
}

type executeResponse struct {
	Session *domain.Session    `json:"session"`
	Result  *domain.StepResult `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var body createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, "invalid request body", err)
		return
	}

	sess, err := s.harness.StartSession(r.Context(), body.Config, body.Card, threedsflow.StartParams{
		OrderID:       body.OrderID,
		TransactionID: body.TransactionID,
		Amount:        body.Amount,
	})
	if err != nil {
		// Creation fails only on invalid config/card/amount.
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.harness.ListSessions(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.harness.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.harness.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.harness.ResetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) getLog(w http.ResponseWriter, r *http.Request) {
	sess, err := s.harness.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	entries := sess.Log
	if entries == nil {
		entries = domain.ActivityLog{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"log": entries})
}

func (s *Server) updateStep(w http.ResponseWriter, r *http.Request) {
	step, ok := s.stepParam(w, r)
	if !ok {
		return
	}
	var body stepUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, "invalid request body", err)
		return
	}

	sess, err := s.harness.UpdateStepRequest(r.Context(), chi.URLParam(r, "sessionID"), step, body.Method, body.URL, body.Body)
	if errors.Is(err, domain.ErrInvalidBody) {
		// The edit is persisted anyway so the operator can keep fixing it.
		s.writeJSON(w, http.StatusUnprocessableEntity, executeResponse{Session: sess})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) executeStep(w http.ResponseWriter, r *http.Request) {
	step, ok := s.stepParam(w, r)
	if !ok {
		return
	}
	sess, result, err := s.harness.ExecuteStep(r.Context(), chi.URLParam(r, "sessionID"), step)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, executeResponse{Session: sess, Result: result})
}

func (s *Server) resetStep(w http.ResponseWriter, r *http.Request) {
	step, ok := s.stepParam(w, r)
	if !ok {
		return
	}
	sess, err := s.harness.ResetStep(r.Context(), chi.URLParam(r, "sessionID"), step)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) challengeAction(w http.ResponseWriter, r *http.Request) {
	var body challengeActionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, "invalid request body", err)
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	switch body.Action {
	case "resolved":
		sess, result, err := s.harness.ResolveChallenge(r.Context(), sessionID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, executeResponse{Session: sess, Result: result})
	case "cancelled":
		sess, err := s.harness.CancelChallenge(r.Context(), sessionID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, sess)
	default:
		s.badRequest(w, fmt.Sprintf("unknown challenge action %q", body.Action), nil)
	}
}

func (s *Server) testConfig(w http.ResponseWriter, r *http.Request) {
	var cfg domain.SessionConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.badRequest(w, "invalid request body", err)
		return
	}
	if err := s.harness.TestConfig(r.Context(), cfg); err != nil {
		s.writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": threedsflow.Version})
}

func (s *Server) stepParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	step, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil {
		s.badRequest(w, "step must be a number", err)
		return 0, false
	}
	return step, true
}

func (s *Server) badRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		s.logger.Warn(msg, "err", err)
	}
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// writeError maps domain sentinels onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownStep),
		errors.Is(err, domain.ErrInvalidBody):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrStepOrder),
		errors.Is(err, domain.ErrChallengePending),
		errors.Is(err, domain.ErrNoChallengePending),
		errors.Is(err, domain.ErrSessionCompleted):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
