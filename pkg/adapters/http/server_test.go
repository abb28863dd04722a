package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acquirelab/threedsflow"
	"github.com/acquirelab/threedsflow/internal/logging"
	"github.com/acquirelab/threedsflow/pkg/domain"
	"github.com/acquirelab/threedsflow/pkg/ports"
)

type mockExecutor struct {
	results map[ports.Step]*domain.StepResult
	cfgErr  error
}

func (m *mockExecutor) Execute(_ context.Context, step ports.Step, _ ports.ExecuteRequest) (*domain.StepResult, error) {
	if r, ok := m.results[step]; ok {
		return r, nil
	}
	return &domain.StepResult{Success: true}, nil
}

func (m *mockExecutor) TestConfig(context.Context, domain.SessionConfig) error {
	return m.cfgErr
}

func newTestHandler(exec ports.Executor) http.Handler {
	h := threedsflow.New(exec, threedsflow.WithLogger(logging.NewNop()))
	return NewHandler(h, logging.NewNop())
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func createBody() createSessionRequest {
	return createSessionRequest{
		Config: domain.SessionConfig{
			MerchantID: "TESTMERCHANT",
			Username:   "merchant.TESTMERCHANT",
			Password:   "supersecret",
			APIBaseURL: "https://mtf.gateway.mastercard.com",
			APIVersion: "100",
			Currency:   "USD",
			MCC:        "1242",
		},
		Card:   domain.TestCard{Number: "5123450000000008", ExpiryMonth: "12", ExpiryYear: "39", CVV: "100"},
		Amount: "25.00",
	}
}

func startSession(t *testing.T, handler http.Handler) domain.Session {
	t.Helper()
	w := doJSON(t, handler, http.MethodPost, "/api/sessions/", createBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sess domain.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	return sess
}

func TestCreateSession(t *testing.T) {
	handler := newTestHandler(&mockExecutor{})

	sess := startSession(t, handler)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, domain.StatusReady, sess.Status)
	assert.Len(t, sess.Steps, 3)
}

func TestCreateSession_InvalidConfig(t *testing.T) {
	handler := newTestHandler(&mockExecutor{})

	body := createBody()
	body.Config.APIBaseURL = "http://insecure.example.com"
	w := doJSON(t, handler, http.MethodPost, "/api/sessions/", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSession_NotFound(t *testing.T) {
	handler := newTestHandler(&mockExecutor{})

	w := doJSON(t, handler, http.MethodGet, "/api/sessions/sess-missing/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExecuteAndComplete(t *testing.T) {
	handler := newTestHandler(&mockExecutor{results: map[ports.Step]*domain.StepResult{
		ports.StepAuthorizePay: {Success: true, GatewayCode: "APPROVED"},
	}})
	sess := startSession(t, handler)

	for step := 1; step <= 3; step++ {
		w := doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/sessions/%s/steps/%d/execute", sess.ID, step), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp executeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Result.Success)
	}

	w := doJSON(t, handler, http.MethodGet, "/api/sessions/"+sess.ID+"/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got domain.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, domain.StatusCompleted, got.Status)
}

func TestExecuteStep_OutOfOrder(t *testing.T) {
	handler := newTestHandler(&mockExecutor{})
	sess := startSession(t, handler)

	w := doJSON(t, handler, http.MethodPost, "/api/sessions/"+sess.ID+"/steps/2/execute", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestExecuteStep_BadStepNumber(t *testing.T) {
	handler := newTestHandler(&mockExecutor{})
	sess := startSession(t, handler)

	w := doJSON(t, handler, http.MethodPost, "/api/sessions/"+sess.ID+"/steps/nine/execute", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, handler, http.MethodPost, "/api/sessions/"+sess.ID+"/steps/7/execute", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStep_InvalidBodyPersisted(t *testing.T) {
	handler := newTestHandler(&mockExecutor{})
	sess := startSession(t, handler)

	update := stepUpdateRequest{Method: "PUT", URL: sess.Step(1).URL, Body: `{"broken`}
	w := doJSON(t, handler, http.MethodPut, "/api/sessions/"+sess.ID+"/steps/1/", update)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp executeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Session)
	assert.Equal(t, `{"broken`, resp.Session.Step(1).Body)
	assert.False(t, resp.Session.Step(1).BodyValid)
}

func TestChallengeRoundTrip(t *testing.T) {
	handler := newTestHandler(&mockExecutor{results: map[ports.Step]*domain.StepResult{
		ports.StepAuthenticatePayer: {
			Success: true,
			Data:    map[string]any{"authentication": map[string]any{"redirect": map[string]any{"html": "<iframe></iframe>"}}},
		},
		ports.StepAuthorizePay: {Success: true, GatewayCode: "APPROVED"},
	}})
	sess := startSession(t, handler)

	doJSON(t, handler, http.MethodPost, "/api/sessions/"+sess.ID+"/steps/1/execute", nil)
	w := doJSON(t, handler, http.MethodPost, "/api/sessions/"+sess.ID+"/steps/2/execute", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp executeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Session.Challenge)

	// Pending challenge blocks step 3.
	w = doJSON(t, handler, http.MethodPost, "/api/sessions/"+sess.ID+"/steps/3/execute", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, handler, http.MethodPost, "/api/sessions/"+sess.ID+"/challenge", challengeActionRequest{Action: "resolved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Result.Success)
	assert.Equal(t, domain.StatusCompleted, resp.Session.Status)
}

func TestChallenge_UnknownAction(t *testing.T) {
	handler := newTestHandler(&mockExecutor{})
	sess := startSession(t, handler)

	w := doJSON(t, handler, http.MethodPost, "/api/sessions/"+sess.ID+"/challenge", challengeActionRequest{Action: "retry"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResetSession(t *testing.T) {
	handler := newTestHandler(&mockExecutor{})
	sess := startSession(t, handler)

	doJSON(t, handler, http.MethodPost, "/api/sessions/"+sess.ID+"/steps/1/execute", nil)

	w := doJSON(t, handler, http.MethodPost, "/api/sessions/"+sess.ID+"/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got domain.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, domain.StatusReady, got.Status)
	assert.Equal(t, 0, got.CurrentStep)
	assert.NotEqual(t, sess.OrderID, got.OrderID)
	assert.Empty(t, got.Log)
}

func TestGetLog(t *testing.T) {
	handler := newTestHandler(&mockExecutor{})
	sess := startSession(t, handler)

	w := doJSON(t, handler, http.MethodGet, "/api/sessions/"+sess.ID+"/log", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Log []domain.LogEntry `json:"log"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Log)
	assert.Contains(t, resp.Log[0].Message, "Initialized transaction")
}

func TestDeleteSession(t *testing.T) {
	handler := newTestHandler(&mockExecutor{})
	sess := startSession(t, handler)

	w := doJSON(t, handler, http.MethodDelete, "/api/sessions/"+sess.ID+"/", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, handler, http.MethodGet, "/api/sessions/"+sess.ID+"/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListSessions(t *testing.T) {
	handler := newTestHandler(&mockExecutor{})
	first := startSession(t, handler)
	second := startSession(t, handler)

	w := doJSON(t, handler, http.MethodGet, "/api/sessions/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Sessions []string `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.ElementsMatch(t, []string{first.ID, second.ID}, resp.Sessions)
}

func TestTestConfig(t *testing.T) {
	handler := newTestHandler(&mockExecutor{})
	w := doJSON(t, handler, http.MethodPost, "/api/config/test", createBody().Config)
	assert.Equal(t, http.StatusOK, w.Code)

	failing := newTestHandler(&mockExecutor{cfgErr: fmt.Errorf("INVALID_CREDENTIALS")})
	w = doJSON(t, failing, http.MethodPost, "/api/config/test", createBody().Config)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHealthAndCORS(t *testing.T) {
	handler := newTestHandler(&mockExecutor{})

	w := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodOptions, "/api/sessions/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
