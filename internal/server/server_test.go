package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-reconciliation-engine/internal/models"
	"bank-reconciliation-engine/internal/reconciler"
	"bank-reconciliation-engine/pkg/errors"
)

// stubRunner returns canned results or errors.
type stubRunner struct {
	result *reconciler.RunResult
	err    error

	lastRequest *reconciler.RunRequest
}

func (s *stubRunner) Run(ctx context.Context, req *reconciler.RunRequest) (*reconciler.RunResult, error) {
	s.lastRequest = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestHealthz(t *testing.T) {
	srv := New(&stubRunner{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestRunEndpointSuccess(t *testing.T) {
	runner := &stubRunner{
		result: &reconciler.RunResult{
			RunID:     "run-1",
			CompanyID: "acme",
			Summary:   models.Summary{TotalSuggestions: 2},
		},
	}
	srv := New(runner, nil)

	body := bytes.NewBufferString(`{"company_id": "acme", "max_suggestions": 10}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/reconciliation/runs", body)
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			RunID string `json:"run_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, "run-1", envelope.Data.RunID)

	require.NotNil(t, runner.lastRequest)
	assert.Equal(t, "acme", runner.lastRequest.CompanyID)
	assert.Equal(t, 10, runner.lastRequest.MaxSuggestions)
}

func TestRunEndpointMalformedBody(t *testing.T) {
	srv := New(&stubRunner{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/reconciliation/runs", bytes.NewBufferString(`{`))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestRunEndpointPreconditionMapsTo400(t *testing.T) {
	runner := &stubRunner{
		err: errors.PreconditionError(errors.CodeMissingCompanyID, "company_id is required"),
	}
	srv := New(runner, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/reconciliation/runs", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), string(errors.CodeMissingCompanyID))
}

func TestRunEndpointDataAccessMapsTo500(t *testing.T) {
	runner := &stubRunner{
		err: errors.DataAccessError(errors.CodeTransactionsLoad, "bank_transactions",
			assert.AnError),
	}
	srv := New(runner, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/reconciliation/runs", bytes.NewBufferString(`{"company_id":"acme"}`))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), string(errors.CodeTransactionsLoad))
}

func TestCORSPreflight(t *testing.T) {
	srv := New(&stubRunner{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/v1/reconciliation/runs", nil)
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
