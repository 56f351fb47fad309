package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/studytask/taskparse/internal/queue"
)

type unhealthyQueue struct {
	mockJobQueue
}

func (q *unhealthyQueue) HealthCheck(context.Context) error {
	return errors.New("connection refused")
}

var _ queue.JobQueue = (*unhealthyQueue)(nil)

func TestHealthCheck_Basic(t *testing.T) {
	t.Parallel()

	h := NewHealthChecker(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	envelope := map[string]any{}
	decodeInto(t, rec, &envelope)
	if envelope["status"] != "healthy" {
		t.Errorf("status = %v", envelope["status"])
	}
	if _, ok := envelope["checks"]; ok {
		t.Error("basic mode should not include checks")
	}
}

func TestHealthCheck_Extended(t *testing.T) {
	t.Parallel()

	h := NewHealthChecker(nil, &mockJobQueue{})
	req := httptest.NewRequest(http.MethodGet, "/healthz?mode=extended", nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var response HealthResponse
	decodeInto(t, rec, &response)
	if response.Checks["queue"] != "healthy" {
		t.Errorf("queue check = %q", response.Checks["queue"])
	}
}

func TestHealthCheck_ExtendedUnhealthyQueue(t *testing.T) {
	t.Parallel()

	h := NewHealthChecker(nil, &unhealthyQueue{})
	req := httptest.NewRequest(http.MethodGet, "/healthz?mode=extended", nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var response HealthResponse
	decodeInto(t, rec, &response)
	if response.Status != "unhealthy" {
		t.Errorf("status = %q", response.Status)
	}
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}
