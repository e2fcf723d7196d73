package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AlayaDB-AI/AlayaLite/pkg/observability"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	logger := observability.NewLogger(observability.WARN, nil)
	engine := NewEngine(testEngineConfig(8, 50), logger, nil)
	return NewHandler(engine)
}

func TestHandlerHealthCheck(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHandlerGetStatsBeforeFit(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	rec := httptest.NewRecorder()
	h.GetStats(rec, req)

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["fitted"] != false {
		t.Errorf("got fitted=%v, want false", body["fitted"])
	}
}

func TestHandlerFitThenSearch(t *testing.T) {
	h := newTestHandler(t)

	vectors := randomVectors(40, 8, 3)
	fitBody, _ := json.Marshal(fitRequest{Vectors: vectors})

	req := httptest.NewRequest(http.MethodPost, "/v1/fit", bytes.NewReader(fitBody))
	rec := httptest.NewRecorder()
	h.Fit(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Fit: got status %d, want %d, body=%s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	searchBody, _ := json.Marshal(searchRequest{Query: vectors[0], K: 3})
	req = httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewReader(searchBody))
	rec = httptest.NewRecorder()
	h.Search(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Search: got status %d, want %d, body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	ids, ok := resp["ids"].([]interface{})
	if !ok || len(ids) == 0 {
		t.Errorf("expected non-empty ids, got %v", resp["ids"])
	}
}

func TestHandlerRefineBeforeFitReturnsConflict(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/refine", nil)
	rec := httptest.NewRecorder()
	h.Refine(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestHandlerSearchRejectsEmptyQuery(t *testing.T) {
	h := newTestHandler(t)

	searchBody, _ := json.Marshal(searchRequest{Query: nil, K: 3})
	req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewReader(searchBody))
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandlerMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/fit", nil)
	rec := httptest.NewRecorder()
	h.Fit(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
