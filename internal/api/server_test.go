// File path: internal/api/server_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ai-financer/nlquery/internal/guardrail"
	"github.com/ai-financer/nlquery/internal/pipeline"
	"github.com/ai-financer/nlquery/internal/registry"
	"github.com/ai-financer/nlquery/internal/retriever"
	"github.com/ai-financer/nlquery/internal/router"
	"github.com/ai-financer/nlquery/internal/synthesizer"
)

type stubExecutor struct{}

func (stubExecutor) Execute(ctx context.Context, sqlText string) ([]string, []map[string]interface{}, error) {
	return []string{"date", "mort_30yr"}, []map[string]interface{}{
		{"date": "2024-01-04", "mort_30yr": 6.62},
	}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg, err := registry.New([]registry.Dataset{
		{
			ID:       "fred_rates",
			Name:     "FRED Mortgage Rates",
			Domain:   "rates",
			Tables:   []registry.Table{{Schema: "main", Name: "fred_mortgage_rates"}},
			Keywords: []string{"mortgage rate", "mortgage rates", "30-year"},
		},
		{
			ID:     "cpfb_delinquency",
			Name:   "CPFB Mortgage Delinquency",
			Domain: "delinquency",
			Tables: []registry.Table{
				{Schema: "main", Name: "cpfb_state_delinquency_30_89"},
				{Schema: "main", Name: "cpfb_state_delinquency_90_plus"},
				{Schema: "main", Name: "cpfb_metro_delinquency_30_89"},
				{Schema: "main", Name: "cpfb_metro_delinquency_90_plus"},
			},
			Keywords: []string{"delinquency", "past due", "late"},
		},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	pipe := pipeline.New(
		reg,
		retriever.New(reg, nil, nil),
		router.New(reg, router.DefaultConfig()),
		synthesizer.New(nil),
		guardrail.New(guardrail.DefaultConfig()),
		stubExecutor{},
	)
	srv, err := NewServer(context.Background(), pipe)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	return srv
}

func postJSON(t *testing.T, srv *Server, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestQueryEndpointOK(t *testing.T) {
	srv := newTestServer(t)
	rec := postJSON(t, srv, "/v1/query", queryRequest{Question: "latest 30-year mortgage rate"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result pipeline.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Status != pipeline.StatusOK {
		t.Fatalf("result = %+v", result)
	}
	if result.DatasetID != "fred_rates" {
		t.Fatalf("dataset = %s", result.DatasetID)
	}
	if result.Results == nil || len(result.Results.Rows) != 1 {
		t.Fatalf("results = %+v", result.Results)
	}
}

func TestQueryEndpointMissingQuestion(t *testing.T) {
	srv := newTestServer(t)
	rec := postJSON(t, srv, "/v1/query", queryRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestQueryEndpointBadJSON(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestQueryEndpointNeedsSelection(t *testing.T) {
	srv := newTestServer(t)
	rec := postJSON(t, srv, "/v1/query", queryRequest{Question: "past due versus 30-year"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result pipeline.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Status != pipeline.StatusNeedsSelection {
		t.Fatalf("result = %+v", result)
	}
	if len(result.Choices) != 2 {
		t.Fatalf("choices = %+v", result.Choices)
	}
}

func TestDisambiguateEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := postJSON(t, srv, "/v1/disambiguate", disambiguateRequest{
		Question:  "latest mortgage rate",
		DatasetID: "fred_rates",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result pipeline.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Status != pipeline.StatusOK || result.DatasetID != "fred_rates" {
		t.Fatalf("result = %+v", result)
	}
}

func TestDisambiguateEndpointMissingDataset(t *testing.T) {
	srv := newTestServer(t)
	rec := postJSON(t, srv, "/v1/disambiguate", disambiguateRequest{Question: "latest mortgage rate"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDatasetsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/datasets", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload struct {
		Datasets []datasetSummary `json:"datasets"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Datasets) != 2 {
		t.Fatalf("datasets = %+v", payload.Datasets)
	}
	if payload.Datasets[0].Tables[0] != "main.fred_mortgage_rates" {
		t.Fatalf("tables = %+v", payload.Datasets[0].Tables)
	}
}

func TestLogsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/logs", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
