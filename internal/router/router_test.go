// File path: internal/router/router_test.go
package router

import (
	"testing"

	"github.com/ai-financer/nlquery/internal/registry"
	"github.com/ai-financer/nlquery/internal/retriever"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]registry.Dataset{
		{ID: "cpfb_delinquency", Name: "CPFB Mortgage Delinquency", Domain: "delinquency", Description: "Mortgage performance."},
		{ID: "fred_rates", Name: "FRED Mortgage Rates", Domain: "rates", Description: "Weekly mortgage rates."},
		{ID: "fhfa_hpi", Name: "FHFA House Price Index", Domain: "housing", Description: "House prices."},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func newTestRouter(t *testing.T) *Router {
	return New(testRegistry(t), DefaultConfig())
}

func TestRoutePreferredDatasetWins(t *testing.T) {
	r := newTestRouter(t)
	decision := r.Route(nil, "fred_rates")
	if decision.Kind != KindSelected || decision.DatasetID != "fred_rates" {
		t.Fatalf("decision = %+v", decision)
	}
}

func TestRouteUnknownPreferredFallsThrough(t *testing.T) {
	r := newTestRouter(t)
	scores := []retriever.Score{{DatasetID: "cpfb_delinquency", Score: 0.9}}
	decision := r.Route(scores, "nope")
	if decision.Kind != KindSelected || decision.DatasetID != "cpfb_delinquency" {
		t.Fatalf("decision = %+v", decision)
	}
}

func TestRouteClearWinner(t *testing.T) {
	r := newTestRouter(t)
	scores := []retriever.Score{
		{DatasetID: "cpfb_delinquency", Score: 0.85, Rationale: "matched keywords: delinquency"},
		{DatasetID: "fred_rates", Score: 0.20},
	}
	decision := r.Route(scores, "")
	if decision.Kind != KindSelected || decision.DatasetID != "cpfb_delinquency" {
		t.Fatalf("decision = %+v", decision)
	}
}

func TestRouteNearTieNeedsSelection(t *testing.T) {
	r := newTestRouter(t)
	scores := []retriever.Score{
		{DatasetID: "cpfb_delinquency", Score: 0.50, Rationale: "matched keywords: delinquency"},
		{DatasetID: "fred_rates", Score: 0.45, Rationale: "matched keywords: mortgage rate"},
		{DatasetID: "fhfa_hpi", Score: 0.02},
	}
	decision := r.Route(scores, "")
	if decision.Kind != KindNeedsSelection {
		t.Fatalf("decision = %+v", decision)
	}
	if len(decision.Choices) != 2 {
		t.Fatalf("choices = %+v", decision.Choices)
	}
	if decision.Choices[0].DatasetID != "cpfb_delinquency" || decision.Choices[1].DatasetID != "fred_rates" {
		t.Fatalf("choice order = %+v", decision.Choices)
	}
	if decision.Choices[0].Why != "matched keywords: delinquency" {
		t.Fatalf("why = %q", decision.Choices[0].Why)
	}
}

func TestRouteChoicesCapped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxChoices = 2
	r := New(testRegistry(t), cfg)
	scores := []retriever.Score{
		{DatasetID: "cpfb_delinquency", Score: 0.50},
		{DatasetID: "fred_rates", Score: 0.48},
		{DatasetID: "fhfa_hpi", Score: 0.46},
	}
	decision := r.Route(scores, "")
	if decision.Kind != KindNeedsSelection || len(decision.Choices) != 2 {
		t.Fatalf("decision = %+v", decision)
	}
}

func TestRouteBelowFloorNeedsClarification(t *testing.T) {
	r := newTestRouter(t)
	scores := []retriever.Score{
		{DatasetID: "cpfb_delinquency", Score: 0.01},
		{DatasetID: "fred_rates", Score: 0.0},
	}
	decision := r.Route(scores, "")
	if decision.Kind != KindNeedsClarification {
		t.Fatalf("decision = %+v", decision)
	}
	if decision.ClarifyingQuestion == "" {
		t.Fatalf("clarifying question missing")
	}
}

func TestRouteModerateWinnerSelectedByDefault(t *testing.T) {
	// Above the floor, separated from the runner-up, but under the
	// high-confidence bar: the top candidate still wins.
	r := newTestRouter(t)
	scores := []retriever.Score{
		{DatasetID: "fred_rates", Score: 0.40},
		{DatasetID: "cpfb_delinquency", Score: 0.10},
	}
	decision := r.Route(scores, "")
	if decision.Kind != KindSelected || decision.DatasetID != "fred_rates" {
		t.Fatalf("decision = %+v", decision)
	}
}

func TestRouteSingleSurvivorSelectsInsteadOfPrompting(t *testing.T) {
	// The runner-up is within the separation window but below the floor, so
	// only one real choice remains.
	r := newTestRouter(t)
	scores := []retriever.Score{
		{DatasetID: "fred_rates", Score: 0.10},
		{DatasetID: "cpfb_delinquency", Score: 0.01},
	}
	decision := r.Route(scores, "")
	if decision.Kind != KindSelected || decision.DatasetID != "fred_rates" {
		t.Fatalf("decision = %+v", decision)
	}
}

func TestRouteEmptyScores(t *testing.T) {
	r := newTestRouter(t)
	decision := r.Route(nil, "")
	if decision.Kind != KindNeedsClarification {
		t.Fatalf("decision = %+v", decision)
	}
}
