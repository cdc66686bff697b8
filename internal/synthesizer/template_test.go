// File path: internal/synthesizer/template_test.go
package synthesizer

import (
	"errors"
	"strings"
	"testing"

	"github.com/ai-financer/nlquery/internal/registry"
)

func delinquencyDataset() registry.Dataset {
	return registry.Dataset{
		ID:     "cpfb_delinquency",
		Name:   "CPFB Mortgage Delinquency",
		Domain: "delinquency",
		Tables: []registry.Table{
			{Schema: "main", Name: "cpfb_state_delinquency_30_89"},
			{Schema: "main", Name: "cpfb_state_delinquency_90_plus"},
			{Schema: "main", Name: "cpfb_metro_delinquency_30_89"},
			{Schema: "main", Name: "cpfb_metro_delinquency_90_plus"},
		},
		Keywords: []string{"delinquency", "delinquent", "delinquency rate"},
	}
}

func ratesDataset() registry.Dataset {
	return registry.Dataset{
		ID:       "fred_rates",
		Name:     "FRED Mortgage Rates",
		Domain:   "rates",
		Tables:   []registry.Table{{Schema: "main", Name: "fred_mortgage_rates"}},
		Keywords: []string{"mortgage rate", "mortgage rates", "30-year", "15-year"},
	}
}

func TestTemplateAverageStateYear(t *testing.T) {
	candidate, err := templateCandidate("What was the average delinquency rate in Texas in 2024?", delinquencyDataset())
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	want := "SELECT date, state_name, pct_30_89_days_late FROM main.cpfb_state_delinquency_30_89 WHERE state_name = 'Texas' AND date LIKE '2024-%' ORDER BY date"
	if candidate.SQL != want {
		t.Fatalf("unexpected SQL:\n got: %s\nwant: %s", candidate.SQL, want)
	}
	if candidate.Source != SourceTemplate {
		t.Fatalf("source = %s, want %s", candidate.Source, SourceTemplate)
	}
	if len(candidate.Tables) != 1 || candidate.Tables[0] != "cpfb_state_delinquency_30_89" {
		t.Fatalf("tables = %v", candidate.Tables)
	}
}

func TestTemplateSeriousDelinquencyTable(t *testing.T) {
	candidate, err := templateCandidate("average 90+ delinquency in Florida in 2023", delinquencyDataset())
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if !strings.Contains(candidate.SQL, "cpfb_state_delinquency_90_plus") {
		t.Fatalf("expected 90_plus table, got %s", candidate.SQL)
	}
	if !strings.Contains(candidate.SQL, "pct_90_plus_days_late") {
		t.Fatalf("expected 90_plus metric, got %s", candidate.SQL)
	}
}

func TestTemplateMetroTable(t *testing.T) {
	candidate, err := templateCandidate("latest metro delinquency", delinquencyDataset())
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if !strings.Contains(candidate.SQL, "cpfb_metro_delinquency_30_89") {
		t.Fatalf("expected metro table, got %s", candidate.SQL)
	}
}

func TestTemplateTrendWindow(t *testing.T) {
	candidate, err := templateCandidate("mortgage rate trend over the last 6 months", ratesDataset())
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	want := "SELECT date, mort_30yr FROM main.fred_mortgage_rates WHERE date >= date('now', '-6 months') ORDER BY date"
	if candidate.SQL != want {
		t.Fatalf("unexpected SQL:\n got: %s\nwant: %s", candidate.SQL, want)
	}
}

func TestTemplateFifteenYearMetric(t *testing.T) {
	candidate, err := templateCandidate("latest 15-year mortgage rate", ratesDataset())
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if !strings.Contains(candidate.SQL, "mort_15yr") {
		t.Fatalf("expected mort_15yr, got %s", candidate.SQL)
	}
}

func TestTemplateTopN(t *testing.T) {
	candidate, err := templateCandidate("top 5 states by delinquency", delinquencyDataset())
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if !strings.HasSuffix(candidate.SQL, "ORDER BY pct_30_89_days_late DESC LIMIT 5") {
		t.Fatalf("unexpected SQL: %s", candidate.SQL)
	}
}

func TestTemplateTopNRequiresRegion(t *testing.T) {
	// Rates have no region dimension; ranking falls through to the generic
	// listing because the question still names a dataset keyword.
	candidate, err := templateCandidate("top 5 mortgage rates", ratesDataset())
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if !strings.HasPrefix(candidate.SQL, "SELECT * FROM main.fred_mortgage_rates") {
		t.Fatalf("unexpected SQL: %s", candidate.SQL)
	}
}

func TestTemplateLatest(t *testing.T) {
	candidate, err := templateCandidate("what is the latest delinquency in Ohio", delinquencyDataset())
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	want := "SELECT date, state_name, pct_30_89_days_late FROM main.cpfb_state_delinquency_30_89 WHERE date = (SELECT MAX(date) FROM main.cpfb_state_delinquency_30_89) AND state_name = 'Ohio'"
	if candidate.SQL != want {
		t.Fatalf("unexpected SQL:\n got: %s\nwant: %s", candidate.SQL, want)
	}
}

func TestTemplateNoMatch(t *testing.T) {
	_, err := templateCandidate("tell me a joke", ratesDataset())
	if !errors.Is(err, ErrNoMatchingPattern) {
		t.Fatalf("expected ErrNoMatchingPattern, got %v", err)
	}
}

func TestStateInPrefersLongestName(t *testing.T) {
	if got := stateIn("compare west virginia with virginia"); got != "West Virginia" {
		t.Fatalf("stateIn = %q, want West Virginia", got)
	}
	if got := stateIn("how is kansas doing"); got != "Kansas" {
		t.Fatalf("stateIn = %q, want Kansas", got)
	}
}
