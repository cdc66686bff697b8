// File path: internal/pipeline/pipeline_test.go
package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ai-financer/nlquery/internal/guardrail"
	"github.com/ai-financer/nlquery/internal/llm"
	"github.com/ai-financer/nlquery/internal/registry"
	"github.com/ai-financer/nlquery/internal/retriever"
	"github.com/ai-financer/nlquery/internal/router"
	"github.com/ai-financer/nlquery/internal/synthesizer"
)

type fakeExecutor struct {
	lastSQL string
	columns []string
	rows    []map[string]interface{}
	err     error
	calls   int
}

func (f *fakeExecutor) Execute(ctx context.Context, sqlText string) ([]string, []map[string]interface{}, error) {
	f.calls++
	f.lastSQL = sqlText
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.columns, f.rows, nil
}

type fixedProvider struct {
	response string
}

func (p *fixedProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	return p.response, nil
}

func (p *fixedProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	return nil, llm.ErrNotConfigured
}

func (p *fixedProvider) Name() string { return "fixed" }

func testDatasets() []registry.Dataset {
	return []registry.Dataset{
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
			Keywords: []string{"delinquency", "delinquent", "delinquency rate", "past due"},
		},
		{
			ID:       "fred_rates",
			Name:     "FRED Mortgage Rates",
			Domain:   "rates",
			Tables:   []registry.Table{{Schema: "main", Name: "fred_mortgage_rates"}},
			Keywords: []string{"mortgage rate", "mortgage rates", "30-year", "15-year"},
		},
	}
}

func newTestPipeline(t *testing.T, provider llm.Provider, executor Executor) *Pipeline {
	t.Helper()
	reg, err := registry.New(testDatasets())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return New(
		reg,
		retriever.New(reg, nil, nil),
		router.New(reg, router.DefaultConfig()),
		synthesizer.New(provider),
		guardrail.New(guardrail.DefaultConfig()),
		executor,
	)
}

func TestResolveTemplatePathEndToEnd(t *testing.T) {
	executor := &fakeExecutor{
		columns: []string{"date", "state_name", "pct_30_89_days_late"},
		rows: []map[string]interface{}{
			{"date": "2024-01-01", "state_name": "Texas", "pct_30_89_days_late": 2.1},
		},
	}
	p := newTestPipeline(t, nil, executor)
	result := p.Resolve(context.Background(), "What was the average delinquency rate in Texas in 2024?", "")
	if result.Status != StatusOK {
		t.Fatalf("status = %s, result %+v", result.Status, result)
	}
	if result.DatasetID != "cpfb_delinquency" {
		t.Fatalf("dataset = %s", result.DatasetID)
	}
	want := "SELECT date, state_name, pct_30_89_days_late FROM main.cpfb_state_delinquency_30_89 WHERE state_name = 'Texas' AND date LIKE '2024-%' ORDER BY date LIMIT 1000"
	if result.SQL != want {
		t.Fatalf("unexpected SQL:\n got: %s\nwant: %s", result.SQL, want)
	}
	if executor.lastSQL != want {
		t.Fatalf("executor saw %s", executor.lastSQL)
	}
	if result.Results == nil || len(result.Results.Rows) != 1 {
		t.Fatalf("results = %+v", result.Results)
	}
	if result.Explanation == nil || result.Explanation.Source != "template" {
		t.Fatalf("explanation = %+v", result.Explanation)
	}
	// The fixed note leads even when the strategy attached its own.
	if !strings.HasPrefix(result.Explanation.Notes, "Query completed.") {
		t.Fatalf("notes = %q", result.Explanation.Notes)
	}
	if result.Explanation.Notes == "Query completed." {
		t.Fatalf("strategy note dropped: %q", result.Explanation.Notes)
	}
}

func TestResolvePreferredDatasetSkipsRouting(t *testing.T) {
	executor := &fakeExecutor{columns: []string{"date", "mort_30yr"}}
	p := newTestPipeline(t, nil, executor)
	result := p.Resolve(context.Background(), "latest mortgage rate", "fred_rates")
	if result.Status != StatusOK {
		t.Fatalf("status = %s, result %+v", result.Status, result)
	}
	if result.DatasetID != "fred_rates" {
		t.Fatalf("dataset = %s", result.DatasetID)
	}
	if !strings.Contains(result.SQL, "fred_mortgage_rates") {
		t.Fatalf("sql = %s", result.SQL)
	}
}

func TestResolveAmbiguousNeedsSelection(t *testing.T) {
	executor := &fakeExecutor{}
	p := newTestPipeline(t, nil, executor)
	// Mentions both a delinquency keyword and a rates keyword with equal
	// normalized overlap.
	result := p.Resolve(context.Background(), "past due versus 30-year", "")
	if result.Status != StatusNeedsSelection {
		t.Fatalf("status = %s, result %+v", result.Status, result)
	}
	if len(result.Choices) != 2 {
		t.Fatalf("choices = %+v", result.Choices)
	}
	if executor.calls != 0 {
		t.Fatalf("executor called on ambiguous question")
	}
}

func TestResolveUnrelatedNeedsClarification(t *testing.T) {
	p := newTestPipeline(t, nil, &fakeExecutor{})
	result := p.Resolve(context.Background(), "what is the meaning of life", "")
	if result.Status != StatusNeedsClarification {
		t.Fatalf("status = %s, result %+v", result.Status, result)
	}
	if result.ClarifyingQuestion == "" {
		t.Fatalf("clarifying question missing")
	}
}

func TestResolveNoPatternAsksForClarification(t *testing.T) {
	p := newTestPipeline(t, nil, &fakeExecutor{})
	result := p.Resolve(context.Background(), "tell me a joke", "fred_rates")
	if result.Status != StatusNeedsClarification {
		t.Fatalf("status = %s, result %+v", result.Status, result)
	}
	if !strings.Contains(result.ClarifyingQuestion, "FRED Mortgage Rates") {
		t.Fatalf("question = %q", result.ClarifyingQuestion)
	}
}

func TestResolveGuardrailRejection(t *testing.T) {
	executor := &fakeExecutor{}
	provider := &fixedProvider{response: `{"sql": "DROP TABLE fred_mortgage_rates"}`}
	p := newTestPipeline(t, provider, executor)
	result := p.Resolve(context.Background(), "latest mortgage rate", "fred_rates")
	if result.Status != StatusError {
		t.Fatalf("status = %s, result %+v", result.Status, result)
	}
	if !strings.Contains(result.Message, "forbidden_keyword") {
		t.Fatalf("message = %q", result.Message)
	}
	if result.SQL != "DROP TABLE fred_mortgage_rates" {
		t.Fatalf("rejected SQL not carried: %q", result.SQL)
	}
	if executor.calls != 0 {
		t.Fatalf("rejected SQL reached the executor")
	}
}

func TestResolveCrossDatasetTableRejected(t *testing.T) {
	executor := &fakeExecutor{}
	provider := &fixedProvider{response: `{"sql": "SELECT * FROM cpfb_state_delinquency_30_89"}`}
	p := newTestPipeline(t, provider, executor)
	result := p.Resolve(context.Background(), "latest mortgage rate", "fred_rates")
	if result.Status != StatusError {
		t.Fatalf("status = %s, result %+v", result.Status, result)
	}
	if !strings.Contains(result.Message, "table_not_whitelisted") {
		t.Fatalf("message = %q", result.Message)
	}
}

func TestResolveProviderClarification(t *testing.T) {
	provider := &fixedProvider{response: `{"status": "needs_clarification", "question": "Which state?"}`}
	p := newTestPipeline(t, provider, &fakeExecutor{})
	result := p.Resolve(context.Background(), "delinquency please", "cpfb_delinquency")
	if result.Status != StatusNeedsClarification {
		t.Fatalf("status = %s, result %+v", result.Status, result)
	}
	if result.ClarifyingQuestion != "Which state?" {
		t.Fatalf("question = %q", result.ClarifyingQuestion)
	}
}

func TestResolveExecutionFailure(t *testing.T) {
	executor := &fakeExecutor{err: errors.New("disk I/O error")}
	p := newTestPipeline(t, nil, executor)
	result := p.Resolve(context.Background(), "latest mortgage rate", "fred_rates")
	if result.Status != StatusError {
		t.Fatalf("status = %s, result %+v", result.Status, result)
	}
	if !strings.Contains(result.Message, "disk I/O error") {
		t.Fatalf("message = %q", result.Message)
	}
}

func TestResolveEmptyQuestion(t *testing.T) {
	p := newTestPipeline(t, nil, &fakeExecutor{})
	result := p.Resolve(context.Background(), "   ", "")
	if result.Status != StatusError {
		t.Fatalf("status = %s, result %+v", result.Status, result)
	}
}
