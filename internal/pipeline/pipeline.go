// File path: internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ai-financer/nlquery/internal/common"
	"github.com/ai-financer/nlquery/internal/guardrail"
	"github.com/ai-financer/nlquery/internal/observability"
	"github.com/ai-financer/nlquery/internal/registry"
	"github.com/ai-financer/nlquery/internal/retriever"
	"github.com/ai-financer/nlquery/internal/router"
	"github.com/ai-financer/nlquery/internal/synthesizer"
)

// Status is the terminal state of one resolution.
type Status string

const (
	StatusOK                 Status = "ok"
	StatusNeedsSelection     Status = "needs_selection"
	StatusNeedsClarification Status = "needs_clarification"
	StatusError              Status = "error"
)

// QueryResult carries the executed rows. Column order is preserved from the
// statement; rows map column name to value.
type QueryResult struct {
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
}

// Explanation tells the caller how the answer was produced.
type Explanation struct {
	Tables      []string `json:"tables,omitempty"`
	Assumptions []string `json:"assumptions,omitempty"`
	Source      string   `json:"source"`
	Notes       string   `json:"notes,omitempty"`
}

// Result is the full resolution outcome. Only the fields relevant to the
// Status are populated.
type Result struct {
	Status             Status           `json:"status"`
	DatasetID          string           `json:"dataset_id,omitempty"`
	SQL                string           `json:"sql,omitempty"`
	Results            *QueryResult     `json:"results,omitempty"`
	Explanation        *Explanation     `json:"explanation,omitempty"`
	Choices            []router.Choice  `json:"choices,omitempty"`
	ClarifyingQuestion string           `json:"clarifying_question,omitempty"`
	Message            string           `json:"message,omitempty"`
}

// Executor runs validated SQL against the analytical store. catalog.Store
// satisfies this.
type Executor interface {
	Execute(ctx context.Context, sqlText string) ([]string, []map[string]interface{}, error)
}

// Pipeline wires the resolution stages together: retrieval, routing,
// synthesis, validation, execution. It is safe for concurrent use; all stages
// are stateless per request.
type Pipeline struct {
	reg       *registry.Registry
	retriever *retriever.Retriever
	router    *router.Router
	synth     *synthesizer.Synthesizer
	validator *guardrail.Validator
	executor  Executor
}

func New(reg *registry.Registry, ret *retriever.Retriever, rt *router.Router, synth *synthesizer.Synthesizer, validator *guardrail.Validator, executor Executor) *Pipeline {
	return &Pipeline{
		reg:       reg,
		retriever: ret,
		router:    rt,
		synth:     synth,
		validator: validator,
		executor:  executor,
	}
}

// Datasets exposes the registry contents for the listing endpoint.
func (p *Pipeline) Datasets() []registry.Dataset {
	return p.reg.List()
}

// Resolve answers a natural-language question end to end. It never returns a
// Go error: every failure mode is a Result with the appropriate Status so the
// transport layer stays a thin translation.
func (p *Pipeline) Resolve(ctx context.Context, question, preferredDataset string) Result {
	start := time.Now()
	result := p.resolve(ctx, question, preferredDataset)
	observability.ObserveResolution(string(result.Status), time.Since(start))
	return result
}

func (p *Pipeline) resolve(ctx context.Context, question, preferredDataset string) Result {
	logger := common.Logger()
	question = strings.TrimSpace(question)
	if question == "" {
		return Result{Status: StatusError, Message: "question must not be empty"}
	}

	decision, err := p.route(ctx, question, preferredDataset)
	if err != nil {
		logger.Error("pipeline: retrieval failed", "error", err)
		return Result{Status: StatusError, Message: "dataset retrieval failed: " + err.Error()}
	}
	switch decision.Kind {
	case router.KindNeedsSelection:
		return Result{
			Status:  StatusNeedsSelection,
			Choices: decision.Choices,
			Message: "Your question matches more than one dataset. Pick one to continue.",
		}
	case router.KindNeedsClarification:
		return Result{Status: StatusNeedsClarification, ClarifyingQuestion: decision.ClarifyingQuestion}
	}

	ds, ok := p.reg.Get(decision.DatasetID)
	if !ok {
		return Result{Status: StatusError, Message: fmt.Sprintf("unknown dataset %q", decision.DatasetID)}
	}
	logger.Info("pipeline: dataset selected", "dataset", ds.ID, "question", question)

	candidate, err := p.synth.Synthesize(ctx, question, ds)
	if err != nil {
		var clarification *synthesizer.ClarificationError
		switch {
		case errors.As(err, &clarification):
			return Result{
				Status:             StatusNeedsClarification,
				DatasetID:          ds.ID,
				ClarifyingQuestion: clarification.Question,
			}
		case errors.Is(err, synthesizer.ErrNoMatchingPattern):
			return Result{
				Status:    StatusNeedsClarification,
				DatasetID: ds.ID,
				ClarifyingQuestion: fmt.Sprintf(
					"I couldn't map your question onto the %s dataset. Could you name the measure and time range you're interested in?",
					ds.Name),
			}
		default:
			logger.Error("pipeline: synthesis failed", "dataset", ds.ID, "error", err)
			return Result{Status: StatusError, DatasetID: ds.ID, Message: "SQL synthesis failed: " + err.Error()}
		}
	}
	observability.ObserveSynthesis(string(candidate.Source))

	safeSQL, err := p.validator.Validate(candidate.SQL, ds.TableWhitelist())
	if err != nil {
		var violation *guardrail.Violation
		if errors.As(err, &violation) {
			observability.ObserveGuardrailViolation(violation.Kind)
			logger.Warn("pipeline: generated SQL rejected",
				"dataset", ds.ID, "kind", violation.Kind, "detail", violation.Detail, "sql", violation.SQL)
		} else {
			logger.Error("pipeline: validation failed", "dataset", ds.ID, "error", err)
		}
		return Result{
			Status:    StatusError,
			DatasetID: ds.ID,
			SQL:       candidate.SQL,
			Message:   "generated SQL failed validation: " + err.Error(),
		}
	}

	columns, rows, err := p.executor.Execute(ctx, safeSQL)
	if err != nil {
		logger.Error("pipeline: query execution failed", "dataset", ds.ID, "error", err, "sql", safeSQL)
		return Result{Status: StatusError, DatasetID: ds.ID, SQL: safeSQL, Message: "query execution failed: " + err.Error()}
	}

	// The fixed note is always present; a strategy-specific note follows it.
	notes := "Query completed."
	if candidate.Notes != "" {
		notes += " " + candidate.Notes
	}
	return Result{
		Status:    StatusOK,
		DatasetID: ds.ID,
		SQL:       safeSQL,
		Results:   &QueryResult{Columns: columns, Rows: rows},
		Explanation: &Explanation{
			Tables:      candidate.Tables,
			Assumptions: candidate.Assumptions,
			Source:      string(candidate.Source),
			Notes:       notes,
		},
	}
}

// route short-circuits retrieval when the caller pinned a valid dataset;
// otherwise it scores the registry and lets the router decide.
func (p *Pipeline) route(ctx context.Context, question, preferredDataset string) (router.Decision, error) {
	if preferred := strings.TrimSpace(preferredDataset); preferred != "" {
		if _, ok := p.reg.Get(preferred); ok {
			return router.Decision{Kind: router.KindSelected, DatasetID: preferred}, nil
		}
		common.Logger().Warn("pipeline: ignoring unknown preferred dataset", "dataset", preferred)
	}
	scores, err := p.retriever.Retrieve(ctx, question)
	if err != nil {
		return router.Decision{}, err
	}
	return p.router.Route(scores, ""), nil
}
