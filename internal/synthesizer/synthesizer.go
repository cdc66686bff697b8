// File path: internal/synthesizer/synthesizer.go
package synthesizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ai-financer/nlquery/internal/common"
	"github.com/ai-financer/nlquery/internal/llm"
	"github.com/ai-financer/nlquery/internal/registry"
)

// Source records which strategy produced a candidate.
type Source string

const (
	SourceLLM      Source = "llm"
	SourceTemplate Source = "template"
)

// Candidate is a synthesized SQL statement before guardrail validation.
type Candidate struct {
	SQL         string
	Source      Source
	DatasetID   string
	Tables      []string
	Assumptions []string
	Notes       string
}

// ErrNoMatchingPattern indicates no synthesis strategy could produce SQL for
// the question against the selected dataset.
var ErrNoMatchingPattern = errors.New("synthesizer: no strategy matched the question")

// ClarificationError carries a follow-up question the model asked instead of
// producing SQL.
type ClarificationError struct {
	Question string
}

func (e *ClarificationError) Error() string {
	return "synthesizer: clarification requested: " + e.Question
}

const defaultChatTimeout = 30 * time.Second

// Synthesizer turns a question plus a dataset descriptor into a SQL
// candidate. Strategies run in a fixed order: the generative provider first,
// then the deterministic template matchers when the provider is unavailable
// or fails.
type Synthesizer struct {
	provider    llm.Provider
	chatTimeout time.Duration
}

type Option func(*Synthesizer)

func WithChatTimeout(timeout time.Duration) Option {
	return func(s *Synthesizer) {
		if timeout > 0 {
			s.chatTimeout = timeout
		}
	}
}

func New(provider llm.Provider, opts ...Option) *Synthesizer {
	s := &Synthesizer{provider: provider, chatTimeout: defaultChatTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Synthesize produces one SQL candidate for the question. A
// *ClarificationError from the provider propagates as-is; every other
// provider failure falls through to the templates, and ErrNoMatchingPattern
// is returned only when the templates cannot bind either.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, ds registry.Dataset) (Candidate, error) {
	logger := common.Logger()
	if s.provider != nil {
		candidate, err := s.llmCandidate(ctx, question, ds)
		switch {
		case err == nil:
			logger.Debug("synthesizer: generative candidate produced", "dataset", ds.ID, "provider", s.provider.Name())
			return candidate, nil
		case isClarification(err):
			return Candidate{}, err
		case errors.Is(err, llm.ErrNotConfigured):
			logger.Debug("synthesizer: provider not configured, using templates", "dataset", ds.ID)
		default:
			logger.Warn("synthesizer: generative synthesis failed, using templates", "dataset", ds.ID, "error", err)
		}
	}
	candidate, err := templateCandidate(question, ds)
	if err != nil {
		return Candidate{}, err
	}
	logger.Debug("synthesizer: template candidate produced", "dataset", ds.ID, "tables", candidate.Tables)
	return candidate, nil
}

func (s *Synthesizer) llmCandidate(ctx context.Context, question string, ds registry.Dataset) (Candidate, error) {
	grounding, err := groundingPayload(ds)
	if err != nil {
		return Candidate{}, err
	}
	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "system", Content: "Dataset context:\n" + grounding},
		{Role: "user", Content: question},
	}
	chatCtx, cancel := context.WithTimeout(ctx, s.chatTimeout)
	defer cancel()
	raw, err := s.provider.Chat(chatCtx, messages)
	if err != nil {
		return Candidate{}, err
	}
	parsed, err := parseResponse(raw)
	if err != nil {
		return Candidate{}, fmt.Errorf("parse provider response: %w", err)
	}
	return Candidate{
		SQL:         parsed.SQL,
		Source:      SourceLLM,
		DatasetID:   ds.ID,
		Tables:      parsed.Tables,
		Assumptions: parsed.Assumptions,
		Notes:       parsed.Notes,
	}, nil
}

func isClarification(err error) bool {
	var clarification *ClarificationError
	return errors.As(err, &clarification)
}
