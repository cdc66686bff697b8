// File path: internal/retriever/retriever.go
package retriever

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ai-financer/nlquery/internal/common"
	"github.com/ai-financer/nlquery/internal/observability"
	"github.com/ai-financer/nlquery/internal/registry"
	"github.com/ai-financer/nlquery/internal/vector"
)

// Embedder is the minimal contract needed to vectorize a question.
type Embedder interface {
	Embed(ctx context.Context, input []string) ([][]float32, error)
}

const (
	// vectorMatchLimit caps how many index hits are aggregated per question.
	// Modest on purpose: the catalog holds a handful of datasets.
	vectorMatchLimit = 15

	defaultEmbedTimeout = 5 * time.Second
)

// Score is one ranked retrieval candidate. Score is normalized to [0,1];
// Rationale is a short human-readable account of why the dataset matched.
type Score struct {
	DatasetID string  `json:"dataset_id"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

type Retriever struct {
	reg          *registry.Registry
	embedder     Embedder
	index        vector.Store
	embedTimeout time.Duration
}

type Option func(*Retriever)

// WithEmbedTimeout bounds the embedding call; on expiry the keyword fallback
// path is taken rather than failing the request.
func WithEmbedTimeout(timeout time.Duration) Option {
	return func(r *Retriever) {
		if timeout > 0 {
			r.embedTimeout = timeout
		}
	}
}

func New(reg *registry.Registry, embedder Embedder, index vector.Store, opts ...Option) *Retriever {
	r := &Retriever{
		reg:          reg,
		embedder:     embedder,
		index:        index,
		embedTimeout: defaultEmbedTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Retrieve scores every registered dataset against the question and returns
// the ranked list, best first. Semantic scoring is attempted first; any
// embedding or index failure falls back to deterministic keyword overlap.
// The result is non-empty for a non-empty registry; ties keep catalog order.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]Score, error) {
	if r.reg == nil || r.reg.Len() == 0 {
		return nil, registry.ErrEmptyRegistry
	}
	logger := common.Logger()
	if scores, ok := r.semanticScores(ctx, question); ok {
		logger.Debug("retriever: semantic scoring served", "question", question, "candidates", len(scores))
		return scores, nil
	}
	scores := r.keywordScores(question)
	observability.ObserveKeywordFallback()
	logger.Debug("retriever: keyword fallback served", "question", question, "candidates", len(scores))
	return scores, nil
}

func (r *Retriever) semanticScores(ctx context.Context, question string) ([]Score, bool) {
	if r.embedder == nil || r.index == nil || !r.index.Available() {
		return nil, false
	}
	logger := common.Logger()
	embedCtx, cancel := context.WithTimeout(ctx, r.embedTimeout)
	defer cancel()
	vectors, err := r.embedder.Embed(embedCtx, []string{question})
	if err != nil || len(vectors) == 0 || len(vectors[0]) == 0 {
		if err != nil {
			logger.Warn("retriever: question embedding failed, falling back to keywords", "error", err)
		}
		return nil, false
	}
	matches, err := r.index.Search(ctx, vectors[0], vectorMatchLimit)
	if err != nil || len(matches) == 0 {
		if err != nil {
			logger.Warn("retriever: vector search failed, falling back to keywords", "error", err)
		}
		return nil, false
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, match := range matches {
		if match.DatasetID == "" {
			continue
		}
		if _, ok := r.reg.Get(match.DatasetID); !ok {
			continue
		}
		sums[match.DatasetID] += match.Score
		counts[match.DatasetID]++
	}
	if len(sums) == 0 {
		return nil, false
	}
	scores := make([]Score, 0, len(sums))
	for id, sum := range sums {
		scores = append(scores, Score{
			DatasetID: id,
			Score:     sum / float64(counts[id]),
			Rationale: "semantic similarity to dataset metadata",
		})
	}
	r.sortScores(scores)
	return scores, true
}

func (r *Retriever) keywordScores(question string) []Score {
	tokens := tokenSet(question)
	lowered := strings.ToLower(question)
	scores := make([]Score, 0, r.reg.Len())
	for _, ds := range r.reg.List() {
		var matched []string
		for _, keyword := range ds.Keywords {
			if keywordMatches(keyword, lowered, tokens) {
				matched = append(matched, keyword)
			}
		}
		// Every registry entry is ranked; a keywordless dataset scores zero
		// and sorts last rather than disappearing from the result.
		score := 0.0
		if len(ds.Keywords) > 0 {
			score = float64(len(matched)) / float64(len(ds.Keywords))
		}
		rationale := "no keyword overlap"
		switch {
		case len(matched) > 0:
			rationale = "matched keywords: " + strings.Join(matched, ", ")
		case len(ds.Keywords) == 0:
			rationale = "no keywords configured"
		}
		scores = append(scores, Score{DatasetID: ds.ID, Score: score, Rationale: rationale})
	}
	r.sortScores(scores)
	return scores
}

// keywordMatches uses exact token membership for plain single words and
// substring containment for phrases and hyphenated terms like "30-89".
func keywordMatches(keyword, loweredQuestion string, tokens map[string]struct{}) bool {
	if isPlainWord(keyword) {
		_, ok := tokens[keyword]
		return ok
	}
	return strings.Contains(loweredQuestion, keyword)
}

func isPlainWord(keyword string) bool {
	for _, r := range keyword {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return len(keyword) > 0
}

func (r *Retriever) sortScores(scores []Score) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return r.reg.Position(scores[i].DatasetID) < r.reg.Position(scores[j].DatasetID)
	})
}

func tokenSet(text string) map[string]struct{} {
	replacer := strings.NewReplacer(
		".", " ", ",", " ", "?", " ", "!", " ",
		":", " ", ";", " ", "(", " ", ")", " ",
		"'", " ", "\"", " ",
	)
	fields := strings.Fields(replacer.Replace(strings.ToLower(text)))
	out := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		out[field] = struct{}{}
	}
	return out
}
