// File path: internal/router/router.go
package router

import (
	"fmt"
	"strings"

	"github.com/ai-financer/nlquery/internal/common"
	"github.com/ai-financer/nlquery/internal/registry"
	"github.com/ai-financer/nlquery/internal/retriever"
)

// Kind tags the routing decision variant. Exactly one is produced per call.
type Kind string

const (
	KindSelected           Kind = "selected"
	KindNeedsSelection     Kind = "needs_selection"
	KindNeedsClarification Kind = "needs_clarification"
)

// Choice is one disambiguation candidate presented to the caller.
type Choice struct {
	DatasetID string `json:"dataset_id"`
	Label     string `json:"label"`
	Why       string `json:"why"`
}

// Decision is the routing outcome. Only the fields for the tagged Kind are
// populated.
type Decision struct {
	Kind               Kind
	DatasetID          string
	Choices            []Choice
	ClarifyingQuestion string
}

// Router decides between auto-selection, disambiguation, and clarification
// based on the ranked retrieval scores. It is stateless: identical inputs
// yield identical decisions.
type Router struct {
	reg *registry.Registry
	cfg Config
}

func New(reg *registry.Registry, cfg Config) *Router {
	cfg.applyDefaults()
	return &Router{reg: reg, cfg: cfg}
}

// Route applies the decision rules in order:
//  1. a valid preferred dataset short-circuits scoring entirely
//  2. a clear winner (high confidence plus separation) is auto-selected
//  3. near-ties above the relevance floor become a disambiguation prompt
//  4. nothing above the floor becomes a clarification prompt
//  5. otherwise the top candidate wins by default
func (r *Router) Route(scores []retriever.Score, preferredDataset string) Decision {
	logger := common.Logger()
	if preferred := strings.TrimSpace(preferredDataset); preferred != "" {
		if _, ok := r.reg.Get(preferred); ok {
			logger.Debug("router: preferred dataset pinned", "dataset", preferred)
			return Decision{Kind: KindSelected, DatasetID: preferred}
		}
		logger.Warn("router: preferred dataset unknown, falling back to scoring", "dataset", preferred)
	}
	if len(scores) == 0 {
		return Decision{Kind: KindNeedsClarification, ClarifyingQuestion: r.clarifyingQuestion(nil)}
	}

	top := scores[0]
	gap := top.Score
	if len(scores) > 1 {
		gap = top.Score - scores[1].Score
	}

	if top.Score >= r.cfg.HighConfidence && gap > r.cfg.Separation {
		logger.Debug("router: clear winner", "dataset", top.DatasetID, "score", top.Score, "gap", gap)
		return Decision{Kind: KindSelected, DatasetID: top.DatasetID}
	}

	if top.Score >= r.cfg.RelevanceFloor && gap <= r.cfg.Separation {
		choices := r.buildChoices(scores)
		if len(choices) > 1 {
			logger.Debug("router: ambiguous scoring", "choices", len(choices))
			return Decision{Kind: KindNeedsSelection, Choices: choices}
		}
	}

	if top.Score < r.cfg.RelevanceFloor {
		logger.Debug("router: no confident match", "top_score", top.Score)
		return Decision{Kind: KindNeedsClarification, ClarifyingQuestion: r.clarifyingQuestion(scores)}
	}

	// Above the floor with clear separation but below high confidence: the
	// top candidate is still the only plausible answer.
	logger.Debug("router: default selection", "dataset", top.DatasetID, "score", top.Score)
	return Decision{Kind: KindSelected, DatasetID: top.DatasetID}
}

func (r *Router) buildChoices(scores []retriever.Score) []Choice {
	top := scores[0]
	choices := make([]Choice, 0, r.cfg.MaxChoices)
	for _, score := range scores {
		if len(choices) >= r.cfg.MaxChoices {
			break
		}
		if score.Score < r.cfg.RelevanceFloor {
			continue
		}
		if top.Score-score.Score > r.cfg.Separation {
			continue
		}
		ds, ok := r.reg.Get(score.DatasetID)
		if !ok {
			continue
		}
		why := score.Rationale
		if strings.TrimSpace(why) == "" {
			why = ds.Description
		}
		choices = append(choices, Choice{DatasetID: ds.ID, Label: ds.Name, Why: why})
	}
	return choices
}

// clarifyingQuestion is templated from the domains of the closest (still
// weak) candidates so the caller can steer the user.
func (r *Router) clarifyingQuestion(scores []retriever.Score) string {
	domains := r.candidateDomains(scores)
	if len(domains) == 0 {
		return "Could you rephrase your question? I can answer questions about the available analytical datasets."
	}
	return fmt.Sprintf(
		"Your question is too broad for me to pick a dataset. Are you asking about %s data?",
		joinDomains(domains),
	)
}

func (r *Router) candidateDomains(scores []retriever.Score) []string {
	seen := make(map[string]struct{})
	var domains []string
	appendDomain := func(domain string) {
		if domain == "" {
			return
		}
		if _, ok := seen[domain]; ok {
			return
		}
		seen[domain] = struct{}{}
		domains = append(domains, domain)
	}
	for i, score := range scores {
		if i >= r.cfg.MaxChoices || score.Score <= 0 {
			break
		}
		if ds, ok := r.reg.Get(score.DatasetID); ok {
			appendDomain(ds.Domain)
		}
	}
	if len(domains) == 0 {
		for _, ds := range r.reg.List() {
			appendDomain(ds.Domain)
		}
	}
	return domains
}

func joinDomains(domains []string) string {
	switch len(domains) {
	case 1:
		return domains[0]
	case 2:
		return domains[0] + " or " + domains[1]
	default:
		return strings.Join(domains[:len(domains)-1], ", ") + ", or " + domains[len(domains)-1]
	}
}
