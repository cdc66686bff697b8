// File path: internal/api/query_handler.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ai-financer/nlquery/internal/common"
	"github.com/ai-financer/nlquery/internal/pipeline"
)

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: query decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		logger.Warn("api: query question missing")
		writeError(w, http.StatusBadRequest, fmt.Errorf("question required"))
		return
	}
	logger.Info("api: query received", "question_length", len(req.Question), "preferred_dataset", req.PreferredDataset, "user", req.UserID)
	result := s.pipeline.Resolve(r.Context(), req.Question, req.PreferredDataset)
	writeJSON(w, resultStatusCode(result), result)
}

// handleDisambiguate resumes a needs_selection exchange: the caller replays
// the question with the dataset they picked, which pins routing to it.
func (s *Server) handleDisambiguate(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req disambiguateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: disambiguate decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("question required"))
		return
	}
	if strings.TrimSpace(req.DatasetID) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("dataset_id required"))
		return
	}
	logger.Info("api: disambiguation received", "dataset", req.DatasetID)
	result := s.pipeline.Resolve(r.Context(), req.Question, req.DatasetID)
	writeJSON(w, resultStatusCode(result), result)
}

// resultStatusCode maps resolution statuses onto HTTP codes. Disambiguation
// and clarification are successful exchanges, not failures.
func resultStatusCode(result pipeline.Result) int {
	switch result.Status {
	case pipeline.StatusError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusOK
	}
}
