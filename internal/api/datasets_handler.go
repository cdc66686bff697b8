// File path: internal/api/datasets_handler.go
package api

import (
	"net/http"

	"github.com/ai-financer/nlquery/internal/common"
)

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	datasets := s.pipeline.Datasets()
	out := make([]datasetSummary, 0, len(datasets))
	for _, ds := range datasets {
		tables := make([]string, 0, len(ds.Tables))
		for _, t := range ds.Tables {
			tables = append(tables, t.Qualified())
		}
		out = append(out, datasetSummary{
			ID:          ds.ID,
			Name:        ds.Name,
			Domain:      ds.Domain,
			Description: ds.Description,
			Grain:       ds.Grain,
			Tables:      tables,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"datasets": out})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	entries := common.LogEntries()
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": entries})
}
