// File path: internal/api/types.go
package api

type queryRequest struct {
	Question         string `json:"question"`
	PreferredDataset string `json:"preferred_dataset,omitempty"`
	UserID           string `json:"user_id,omitempty"`
	TimeZone         string `json:"time_zone,omitempty"`
}

type disambiguateRequest struct {
	Question  string `json:"question"`
	DatasetID string `json:"dataset_id"`
}

type datasetSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Domain      string   `json:"domain"`
	Description string   `json:"description"`
	Grain       string   `json:"grain,omitempty"`
	Tables      []string `json:"tables"`
}
