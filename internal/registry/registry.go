// File path: internal/registry/registry.go
package registry

import (
	"errors"
	"strings"
)

// Table describes one analytical table belonging to a dataset.
type Table struct {
	Schema         string `json:"schema"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	PrimaryKeys    string `json:"primary_keys,omitempty"`
	ImportantCols  string `json:"important_cols,omitempty"`
	ExampleFilters string `json:"example_filters,omitempty"`
}

// Qualified returns the schema-qualified table name used in generated SQL.
func (t Table) Qualified() string {
	if strings.TrimSpace(t.Schema) == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Definition is a domain term with its meaning and, optionally, the SQL
// formula that computes it.
type Definition struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
	FormulaSQL string `json:"formula_sql,omitempty"`
}

// Dataset is an immutable descriptor for one analytical dataset. Instances
// are loaded once at process start and shared read-only across requests.
type Dataset struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Domain      string       `json:"domain"`
	Description string       `json:"description"`
	Grain       string       `json:"grain,omitempty"`
	Tables      []Table      `json:"tables"`
	Definitions []Definition `json:"definitions,omitempty"`
	Keywords    []string     `json:"keywords,omitempty"`
}

// TableWhitelist returns the lower-cased bare table names the dataset is
// permitted to reference in generated SQL.
func (d Dataset) TableWhitelist() map[string]struct{} {
	out := make(map[string]struct{}, len(d.Tables))
	for _, t := range d.Tables {
		out[strings.ToLower(t.Name)] = struct{}{}
	}
	return out
}

// Registry is the static catalog of available datasets. Ordering matches the
// catalog seed order and is used as the deterministic tie-breaker during
// retrieval.
type Registry struct {
	datasets []Dataset
	byID     map[string]int
}

// ErrEmptyRegistry indicates a configuration problem: the catalog holds no
// dataset descriptors.
var ErrEmptyRegistry = errors.New("registry: no datasets configured")

// New builds a registry from descriptors in catalog order.
func New(datasets []Dataset) (*Registry, error) {
	if len(datasets) == 0 {
		return nil, ErrEmptyRegistry
	}
	byID := make(map[string]int, len(datasets))
	for i, ds := range datasets {
		byID[ds.ID] = i
	}
	return &Registry{datasets: datasets, byID: byID}, nil
}

// List returns all dataset descriptors in catalog order.
func (r *Registry) List() []Dataset {
	out := make([]Dataset, len(r.datasets))
	copy(out, r.datasets)
	return out
}

// Get returns the descriptor for the given dataset id.
func (r *Registry) Get(id string) (Dataset, bool) {
	idx, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return Dataset{}, false
	}
	return r.datasets[idx], true
}

// Position returns the catalog position of a dataset id, or the registry
// length when unknown. Used for stable tie-breaking.
func (r *Registry) Position(id string) int {
	if idx, ok := r.byID[id]; ok {
		return idx
	}
	return len(r.datasets)
}

// Len returns the number of registered datasets.
func (r *Registry) Len() int {
	return len(r.datasets)
}
