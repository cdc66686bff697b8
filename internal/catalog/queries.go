// File path: internal/catalog/queries.go
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ai-financer/nlquery/internal/registry"
)

type datasetRow struct {
	DatasetID   string         `db:"dataset_id"`
	DatasetName string         `db:"dataset_name"`
	Domain      string         `db:"domain"`
	Description string         `db:"description"`
	Grain       sql.NullString `db:"grain"`
	Keywords    sql.NullString `db:"keywords"`
}

type tableRow struct {
	DatasetID      string         `db:"dataset_id"`
	SchemaName     string         `db:"schema_name"`
	TableName      string         `db:"table_name"`
	TableDesc      string         `db:"table_desc"`
	PrimaryKeys    sql.NullString `db:"primary_keys"`
	ImportantCols  sql.NullString `db:"important_cols"`
	ExampleFilters sql.NullString `db:"example_filters"`
}

type definitionRow struct {
	DatasetID  string         `db:"dataset_id"`
	Term       string         `db:"term"`
	Definition string         `db:"definition"`
	FormulaSQL sql.NullString `db:"formula_sql"`
}

// LoadDatasets reads the full metadata registry in catalog order and
// assembles the immutable dataset descriptors consumed by the pipeline.
func (s *Store) LoadDatasets(ctx context.Context) ([]registry.Dataset, error) {
	var dsRows []datasetRow
	if err := s.db.SelectContext(ctx, &dsRows,
		`SELECT dataset_id, dataset_name, domain, description, grain, keywords
		 FROM nlq_dataset_registry ORDER BY position, dataset_id`); err != nil {
		return nil, fmt.Errorf("catalog load datasets: %w", err)
	}

	var tRows []tableRow
	if err := s.db.SelectContext(ctx, &tRows,
		`SELECT dataset_id, schema_name, table_name, table_desc, primary_keys, important_cols, example_filters
		 FROM nlq_table_registry ORDER BY dataset_id, table_name`); err != nil {
		return nil, fmt.Errorf("catalog load tables: %w", err)
	}

	var defRows []definitionRow
	if err := s.db.SelectContext(ctx, &defRows,
		`SELECT dataset_id, term, definition, formula_sql
		 FROM nlq_domain_definitions ORDER BY dataset_id, term`); err != nil {
		return nil, fmt.Errorf("catalog load definitions: %w", err)
	}

	tablesByDataset := make(map[string][]registry.Table)
	for _, t := range tRows {
		tablesByDataset[t.DatasetID] = append(tablesByDataset[t.DatasetID], registry.Table{
			Schema:         t.SchemaName,
			Name:           t.TableName,
			Description:    t.TableDesc,
			PrimaryKeys:    t.PrimaryKeys.String,
			ImportantCols:  t.ImportantCols.String,
			ExampleFilters: t.ExampleFilters.String,
		})
	}
	defsByDataset := make(map[string][]registry.Definition)
	for _, d := range defRows {
		defsByDataset[d.DatasetID] = append(defsByDataset[d.DatasetID], registry.Definition{
			Term:       d.Term,
			Definition: d.Definition,
			FormulaSQL: d.FormulaSQL.String,
		})
	}

	out := make([]registry.Dataset, 0, len(dsRows))
	for _, row := range dsRows {
		out = append(out, registry.Dataset{
			ID:          row.DatasetID,
			Name:        row.DatasetName,
			Domain:      row.Domain,
			Description: row.Description,
			Grain:       row.Grain.String,
			Tables:      tablesByDataset[row.DatasetID],
			Definitions: defsByDataset[row.DatasetID],
			Keywords:    splitKeywords(row.Keywords.String),
		})
	}
	return out, nil
}

func splitKeywords(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
