// File path: internal/synthesizer/prompt.go
package synthesizer

import (
	"encoding/json"
	"fmt"

	"github.com/ai-financer/nlquery/internal/registry"
)

const systemPrompt = `You are a SQL analyst for a mortgage analytics warehouse (SQLite dialect).
Translate the user's question into a single read-only SELECT statement using
only the tables described in the dataset context.

Rules:
- Output exactly one SELECT (or WITH ... SELECT) statement. No DML or DDL.
- Reference only the tables listed in the dataset context.
- Do not add a LIMIT clause unless the question asks for a specific number of rows.
- Use the column names from the dataset context verbatim.
- When a domain term is defined in the context, follow its definition.

Respond with a JSON object:
  {"sql": "...", "tables": ["..."], "assumptions": ["..."], "notes": "..."}
If the question cannot be answered from this dataset, respond instead with:
  {"status": "needs_clarification", "question": "<what you need to know>"}`

type groundingTable struct {
	Table          string `json:"table"`
	Description    string `json:"description"`
	PrimaryKeys    string `json:"primary_keys,omitempty"`
	ImportantCols  string `json:"important_cols,omitempty"`
	ExampleFilters string `json:"example_filters,omitempty"`
}

type groundingDefinition struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
	FormulaSQL string `json:"formula_sql,omitempty"`
}

type groundingExample struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
}

type groundingDocument struct {
	DatasetID   string                `json:"dataset_id"`
	Name        string                `json:"name"`
	Domain      string                `json:"domain"`
	Description string                `json:"description"`
	Grain       string                `json:"grain,omitempty"`
	Tables      []groundingTable      `json:"tables"`
	Definitions []groundingDefinition `json:"definitions,omitempty"`
	Examples    []groundingExample    `json:"examples,omitempty"`
}

// exampleQueries anchors the model on each dataset's canonical shapes.
var exampleQueries = map[string][]groundingExample{
	"delinquency": {
		{
			Question: "What was the delinquency rate in California in 2023?",
			SQL:      "SELECT date, state_name, pct_30_89_days_late FROM main.cpfb_state_delinquency_30_89 WHERE state_name = 'California' AND date LIKE '2023-%' ORDER BY date",
		},
		{
			Question: "Which states have the highest serious delinquency right now?",
			SQL:      "SELECT state_name, pct_90_plus_days_late FROM main.cpfb_state_delinquency_90_plus WHERE date = (SELECT MAX(date) FROM main.cpfb_state_delinquency_90_plus) ORDER BY pct_90_plus_days_late DESC LIMIT 10",
		},
	},
	"rates": {
		{
			Question: "What is the latest 30-year mortgage rate?",
			SQL:      "SELECT date, mort_30yr FROM main.fred_mortgage_rates WHERE date = (SELECT MAX(date) FROM main.fred_mortgage_rates)",
		},
		{
			Question: "How have mortgage rates trended over the last 6 months?",
			SQL:      "SELECT date, mort_30yr FROM main.fred_mortgage_rates WHERE date >= date('now', '-6 months') ORDER BY date",
		},
	},
	"housing": {
		{
			Question: "What is the house price index for Texas?",
			SQL:      "SELECT period, state_name, hpi_value FROM main.fhfa_hpi_state WHERE state_name = 'Texas' ORDER BY period",
		},
		{
			Question: "Which states saw the most home price appreciation?",
			SQL:      "SELECT state_name, hpi_yoy_change FROM main.fhfa_hpi_state WHERE period = (SELECT MAX(period) FROM main.fhfa_hpi_state) ORDER BY hpi_yoy_change DESC LIMIT 10",
		},
	},
}

// groundingPayload renders the dataset descriptor as the JSON context block
// fed to the model alongside the system prompt.
func groundingPayload(ds registry.Dataset) (string, error) {
	doc := groundingDocument{
		DatasetID:   ds.ID,
		Name:        ds.Name,
		Domain:      ds.Domain,
		Description: ds.Description,
		Grain:       ds.Grain,
	}
	for _, t := range ds.Tables {
		doc.Tables = append(doc.Tables, groundingTable{
			Table:          t.Qualified(),
			Description:    t.Description,
			PrimaryKeys:    t.PrimaryKeys,
			ImportantCols:  t.ImportantCols,
			ExampleFilters: t.ExampleFilters,
		})
	}
	for _, d := range ds.Definitions {
		doc.Definitions = append(doc.Definitions, groundingDefinition{
			Term:       d.Term,
			Definition: d.Definition,
			FormulaSQL: d.FormulaSQL,
		})
	}
	doc.Examples = exampleQueries[ds.Domain]
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode grounding payload: %w", err)
	}
	return string(data), nil
}
