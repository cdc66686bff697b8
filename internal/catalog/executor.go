// File path: internal/catalog/executor.go
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/ai-financer/nlquery/internal/common"
)

// Execute runs a single already-validated SELECT statement against the
// analytical store and returns ordered column names plus row maps. The
// guardrail validator is the sole gate in front of this method; nothing
// here re-checks the statement.
func (s *Store) Execute(ctx context.Context, sqlText string) ([]string, []map[string]interface{}, error) {
	logger := common.Logger()
	start := time.Now()
	rows, err := s.db.QueryxContext(ctx, sqlText)
	if err != nil {
		return nil, nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("query columns: %w", err)
	}

	results := make([]map[string]interface{}, 0)
	for rows.Next() {
		row := make(map[string]interface{}, len(columns))
		if err := rows.MapScan(row); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}
		for key, value := range row {
			row[key] = normalizeValue(value)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}
	logger.Debug("catalog: query executed", "columns", len(columns), "rows", len(results), "dur", time.Since(start))
	return columns, results, nil
}

func normalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return value
	}
}
