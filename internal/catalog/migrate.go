// File path: internal/catalog/migrate.go
package catalog

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS nlq_dataset_registry (
		dataset_id TEXT PRIMARY KEY,
		dataset_name TEXT NOT NULL,
		domain TEXT NOT NULL,
		description TEXT NOT NULL,
		grain TEXT,
		freshness_sla TEXT,
		owner_team TEXT,
		pii_level TEXT DEFAULT 'none',
		keywords TEXT,
		position INTEGER NOT NULL DEFAULT 0,
		created_at TEXT DEFAULT (datetime('now')),
		updated_at TEXT DEFAULT (datetime('now'))
	)`,
	`CREATE TABLE IF NOT EXISTS nlq_table_registry (
		dataset_id TEXT NOT NULL,
		schema_name TEXT NOT NULL,
		table_name TEXT NOT NULL,
		table_desc TEXT NOT NULL,
		primary_keys TEXT,
		partition_cols TEXT,
		important_cols TEXT,
		example_filters TEXT,
		updated_at TEXT DEFAULT (datetime('now')),
		PRIMARY KEY (dataset_id, schema_name, table_name)
	)`,
	`CREATE TABLE IF NOT EXISTS nlq_domain_definitions (
		dataset_id TEXT NOT NULL,
		term TEXT NOT NULL,
		definition TEXT NOT NULL,
		formula_sql TEXT,
		notes TEXT,
		PRIMARY KEY (dataset_id, term)
	)`,
	`CREATE TABLE IF NOT EXISTS cpfb_state_delinquency_30_89 (
		date TEXT NOT NULL,
		state_fips TEXT NOT NULL,
		state_name TEXT NOT NULL,
		pct_30_89_days_late REAL NOT NULL,
		PRIMARY KEY (date, state_fips)
	)`,
	`CREATE TABLE IF NOT EXISTS cpfb_state_delinquency_90_plus (
		date TEXT NOT NULL,
		state_fips TEXT NOT NULL,
		state_name TEXT NOT NULL,
		pct_90_plus_days_late REAL NOT NULL,
		PRIMARY KEY (date, state_fips)
	)`,
	`CREATE TABLE IF NOT EXISTS cpfb_metro_delinquency_30_89 (
		date TEXT NOT NULL,
		metro_area TEXT NOT NULL,
		pct_30_89_days_late REAL NOT NULL,
		PRIMARY KEY (date, metro_area)
	)`,
	`CREATE TABLE IF NOT EXISTS cpfb_metro_delinquency_90_plus (
		date TEXT NOT NULL,
		metro_area TEXT NOT NULL,
		pct_90_plus_days_late REAL NOT NULL,
		PRIMARY KEY (date, metro_area)
	)`,
	`CREATE TABLE IF NOT EXISTS fred_mortgage_rates (
		date TEXT PRIMARY KEY,
		mort_30yr REAL,
		mort_15yr REAL,
		mort_5yr_arm REAL
	)`,
	`CREATE TABLE IF NOT EXISTS fhfa_hpi_state (
		period TEXT NOT NULL,
		state_fips TEXT NOT NULL,
		state_name TEXT,
		hpi_value REAL,
		hpi_yoy_change REAL,
		PRIMARY KEY (period, state_fips)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cpfb_state_date ON cpfb_state_delinquency_30_89(date)`,
	`CREATE INDEX IF NOT EXISTS idx_cpfb_state_state ON cpfb_state_delinquency_30_89(state_fips)`,
	`CREATE INDEX IF NOT EXISTS idx_fred_date ON fred_mortgage_rates(date)`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("catalog migrate: %w", err)
		}
	}
	return nil
}
