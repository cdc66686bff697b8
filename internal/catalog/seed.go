// File path: internal/catalog/seed.go
package catalog

import (
	"context"
	"fmt"
)

type datasetSeed struct {
	id, name, domain, description, grain, freshness, owner, keywords string
}

type tableSeed struct {
	datasetID, schema, name, desc, primaryKeys, partitionCols, importantCols, exampleFilters string
}

type definitionSeed struct {
	datasetID, term, definition, formula, notes string
}

// Seed ordering is load-bearing: catalog position doubles as the retrieval
// tie-breaker, so new datasets go at the end.
var datasetSeeds = []datasetSeed{
	{
		id:     "cpfb_delinquency",
		name:   "CPFB Mortgage Delinquency",
		domain: "delinquency",
		description: "Consumer Financial Protection Bureau mortgage performance data. " +
			"Percent of mortgages 30-89 days delinquent and 90+ days delinquent. " +
			"Available by state, metro area, and county. Data from Jan 2008 to present.",
		grain:     "state_month",
		freshness: "Monthly",
		owner:     "CFPB",
		keywords:  "delinquency,delinquent,delinquency rate,past due,late,mortgage performance,30-89,90+,serious delinquency,foreclosure",
	},
	{
		id:     "fred_rates",
		name:   "FRED Mortgage Rates",
		domain: "rates",
		description: "Federal Reserve Economic Data - 30-year and 15-year fixed mortgage rates " +
			"from Freddie Mac Primary Mortgage Market Survey. Weekly data from 1971.",
		grain:     "weekly",
		freshness: "Weekly",
		owner:     "FRED",
		keywords:  "mortgage rate,mortgage rates,interest rate,30-year,15-year,fixed rate,arm,freddie mac,pmms",
	},
	{
		id:     "fhfa_hpi",
		name:   "FHFA House Price Index",
		domain: "housing",
		description: "FHFA House Price Index - measures single-family home price changes from " +
			"Fannie Mae and Freddie Mac repeat-sales. Available by state and metro.",
		grain:     "state_quarter",
		freshness: "Quarterly",
		owner:     "FHFA",
		keywords:  "house price,home price,hpi,price index,housing market,appreciation,home value,fhfa,house prices",
	},
}

var tableSeeds = []tableSeed{
	{
		datasetID: "cpfb_delinquency", schema: "main", name: "cpfb_state_delinquency_30_89",
		desc:          "State-level % of mortgages 30-89 days delinquent. Columns: date, state_fips, state_name, pct_30_89_days_late",
		primaryKeys:   "date, state_fips", partitionCols: "date",
		importantCols:  "date, state_fips, state_name, pct_30_89_days_late",
		exampleFilters: "date BETWEEN '2020-01-01' AND '2025-12-31'",
	},
	{
		datasetID: "cpfb_delinquency", schema: "main", name: "cpfb_state_delinquency_90_plus",
		desc:          "State-level % of mortgages 90+ days delinquent. Columns: date, state_fips, state_name, pct_90_plus_days_late",
		primaryKeys:   "date, state_fips", partitionCols: "date",
		importantCols:  "date, state_fips, state_name, pct_90_plus_days_late",
		exampleFilters: "date BETWEEN '2020-01-01' AND '2025-12-31'",
	},
	{
		datasetID: "cpfb_delinquency", schema: "main", name: "cpfb_metro_delinquency_30_89",
		desc:          "Metro area % mortgages 30-89 days delinquent. Columns: date, metro_area, pct_30_89_days_late",
		primaryKeys:   "date, metro_area", partitionCols: "date",
		importantCols:  "date, metro_area, pct_30_89_days_late",
		exampleFilters: "date >= '2020-01-01'",
	},
	{
		datasetID: "cpfb_delinquency", schema: "main", name: "cpfb_metro_delinquency_90_plus",
		desc:          "Metro area % mortgages 90+ days delinquent. Columns: date, metro_area, pct_90_plus_days_late",
		primaryKeys:   "date, metro_area", partitionCols: "date",
		importantCols:  "date, metro_area, pct_90_plus_days_late",
		exampleFilters: "date >= '2020-01-01'",
	},
	{
		datasetID: "fred_rates", schema: "main", name: "fred_mortgage_rates",
		desc:          "30-year and 15-year fixed mortgage rates. Columns: date, mort_30yr, mort_15yr, mort_5yr_arm",
		primaryKeys:   "date",
		importantCols:  "date, mort_30yr, mort_15yr, mort_5yr_arm",
		exampleFilters: "date >= '2020-01-01'",
	},
	{
		datasetID: "fhfa_hpi", schema: "main", name: "fhfa_hpi_state",
		desc:          "FHFA House Price Index by state. Columns: period, state_fips, state_name, hpi_value, hpi_yoy_change",
		primaryKeys:   "period, state_fips", partitionCols: "period",
		importantCols:  "period, state_fips, state_name, hpi_value, hpi_yoy_change",
		exampleFilters: "period >= '2020Q1'",
	},
}

var definitionSeeds = []definitionSeed{
	{"cpfb_delinquency", "delinquency_rate_30_89",
		"Percentage of mortgages 30-89 days past due. Use pct_30_89_days_late column.", "", "Early delinquency indicator"},
	{"cpfb_delinquency", "delinquency_rate_90_plus",
		"Percentage of mortgages 90+ days past due (serious delinquency). Use pct_90_plus_days_late.", "", "Serious delinquency; foreclosure risk"},
	{"cpfb_delinquency", "delinquency",
		"Mortgage delinquency - either 30-89 or 90+ days late depending on context.", "", ""},
	{"fred_rates", "mortgage_rate",
		"30-year fixed mortgage rate from Freddie Mac PMMS. Column mort_30yr.", "", "Primary market rate"},
	{"fred_rates", "mort_30yr",
		"30-year fixed rate. mort_15yr for 15-year.", "", ""},
	{"fhfa_hpi", "house_price_index",
		"FHFA House Price Index - repeat sales index. hpi_value. hpi_yoy_change = year-over-year % change.", "", "Based on GSE mortgages"},
}

func (s *Store) seed(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog seed begin: %w", err)
	}
	defer tx.Rollback()

	for i, ds := range datasetSeeds {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO nlq_dataset_registry
			 (dataset_id, dataset_name, domain, description, grain, freshness_sla, owner_team, keywords, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ds.id, ds.name, ds.domain, ds.description, ds.grain, ds.freshness, ds.owner, ds.keywords, i,
		); err != nil {
			return fmt.Errorf("catalog seed dataset %s: %w", ds.id, err)
		}
	}
	for _, t := range tableSeeds {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO nlq_table_registry
			 (dataset_id, schema_name, table_name, table_desc, primary_keys, partition_cols, important_cols, example_filters)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.datasetID, t.schema, t.name, t.desc, t.primaryKeys, t.partitionCols, t.importantCols, t.exampleFilters,
		); err != nil {
			return fmt.Errorf("catalog seed table %s: %w", t.name, err)
		}
	}
	for _, d := range definitionSeeds {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO nlq_domain_definitions
			 (dataset_id, term, definition, formula_sql, notes)
			 VALUES (?, ?, ?, ?, ?)`,
			d.datasetID, d.term, d.definition, d.formula, d.notes,
		); err != nil {
			return fmt.Errorf("catalog seed definition %s: %w", d.term, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog seed commit: %w", err)
	}
	return nil
}
