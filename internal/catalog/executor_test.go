// File path: internal/catalog/executor_test.go
package catalog

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewWithDB(sqlx.NewDb(db, "sqlmock")), mock
}

func TestExecuteReturnsColumnsAndRows(t *testing.T) {
	store, mock := newMockStore(t)
	query := "SELECT date, mort_30yr FROM fred_mortgage_rates LIMIT 1000"
	mock.ExpectQuery(query).WillReturnRows(
		sqlmock.NewRows([]string{"date", "mort_30yr"}).
			AddRow("2024-01-04", 6.62).
			AddRow("2024-01-11", 6.66),
	)

	columns, rows, err := store.Execute(context.Background(), query)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(columns) != 2 || columns[0] != "date" || columns[1] != "mort_30yr" {
		t.Fatalf("columns = %v", columns)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[0]["date"] != "2024-01-04" {
		t.Fatalf("row value = %v", rows[0]["date"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestExecuteNormalizesByteColumns(t *testing.T) {
	store, mock := newMockStore(t)
	query := "SELECT state_name FROM cpfb_state_delinquency_30_89 LIMIT 1000"
	mock.ExpectQuery(query).WillReturnRows(
		sqlmock.NewRows([]string{"state_name"}).AddRow([]byte("Texas")),
	)

	_, rows, err := store.Execute(context.Background(), query)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if rows[0]["state_name"] != "Texas" {
		t.Fatalf("byte column not normalized: %#v", rows[0]["state_name"])
	}
}

func TestExecuteEmptyResult(t *testing.T) {
	store, mock := newMockStore(t)
	query := "SELECT date FROM fred_mortgage_rates LIMIT 1000"
	mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"date"}))

	columns, rows, err := store.Execute(context.Background(), query)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(columns) != 1 {
		t.Fatalf("columns = %v", columns)
	}
	if rows == nil || len(rows) != 0 {
		t.Fatalf("expected empty non-nil rows, got %#v", rows)
	}
}

func TestExecuteQueryError(t *testing.T) {
	store, mock := newMockStore(t)
	query := "SELECT nope FROM fred_mortgage_rates LIMIT 1000"
	mock.ExpectQuery(query).WillReturnError(errors.New("no such column: nope"))

	_, _, err := store.Execute(context.Background(), query)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestSplitKeywords(t *testing.T) {
	got := splitKeywords("Delinquency, past due ,,30-89")
	want := []string{"delinquency", "past due", "30-89"}
	if len(got) != len(want) {
		t.Fatalf("keywords = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keywords = %v, want %v", got, want)
		}
	}
	if splitKeywords("  ") != nil {
		t.Fatalf("blank input should yield nil")
	}
}
