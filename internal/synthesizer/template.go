// File path: internal/synthesizer/template.go
package synthesizer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ai-financer/nlquery/internal/registry"
)

// tableShape is the resolved query surface for one dataset: which table the
// question maps to and which columns carry the date, the metric, and the
// region dimension (empty for datasets without one).
type tableShape struct {
	table     string
	bareTable string
	dateCol   string
	metricCol string
	regionCol string
}

type matcher func(question string, ds registry.Dataset, shape tableShape) (Candidate, bool)

// Matcher order is deliberate: the most specific patterns bind first and the
// generic dataset listing is the last resort.
var matchers = []matcher{
	matchAverageByYear,
	matchTrendOverMonths,
	matchTopN,
	matchLatest,
	matchDatasetListing,
}

func templateCandidate(question string, ds registry.Dataset) (Candidate, error) {
	lowered := strings.ToLower(question)
	shape, ok := shapeFor(ds, lowered)
	if !ok {
		return Candidate{}, ErrNoMatchingPattern
	}
	for _, match := range matchers {
		if candidate, ok := match(lowered, ds, shape); ok {
			candidate.Source = SourceTemplate
			candidate.DatasetID = ds.ID
			if len(candidate.Tables) == 0 {
				candidate.Tables = []string{shape.bareTable}
			}
			return candidate, nil
		}
	}
	return Candidate{}, ErrNoMatchingPattern
}

func shapeFor(ds registry.Dataset, question string) (tableShape, bool) {
	var shape tableShape
	switch ds.Domain {
	case "delinquency":
		metro := strings.Contains(question, "metro")
		serious := strings.Contains(question, "90") || strings.Contains(question, "serious")
		switch {
		case metro && serious:
			shape = tableShape{bareTable: "cpfb_metro_delinquency_90_plus", dateCol: "date", metricCol: "pct_90_plus_days_late", regionCol: "metro_area"}
		case metro:
			shape = tableShape{bareTable: "cpfb_metro_delinquency_30_89", dateCol: "date", metricCol: "pct_30_89_days_late", regionCol: "metro_area"}
		case serious:
			shape = tableShape{bareTable: "cpfb_state_delinquency_90_plus", dateCol: "date", metricCol: "pct_90_plus_days_late", regionCol: "state_name"}
		default:
			shape = tableShape{bareTable: "cpfb_state_delinquency_30_89", dateCol: "date", metricCol: "pct_30_89_days_late", regionCol: "state_name"}
		}
	case "rates":
		metric := "mort_30yr"
		if strings.Contains(question, "15-year") || strings.Contains(question, "15 year") {
			metric = "mort_15yr"
		} else if strings.Contains(question, "arm") || strings.Contains(question, "adjustable") {
			metric = "mort_5yr_arm"
		}
		shape = tableShape{bareTable: "fred_mortgage_rates", dateCol: "date", metricCol: metric}
	case "housing":
		metric := "hpi_value"
		if strings.Contains(question, "yoy") || strings.Contains(question, "year-over-year") ||
			strings.Contains(question, "year over year") || strings.Contains(question, "appreciation") {
			metric = "hpi_yoy_change"
		}
		shape = tableShape{bareTable: "fhfa_hpi_state", dateCol: "period", metricCol: metric, regionCol: "state_name"}
	default:
		return tableShape{}, false
	}
	shape.table = shape.bareTable
	for _, t := range ds.Tables {
		if strings.EqualFold(t.Name, shape.bareTable) {
			shape.table = t.Qualified()
			break
		}
	}
	return shape, true
}

var (
	yearPattern       = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	lastMonthsPattern = regexp.MustCompile(`(?:last|past)\s+(\d+)\s+months?`)
	topNPattern       = regexp.MustCompile(`\btop\s+(\d+)\b`)
)

// matchAverageByYear handles "average <metric> in <state> in <year>" style
// questions by returning the underlying period series; the caller sees every
// observation the average would be computed over.
func matchAverageByYear(question string, _ registry.Dataset, shape tableShape) (Candidate, bool) {
	if !strings.Contains(question, "average") && !strings.Contains(question, "avg") &&
		!strings.Contains(question, "mean") {
		return Candidate{}, false
	}
	year := yearPattern.FindString(question)
	state := stateIn(question)
	if year == "" && state == "" {
		return Candidate{}, false
	}

	columns := []string{shape.dateCol}
	if shape.regionCol != "" && state != "" {
		columns = append(columns, shape.regionCol)
	}
	columns = append(columns, shape.metricCol)

	var where []string
	var assumptions []string
	if shape.regionCol != "" && state != "" {
		where = append(where, fmt.Sprintf("%s = '%s'", shape.regionCol, state))
		assumptions = append(assumptions, "filtered to "+state)
	}
	if year != "" {
		where = append(where, fmt.Sprintf("%s LIKE '%s'", shape.dateCol, yearPrefix(shape.dateCol, year)))
		assumptions = append(assumptions, "limited to calendar year "+year)
	}
	assumptions = append(assumptions, "using "+shape.metricCol+" as the measure")

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s",
		strings.Join(columns, ", "), shape.table, strings.Join(where, " AND "), shape.dateCol)
	return Candidate{
		SQL:         sql,
		Assumptions: assumptions,
		Notes:       "Returns the full period series; average over the rows as needed.",
	}, true
}

func matchTrendOverMonths(question string, _ registry.Dataset, shape tableShape) (Candidate, bool) {
	months := 0
	if groups := lastMonthsPattern.FindStringSubmatch(question); len(groups) == 2 {
		months, _ = strconv.Atoi(groups[1])
	}
	if months == 0 {
		if !strings.Contains(question, "trend") {
			return Candidate{}, false
		}
		months = 12
	}

	columns := []string{shape.dateCol}
	state := stateIn(question)
	var where []string
	assumptions := []string{fmt.Sprintf("window of the last %d months", months)}
	if shape.regionCol != "" && state != "" {
		columns = append(columns, shape.regionCol)
		where = append(where, fmt.Sprintf("%s = '%s'", shape.regionCol, state))
		assumptions = append(assumptions, "filtered to "+state)
	}
	columns = append(columns, shape.metricCol)
	where = append(where, fmt.Sprintf("%s >= date('now', '-%d months')", shape.dateCol, months))

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s",
		strings.Join(columns, ", "), shape.table, strings.Join(where, " AND "), shape.dateCol)
	return Candidate{SQL: sql, Assumptions: assumptions}, true
}

// matchTopN ranks regions on the most recent period. Datasets without a
// region dimension cannot be ranked this way.
func matchTopN(question string, _ registry.Dataset, shape tableShape) (Candidate, bool) {
	if shape.regionCol == "" {
		return Candidate{}, false
	}
	n := 0
	if groups := topNPattern.FindStringSubmatch(question); len(groups) == 2 {
		n, _ = strconv.Atoi(groups[1])
	}
	if n == 0 {
		if !strings.Contains(question, "highest") && !strings.Contains(question, "worst") {
			return Candidate{}, false
		}
		n = 10
	}
	sql := fmt.Sprintf(
		"SELECT %s, %s FROM %s WHERE %s = (SELECT MAX(%s) FROM %s) ORDER BY %s DESC LIMIT %d",
		shape.regionCol, shape.metricCol, shape.table,
		shape.dateCol, shape.dateCol, shape.table, shape.metricCol, n)
	return Candidate{
		SQL:         sql,
		Assumptions: []string{fmt.Sprintf("top %d by %s in the most recent period", n, shape.metricCol)},
	}, true
}

func matchLatest(question string, _ registry.Dataset, shape tableShape) (Candidate, bool) {
	if !strings.Contains(question, "latest") && !strings.Contains(question, "current") &&
		!strings.Contains(question, "most recent") && !strings.Contains(question, "right now") {
		return Candidate{}, false
	}
	columns := []string{shape.dateCol}
	state := stateIn(question)
	where := []string{fmt.Sprintf("%s = (SELECT MAX(%s) FROM %s)", shape.dateCol, shape.dateCol, shape.table)}
	assumptions := []string{"most recent period available"}
	orderBy := ""
	if shape.regionCol != "" {
		columns = append(columns, shape.regionCol)
		if state != "" {
			where = append(where, fmt.Sprintf("%s = '%s'", shape.regionCol, state))
			assumptions = append(assumptions, "filtered to "+state)
		} else {
			orderBy = " ORDER BY " + shape.regionCol
		}
	}
	columns = append(columns, shape.metricCol)
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s%s",
		strings.Join(columns, ", "), shape.table, strings.Join(where, " AND "), orderBy)
	return Candidate{SQL: sql, Assumptions: assumptions}, true
}

// matchDatasetListing is the last resort: it binds only when the question
// mentions one of the dataset's own keywords, so unrelated questions still
// fail with ErrNoMatchingPattern.
func matchDatasetListing(question string, ds registry.Dataset, shape tableShape) (Candidate, bool) {
	mentioned := false
	for _, keyword := range ds.Keywords {
		if strings.Contains(question, keyword) {
			mentioned = true
			break
		}
	}
	if !mentioned {
		return Candidate{}, false
	}
	sql := fmt.Sprintf("SELECT * FROM %s ORDER BY %s DESC", shape.table, shape.dateCol)
	return Candidate{
		SQL:         sql,
		Assumptions: []string{"no specific pattern recognized; listing recent rows"},
		Notes:       "Generic listing of the dataset's primary table, newest first.",
	}, true
}

func yearPrefix(dateCol, year string) string {
	if dateCol == "period" {
		// fhfa_hpi_state periods look like 2024Q1.
		return year + "%"
	}
	return year + "-%"
}

var stateNames = []string{
	"Alabama", "Alaska", "Arizona", "Arkansas", "California", "Colorado",
	"Connecticut", "Delaware", "District of Columbia", "Florida", "Georgia",
	"Hawaii", "Idaho", "Illinois", "Indiana", "Iowa", "Kansas", "Kentucky",
	"Louisiana", "Maine", "Maryland", "Massachusetts", "Michigan", "Minnesota",
	"Mississippi", "Missouri", "Montana", "Nebraska", "Nevada", "New Hampshire",
	"New Jersey", "New Mexico", "New York", "North Carolina", "North Dakota",
	"Ohio", "Oklahoma", "Oregon", "Pennsylvania", "Rhode Island",
	"South Carolina", "South Dakota", "Tennessee", "Texas", "Utah", "Vermont",
	"Virginia", "Washington", "West Virginia", "Wisconsin", "Wyoming",
}

// stateIn returns the canonical state name mentioned in the (lower-cased)
// question, or "". Longer names are checked first so "West Virginia" never
// resolves to "Virginia".
func stateIn(question string) string {
	found := ""
	for _, name := range stateNames {
		if strings.Contains(question, strings.ToLower(name)) && len(name) > len(found) {
			found = name
		}
	}
	return found
}
