// File path: internal/guardrail/validator.go
package guardrail

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ai-financer/nlquery/internal/common"
)

// Violation kinds, stable identifiers surfaced in API errors and metrics.
const (
	KindEmptyStatement      = "empty_statement"
	KindMultiStatement      = "multi_statement"
	KindForbiddenKeyword    = "forbidden_keyword"
	KindTableNotWhitelisted = "table_not_whitelisted"
	KindNotReadOnly         = "not_read_only"
)

// Violation is a rejected statement. It reports which rule fired and keeps
// the offending SQL for logging.
type Violation struct {
	Kind   string
	Detail string
	SQL    string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("guardrail: %s: %s", v.Kind, v.Detail)
}

var (
	tokenPattern    = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_$]*`)
	fromJoinPattern = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\b`)
	identPart       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*`)
	ctePattern      = regexp.MustCompile(`(?i)\b([A-Za-z_]\w*)\s+AS\s*\(`)
	limitPattern    = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)\b`)
)

// Validator enforces the read-only contract on synthesized SQL. Validation
// is idempotent: validating its own output yields the same statement.
type Validator struct {
	cfg       Config
	forbidden map[string]struct{}
}

func New(cfg Config) *Validator {
	cfg.applyDefaults()
	forbidden := make(map[string]struct{}, len(cfg.ForbiddenKeywords))
	for _, keyword := range cfg.ForbiddenKeywords {
		forbidden[strings.ToUpper(strings.TrimSpace(keyword))] = struct{}{}
	}
	return &Validator{cfg: cfg, forbidden: forbidden}
}

// Validate checks sqlText against the whitelist of permitted bare table names
// and returns the statement to execute, with the row limit enforced. The
// checks run in a fixed order so the reported violation is deterministic.
func (v *Validator) Validate(sqlText string, whitelist map[string]struct{}) (string, error) {
	scrubbed := scrub(sqlText)
	segments := splitStatements(scrubbed)
	if len(segments) == 0 {
		return "", &Violation{Kind: KindEmptyStatement, Detail: "statement is empty", SQL: sqlText}
	}
	if len(segments) > 1 {
		return "", &Violation{
			Kind:   KindMultiStatement,
			Detail: fmt.Sprintf("%d statements found, exactly one allowed", len(segments)),
			SQL:    sqlText,
		}
	}

	seg := segments[0]
	start, end := trimBounds(scrubbed[seg.start:seg.end])
	body := scrubbed[seg.start:seg.end][start:end]
	statement := sqlText[seg.start:seg.end][start:end]
	if body == "" {
		return "", &Violation{Kind: KindEmptyStatement, Detail: "statement is empty", SQL: sqlText}
	}

	for _, token := range tokenPattern.FindAllString(body, -1) {
		upper := strings.ToUpper(token)
		if _, bad := v.forbidden[upper]; bad {
			return "", &Violation{Kind: KindForbiddenKeyword, Detail: upper, SQL: sqlText}
		}
	}

	cteNames := cteNameSet(body)
	for _, table := range referencedTables(body, statement) {
		bare := bareTableName(table)
		if _, isCTE := cteNames[bare]; isCTE {
			continue
		}
		if _, ok := whitelist[bare]; !ok {
			return "", &Violation{Kind: KindTableNotWhitelisted, Detail: table, SQL: sqlText}
		}
	}

	if !isReadOnly(body) {
		return "", &Violation{Kind: KindNotReadOnly, Detail: "statement must start with SELECT or WITH", SQL: sqlText}
	}

	rewritten, changed := v.enforceLimit(statement, body)
	if changed {
		common.Logger().Debug("guardrail: row limit enforced", "limit", v.cfg.Limits.Ceiling)
	}
	return rewritten, nil
}

// enforceLimit appends the default limit when none is present and lowers an
// oversized one to the ceiling. An existing limit is never raised.
func (v *Validator) enforceLimit(statement, body string) (string, bool) {
	match := limitPattern.FindStringSubmatchIndex(body)
	if match == nil {
		return statement + fmt.Sprintf(" LIMIT %d", v.cfg.Limits.DefaultLimit), true
	}
	value, err := strconv.Atoi(body[match[2]:match[3]])
	if err != nil || value <= v.cfg.Limits.Ceiling {
		return statement, false
	}
	// body and statement are offset-aligned, so the digit span carries over.
	return statement[:match[2]] + strconv.Itoa(v.cfg.Limits.Ceiling) + statement[match[3]:], true
}

func isReadOnly(body string) bool {
	first := tokenPattern.FindString(body)
	if first == "" {
		return false
	}
	switch strings.ToUpper(first) {
	case "SELECT", "WITH":
		return true
	default:
		return false
	}
}

// tableListStoppers end a FROM table list; anything else after a reference is
// treated as an alias so the comma scan keeps going.
var tableListStoppers = map[string]struct{}{
	"WHERE": {}, "GROUP": {}, "ORDER": {}, "HAVING": {}, "LIMIT": {},
	"ON": {}, "USING": {}, "UNION": {}, "EXCEPT": {}, "INTERSECT": {},
	"JOIN": {}, "INNER": {}, "LEFT": {}, "RIGHT": {}, "FULL": {},
	"CROSS": {}, "NATURAL": {}, "WINDOW": {}, "SELECT": {},
}

// referencedTables collects every table reference after a FROM or JOIN,
// including comma-separated lists (implicit joins) and double-quoted
// identifiers. The scrub blanks quoted content, so quoted names are recovered
// from the offset-aligned original text.
func referencedTables(body, original string) []string {
	var tables []string
	for _, loc := range fromJoinPattern.FindAllStringIndex(body, -1) {
		pos := loc[1]
		for {
			ref, next, ok := parseTableRef(body, original, pos)
			if !ok {
				break
			}
			if ref != "" {
				tables = append(tables, ref)
			}
			pos = skipAlias(body, original, next)
			pos = skipSpaces(body, pos)
			if pos >= len(body) || body[pos] != ',' {
				break
			}
			pos++
		}
	}
	return tables
}

// parseTableRef reads one table reference at pos: a possibly schema-qualified
// name with bare or quoted components. A parenthesized subquery yields an
// empty reference; its inner FROM is scanned on its own.
func parseTableRef(body, original string, pos int) (string, int, bool) {
	pos = skipSpaces(body, pos)
	if pos >= len(body) {
		return "", pos, false
	}
	if body[pos] == '(' {
		next, ok := skipParens(body, pos)
		if !ok {
			return "", pos, false
		}
		return "", next, true
	}
	part, next, ok := parseTablePart(body, original, pos)
	if !ok {
		return "", pos, false
	}
	name := part
	pos = next
	for pos < len(body) && body[pos] == '.' {
		part, next, ok = parseTablePart(body, original, pos+1)
		if !ok {
			break
		}
		name += "." + part
		pos = next
	}
	return name, pos, true
}

// parseTablePart reads one dotted-name component: a bare identifier from the
// scrubbed text, or a double-quoted one recovered from the original. An
// unterminated quote consumes the rest of the statement so the reference
// fails the whitelist instead of vanishing.
func parseTablePart(body, original string, pos int) (string, int, bool) {
	if pos < len(body) && body[pos] == '"' {
		closing := strings.IndexByte(body[pos+1:], '"')
		if closing < 0 {
			return original[pos:], len(body), true
		}
		end := pos + 1 + closing
		return original[pos+1 : end], end + 1, true
	}
	if m := identPart.FindString(body[pos:]); m != "" {
		return m, pos + len(m), true
	}
	return "", pos, false
}

func skipAlias(body, original string, pos int) int {
	pos = skipSpaces(body, pos)
	if pos >= len(body) || body[pos] == ',' {
		return pos
	}
	if body[pos] == '"' {
		if _, next, ok := parseTablePart(body, original, pos); ok {
			return next
		}
		return pos
	}
	m := identPart.FindString(body[pos:])
	if m == "" {
		return pos
	}
	upper := strings.ToUpper(m)
	if _, stop := tableListStoppers[upper]; stop {
		return pos
	}
	next := pos + len(m)
	if upper == "AS" {
		next = skipSpaces(body, next)
		if _, after, ok := parseTablePart(body, original, next); ok {
			return after
		}
	}
	return next
}

func skipParens(body string, pos int) (int, bool) {
	depth := 0
	for i := pos; i < len(body); i++ {
		switch body[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return pos, false
}

func skipSpaces(s string, pos int) int {
	for pos < len(s) && isSpace(s[pos]) {
		pos++
	}
	return pos
}

// cteNameSet collects names bound by "<name> AS (" so common table
// expressions are exempt from the physical-table whitelist.
func cteNameSet(body string) map[string]struct{} {
	names := make(map[string]struct{})
	if !strings.HasPrefix(strings.ToUpper(tokenPattern.FindString(body)), "WITH") {
		return names
	}
	for _, groups := range ctePattern.FindAllStringSubmatch(body, -1) {
		names[strings.ToLower(groups[1])] = struct{}{}
	}
	return names
}

func bareTableName(table string) string {
	if idx := strings.LastIndex(table, "."); idx >= 0 {
		table = table[idx+1:]
	}
	return strings.ToLower(table)
}
