// File path: internal/synthesizer/parser.go
package synthesizer

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

type parsedResponse struct {
	SQL         string
	Tables      []string
	Assumptions []string
	Notes       string
}

type rawResponse struct {
	Status      string   `json:"status"`
	Question    string   `json:"question"`
	SQL         string   `json:"sql"`
	Tables      []string `json:"tables"`
	Assumptions []string `json:"assumptions"`
	Notes       string   `json:"notes"`
}

var (
	// sqlObjectPattern pulls the innermost JSON object carrying a "sql" key
	// out of surrounding prose.
	sqlObjectPattern = regexp.MustCompile(`(?s)\{[^{}]*"sql"[^{}]*\}`)
	fencePattern     = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")
	selectPattern    = regexp.MustCompile(`(?is)\bSELECT\b.*`)
	withPrefix       = regexp.MustCompile(`(?i)^WITH\b`)
)

// parseResponse recovers the SQL candidate from whatever shape the model
// returned: a clean JSON object, JSON buried in prose, a fenced code block,
// or bare SQL. A needs_clarification object becomes a *ClarificationError.
func parseResponse(raw string) (parsedResponse, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return parsedResponse{}, errors.New("empty provider response")
	}

	if resp, ok := decodeObject(trimmed); ok {
		return finishDecoded(resp)
	}
	if match := sqlObjectPattern.FindString(trimmed); match != "" {
		if resp, ok := decodeObject(match); ok {
			return finishDecoded(resp)
		}
	}
	if clarification := clarificationObject(trimmed); clarification != nil {
		return parsedResponse{}, clarification
	}
	if groups := fencePattern.FindStringSubmatch(trimmed); len(groups) == 2 {
		if sql := strings.TrimSpace(groups[1]); sql != "" {
			return parsedResponse{SQL: sql}, nil
		}
	}
	if withPrefix.MatchString(trimmed) {
		return parsedResponse{SQL: trimmed}, nil
	}
	if match := selectPattern.FindString(trimmed); match != "" {
		return parsedResponse{SQL: strings.TrimSpace(match)}, nil
	}
	return parsedResponse{}, errors.New("no SQL found in provider response")
}

func decodeObject(text string) (rawResponse, bool) {
	var resp rawResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return rawResponse{}, false
	}
	if resp.SQL == "" && resp.Status == "" {
		return rawResponse{}, false
	}
	return resp, true
}

func finishDecoded(resp rawResponse) (parsedResponse, error) {
	if strings.EqualFold(resp.Status, "needs_clarification") {
		question := strings.TrimSpace(resp.Question)
		if question == "" {
			question = "Could you add more detail to your question?"
		}
		return parsedResponse{}, &ClarificationError{Question: question}
	}
	sql := strings.TrimSpace(resp.SQL)
	if sql == "" {
		return parsedResponse{}, errors.New("provider response carried no sql field")
	}
	return parsedResponse{
		SQL:         sql,
		Tables:      resp.Tables,
		Assumptions: resp.Assumptions,
		Notes:       strings.TrimSpace(resp.Notes),
	}, nil
}

// clarificationObject catches a needs_clarification object embedded in prose,
// where the sql-keyed regex cannot match.
func clarificationObject(text string) *ClarificationError {
	pattern := regexp.MustCompile(`(?s)\{[^{}]*"needs_clarification"[^{}]*\}`)
	match := pattern.FindString(text)
	if match == "" {
		return nil
	}
	var resp rawResponse
	if err := json.Unmarshal([]byte(match), &resp); err != nil {
		return nil
	}
	if !strings.EqualFold(resp.Status, "needs_clarification") {
		return nil
	}
	question := strings.TrimSpace(resp.Question)
	if question == "" {
		question = "Could you add more detail to your question?"
	}
	return &ClarificationError{Question: question}
}
