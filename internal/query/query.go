package query

import (
	"context"
	"strings"
	"time"
)

type Request struct {
	SQL       string
	ObjectKey string
	RowLimit  int
}

type Result struct {
	Columns      []string
	Rows         [][]any
	RowsAffected int64
	Mutated      bool
	Truncated    bool
	Duration     time.Duration
}

type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TableInfo describes one table of a session database along with its content.
type TableInfo struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"schema"`
	Rows    [][]any      `json:"rows"`
}

func (t TableInfo) Headers() []string {
	headers := make([]string, 0, len(t.Columns))
	for _, column := range t.Columns {
		headers = append(headers, column.Name)
	}
	return headers
}

type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
	Describe(ctx context.Context, objectKey string, sampleRows int) ([]TableInfo, error)
}

type Kind string

const (
	KindQuery    Kind = "query"
	KindMutation Kind = "mutation"
)

var rowReturningKeywords = map[string]struct{}{
	"select":    {},
	"show":      {},
	"describe":  {},
	"explain":   {},
	"pragma":    {},
	"values":    {},
	"from":      {},
	"summarize": {},
	"table":     {},
}

// Keywords that can open the statement following a WITH clause.
var cteBodyKeywords = map[string]Kind{
	"select":  KindQuery,
	"values":  KindQuery,
	"from":    KindQuery,
	"table":   KindQuery,
	"insert":  KindMutation,
	"update":  KindMutation,
	"delete":  KindMutation,
	"replace": KindMutation,
	"merge":   KindMutation,
}

// Classify reports whether a statement returns rows or changes the database.
// A WITH statement is classified by the statement that follows its CTE list.
func Classify(sqlText string) Kind {
	words := topLevelWords(sqlText)
	if len(words) == 0 {
		return KindMutation
	}
	if words[0] == "with" {
		for _, word := range words[1:] {
			if kind, ok := cteBodyKeywords[word]; ok {
				return kind
			}
		}
		return KindMutation
	}
	if _, ok := rowReturningKeywords[words[0]]; ok {
		return KindQuery
	}
	return KindMutation
}

// topLevelWords returns the lowercased bare words of a statement that sit
// outside parentheses, string literals and quoted identifiers. A leading
// parenthesis is unwrapped so "(SELECT 1) UNION ..." still starts with select.
func topLevelWords(sqlText string) []string {
	text := strings.TrimLeft(strings.TrimSpace(sqlText), "(")
	words := make([]string, 0, 8)
	depth := 0
	start := -1
	flush := func(end int) {
		if start >= 0 {
			words = append(words, strings.ToLower(text[start:end]))
			start = -1
		}
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			flush(i)
			end := strings.IndexByte(text[i+1:], c)
			if end < 0 {
				i = len(text)
				continue
			}
			i += end + 1
		case c == '(':
			flush(i)
			depth++
		case c == ')':
			flush(i)
			if depth > 0 {
				depth--
			}
		case isWordByte(c):
			if depth == 0 && start < 0 {
				start = i
			}
		default:
			flush(i)
		}
	}
	flush(len(text))
	return words
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// CleanStatement drops a trailing line comment that follows the final semicolon
// along with the trailing semicolons themselves.
func CleanStatement(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	if idx := strings.LastIndex(trimmed, "--"); idx >= 0 && !strings.Contains(trimmed[idx:], "\n") {
		head := strings.TrimSpace(trimmed[:idx])
		if strings.HasSuffix(head, ";") {
			trimmed = head
		}
	}
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
