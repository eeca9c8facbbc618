package manual

import (
	"regexp"
	"strings"
)

var (
	wherePattern      = regexp.MustCompile(`\bwhere\b`)
	setKeywordPattern = wordSet(append([]string{"set"}, Keywords(IntentUpdate)...)...)
)

func buildUpdate(normalized string) (Statement, bool) {
	table, end, ok := ResolveTable(normalized, IntentUpdate)
	if !ok {
		return nil, false
	}
	assignSpan, whereSpan := splitWhere(normalized[end:])
	if loc := setKeywordPattern.FindStringIndex(assignSpan); loc != nil {
		assignSpan = assignSpan[loc[1]:]
	}

	pairs := ExtractPairs(assignSpan)
	if len(pairs) == 0 {
		return nil, false
	}
	assignments := make([]Assignment, 0, len(pairs))
	for _, pair := range pairs {
		assignments = append(assignments, Assignment{Column: pair.Column, Value: Literal{Text: pair.Value}})
	}
	return UpdateStmt{
		Table:       table,
		Assignments: assignments,
		Where:       equalityConditions(whereSpan),
	}, true
}

func splitWhere(body string) (string, string) {
	loc := wherePattern.FindStringIndex(body)
	if loc == nil {
		return body, ""
	}
	return body[:loc[0]], strings.TrimSpace(body[loc[1]:])
}

// equalityConditions is the filter grammar shared by UPDATE and DELETE: every
// pair becomes "column = 'value'" and pairs are joined with AND. Unlike
// SELECT it knows no comparison phrases and never emits bare numbers.
func equalityConditions(span string) []Condition {
	if span == "" {
		return nil
	}
	pairs := ExtractPairs(span)
	conditions := make([]Condition, 0, len(pairs))
	for _, pair := range pairs {
		conditions = append(conditions, Condition{
			Column:   pair.Column,
			Operator: "=",
			Value:    Literal{Text: pair.Value},
		})
	}
	return conditions
}
