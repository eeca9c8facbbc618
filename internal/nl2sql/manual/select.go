package manual

import (
	"regexp"
	"sort"
	"strings"
)

const selectVerbs = `(?:select|get|show|fetch|give\s*me|give)`

var (
	selectFromPattern    = regexp.MustCompile(`\b` + selectVerbs + `\s+(.+?)\s+from\s+([a-z_][a-z0-9_]*)`)
	selectAllPattern     = regexp.MustCompile(`\b` + selectVerbs + `\s+all\s+(?:the\s+)?([a-z_][a-z0-9_]*)`)
	allColumnPattern     = regexp.MustCompile(`^all\s+([a-z_]+?)s?$`)
	naturalAndPattern    = regexp.MustCompile(`\s+and\s+`)
	orderByPattern       = regexp.MustCompile(`\border\s+by\b`)
	comparisonValue      = regexp.MustCompile(`(<>|=) ('[^']*'|"[^"]*"|[^\s)]+)`)
	likeValue            = regexp.MustCompile(`LIKE ('[^']*'|"[^"]*"|[^\s)]+)`)
	inList               = regexp.MustCompile(`IN\s*\(([^)]+)\)`)
	descendingDirections = []string{"desc", "descending"}
	ascendingDirections  = []string{"asc", "ascending"}
)

func buildSelect(normalized string) (Statement, bool) {
	var stmt SelectStmt
	var tail string
	if m := selectFromPattern.FindStringSubmatchIndex(normalized); m != nil {
		stmt.Columns = selectColumns(normalized[m[2]:m[3]])
		stmt.Table = normalized[m[4]:m[5]]
		tail = normalized[m[1]:]
	} else if m := selectAllPattern.FindStringSubmatchIndex(normalized); m != nil {
		stmt.Columns = []string{"*"}
		stmt.Table = Pluralize(normalized[m[2]:m[3]])
		tail = normalized[m[1]:]
	} else {
		return nil, false
	}
	if len(stmt.Columns) == 0 {
		return nil, false
	}

	clauses := splitClauses(tail)
	if raw := clauses["where"]; raw != "" {
		stmt.Where = renderFilter(raw)
	}
	if raw := clauses["order"]; raw != "" {
		stmt.OrderBy = orderItems(raw)
	}
	return stmt, true
}

func selectColumns(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "all" {
		return []string{"*"}
	}
	if m := allColumnPattern.FindStringSubmatch(raw); m != nil {
		return []string{m[1]}
	}
	raw = naturalAndPattern.ReplaceAllString(raw, ", ")
	var columns []string
	for _, column := range strings.Split(raw, ",") {
		column = strings.TrimSpace(column)
		if column != "" {
			columns = append(columns, column)
		}
	}
	return columns
}

type clauseMark struct {
	name  string
	start int
	end   int
}

// splitClauses cuts the text after the table name into its WHERE and
// ORDER BY bodies, whichever order they were written in.
func splitClauses(tail string) map[string]string {
	var marks []clauseMark
	if loc := wherePattern.FindStringIndex(tail); loc != nil {
		marks = append(marks, clauseMark{name: "where", start: loc[0], end: loc[1]})
	}
	if loc := orderByPattern.FindStringIndex(tail); loc != nil {
		marks = append(marks, clauseMark{name: "order", start: loc[0], end: loc[1]})
	}
	sort.Slice(marks, func(i, j int) bool { return marks[i].start < marks[j].start })

	out := make(map[string]string, len(marks))
	for i, mark := range marks {
		stop := len(tail)
		if i+1 < len(marks) {
			stop = marks[i+1].start
		}
		if mark.end > stop {
			continue
		}
		out[mark.name] = strings.TrimSpace(tail[mark.end:stop])
	}
	return out
}

// renderFilter translates comparison phrases and then quotes right-hand
// sides. Fragments it cannot make sense of are passed through unchanged.
func renderFilter(raw string) string {
	expr := TranslateOperators(raw)
	expr = replaceGroups(comparisonValue, expr, func(groups []string) string {
		return groups[1] + " " + Quote(groups[2]).SQL()
	})
	expr = replaceGroups(likeValue, expr, func(groups []string) string {
		return "LIKE " + QuoteString(groups[1]).SQL()
	})
	expr = replaceGroups(inList, expr, func(groups []string) string {
		items := strings.Split(groups[1], ",")
		quoted := make([]string, 0, len(items))
		for _, item := range items {
			quoted = append(quoted, QuoteString(item).SQL())
		}
		return "IN (" + strings.Join(quoted, ", ") + ")"
	})
	return expr
}

func replaceGroups(re *regexp.Regexp, text string, fn func(groups []string) string) string {
	return re.ReplaceAllStringFunc(text, func(match string) string {
		return fn(re.FindStringSubmatch(match))
	})
}

func orderItems(raw string) []OrderItem {
	raw = naturalAndPattern.ReplaceAllString(raw, ", ")
	var items []OrderItem
	for _, part := range strings.Split(raw, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		direction := Asc
		last := fields[len(fields)-1]
		switch {
		case contains(descendingDirections, last):
			direction = Desc
			fields = fields[:len(fields)-1]
		case contains(ascendingDirections, last):
			fields = fields[:len(fields)-1]
		}
		if len(fields) == 0 {
			continue
		}
		items = append(items, OrderItem{Column: strings.Join(fields, " "), Direction: direction})
	}
	return items
}
