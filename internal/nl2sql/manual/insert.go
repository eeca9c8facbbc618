package manual

import "strings"

type insertGroups struct {
	order []string
	stmts map[string]*InsertStmt
}

func newInsertGroups() *insertGroups {
	return &insertGroups{stmts: map[string]*InsertStmt{}}
}

// add accumulates a value tuple under the statement for (table, columns).
func (g *insertGroups) add(table string, columns, values []string) {
	key := table + "\x00" + strings.Join(columns, "\x00")
	stmt, ok := g.stmts[key]
	if !ok {
		stmt = &InsertStmt{Table: table, Columns: columns}
		g.stmts[key] = stmt
		g.order = append(g.order, key)
	}
	stmt.Rows = append(stmt.Rows, values)
}

func (g *insertGroups) statements() []InsertStmt {
	out := make([]InsertStmt, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, *g.stmts[key])
	}
	return out
}

func buildInsert(normalized string) (Statement, bool) {
	table, _, ok := ResolveTable(normalized, IntentInsert)
	if !ok {
		return nil, false
	}
	verb := keywordPattern(IntentInsert).FindStringIndex(normalized)
	groups := newInsertGroups()
	for _, rowSpan := range strings.Split(normalized[verb[1]:], ";") {
		pairs := ExtractPairs(rowSpan)
		if len(pairs) == 0 {
			continue
		}
		columns := make([]string, 0, len(pairs))
		values := make([]string, 0, len(pairs))
		for _, pair := range pairs {
			columns = append(columns, pair.Column)
			values = append(values, pair.Value)
		}
		groups.add(table, columns, values)
	}

	stmts := groups.statements()
	// One sentence yields one statement, so rows whose column sets differ
	// cannot share an INSERT and the sentence is left unrecognized.
	if len(stmts) != 1 {
		return nil, false
	}
	return stmts[0], true
}
