package manual

import "strings"

// Sentinel is returned in place of SQL when a sentence cannot be compiled.
const Sentinel = "unknown error"

const noWhereWarning = "-- Warning: no WHERE clause"

type Statement interface {
	Intent() Intent
	SQL() string
}

type Assignment struct {
	Column string
	Value  Literal
}

type Condition struct {
	Column   string
	Operator string
	Value    Literal
}

func (c Condition) SQL() string {
	return c.Column + " " + c.Operator + " " + c.Value.SQL()
}

type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

type OrderItem struct {
	Column    string
	Direction Direction
}

type InsertStmt struct {
	Table   string
	Columns []string
	Rows    [][]string
}

func (s InsertStmt) Intent() Intent { return IntentInsert }

func (s InsertStmt) SQL() string {
	tuples := make([]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		values := make([]string, 0, len(row))
		for _, value := range row {
			values = append(values, Literal{Text: value}.SQL())
		}
		tuples = append(tuples, "("+strings.Join(values, ", ")+")")
	}
	return "INSERT INTO " + s.Table + " (" + strings.Join(s.Columns, ", ") + ") VALUES " + strings.Join(tuples, ", ") + ";"
}

type UpdateStmt struct {
	Table       string
	Assignments []Assignment
	Where       []Condition
}

func (s UpdateStmt) Intent() Intent { return IntentUpdate }

func (s UpdateStmt) SQL() string {
	sets := make([]string, 0, len(s.Assignments))
	for _, assignment := range s.Assignments {
		sets = append(sets, assignment.Column+" = "+assignment.Value.SQL())
	}
	return "UPDATE " + s.Table + " SET " + strings.Join(sets, ", ") + renderConditions(s.Where) + ";"
}

type DeleteStmt struct {
	Table string
	Where []Condition
}

func (s DeleteStmt) Intent() Intent { return IntentDelete }

func (s DeleteStmt) SQL() string {
	if len(s.Where) == 0 {
		return "DELETE FROM " + s.Table + "; " + noWhereWarning
	}
	return "DELETE FROM " + s.Table + renderConditions(s.Where) + ";"
}

// SelectStmt keeps its filter as an already translated expression because
// it may chain AND/OR, BETWEEN and IN lists that UPDATE and DELETE never see.
type SelectStmt struct {
	Columns []string
	Table   string
	Where   string
	OrderBy []OrderItem
}

func (s SelectStmt) Intent() Intent { return IntentSelect }

func (s SelectStmt) SQL() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(s.Columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(s.Table)
	if s.Where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(s.Where)
	}
	if len(s.OrderBy) > 0 {
		items := make([]string, 0, len(s.OrderBy))
		for _, item := range s.OrderBy {
			items = append(items, item.Column+" "+string(item.Direction))
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(items, ", "))
	}
	b.WriteString(";")
	return b.String()
}

func renderConditions(conditions []Condition) string {
	if len(conditions) == 0 {
		return ""
	}
	parts := make([]string, 0, len(conditions))
	for _, condition := range conditions {
		parts = append(parts, condition.SQL())
	}
	return " WHERE " + strings.Join(parts, " AND ")
}
