package query

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		sql  string
		want Kind
	}{
		{sql: "SELECT * FROM students;", want: KindQuery},
		{sql: "  with t as (select 1) select * from t", want: KindQuery},
		{sql: "WITH RECURSIVE n(x) AS (SELECT 1 UNION ALL SELECT x + 1 FROM n WHERE x < 3) SELECT x FROM n", want: KindQuery},
		{sql: "WITH old AS (SELECT name FROM students WHERE age > '20') DELETE FROM students WHERE name IN (SELECT name FROM old);", want: KindMutation},
		{sql: "with a as (select 1), b as (select 2) insert into t select * from a", want: KindMutation},
		{sql: "WITH s AS (SELECT 'delete' AS w) UPDATE students SET age = '1'", want: KindMutation},
		{sql: "WITH \"update\" AS (SELECT 1) SELECT * FROM \"update\"", want: KindQuery},
		{sql: "(SELECT 1) UNION (SELECT 2)", want: KindQuery},
		{sql: "SHOW TABLES", want: KindQuery},
		{sql: "INSERT INTO students (name) VALUES ('a');", want: KindMutation},
		{sql: "UPDATE students SET age = '21';", want: KindMutation},
		{sql: "DELETE FROM students; -- Warning: no WHERE clause", want: KindMutation},
		{sql: "", want: KindMutation},
	}
	for _, tc := range tests {
		if got := Classify(tc.sql); got != tc.want {
			t.Fatalf("Classify(%q) = %q, want %q", tc.sql, got, tc.want)
		}
	}
}

func TestCleanStatement(t *testing.T) {
	tests := map[string]string{
		"SELECT 1;":                                          "SELECT 1",
		"SELECT 1;;  ":                                       "SELECT 1",
		"DELETE FROM students; -- Warning: no WHERE clause": "DELETE FROM students",
		"SELECT * FROM t WHERE name = 'a--b'":               "SELECT * FROM t WHERE name = 'a--b'",
		"SELECT 1 -- trailing note":                          "SELECT 1 -- trailing note",
	}
	for input, want := range tests {
		if got := CleanStatement(input); got != want {
			t.Fatalf("CleanStatement(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTableInfoHeaders(t *testing.T) {
	info := TableInfo{Name: "students", Columns: []ColumnInfo{{Name: "id", Type: "INTEGER"}, {Name: "name", Type: "VARCHAR"}}}
	headers := info.Headers()
	if len(headers) != 2 || headers[0] != "id" || headers[1] != "name" {
		t.Fatalf("Headers() = %#v", headers)
	}
}
