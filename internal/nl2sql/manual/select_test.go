package manual

import "testing"

func TestBuildSelect(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"select all from courses", "SELECT * FROM courses;"},
		{"get all names from students", "SELECT name FROM students;"},
		{"fetch name, email and phone from users", "SELECT name, email, phone FROM users;"},
		{"give me all from books", "SELECT * FROM books;"},
		{"giveme title from books", "SELECT title FROM books;"},
		{"show all the book", "SELECT * FROM books;"},
		{"show all students where age is 20", "SELECT * FROM students WHERE age = 20;"},
		{"get name from users where name is bob", "SELECT name FROM users WHERE name = 'bob';"},
		{"get name from users where name is 'bob smith'", "SELECT name FROM users WHERE name = 'bob smith';"},
		{"get name from users where score is not equal to 5.5", "SELECT name FROM users WHERE score <> 5.5;"},
		{"get name from users where name is not equal to ann", "SELECT name FROM users WHERE name <> 'ann';"},
		{"get name from users where name like jo%", "SELECT name FROM users WHERE name LIKE 'jo%';"},
		{"get name from users where id in (1, 2, 3)", "SELECT name FROM users WHERE id IN ('1', '2', '3');"},
		{"get name from users where age between 18 and 30", "SELECT name FROM users WHERE age BETWEEN 18 AND 30;"},
		{"get name from users where age greater than or equal to 21 or name is max", "SELECT name FROM users WHERE age >= 21 OR name = 'max';"},
		{"get name from users order by name", "SELECT name FROM users ORDER BY name ASC;"},
		{"get name from users order by age descending, name ascending", "SELECT name FROM users ORDER BY age DESC, name ASC;"},
		{"get name from users order by age and name desc", "SELECT name FROM users ORDER BY age ASC, name DESC;"},
		{"get name from users order by age desc where age is 3", "SELECT name FROM users WHERE age = 3 ORDER BY age DESC;"},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			outcome, ok := Compile(tc.input)
			if !ok {
				t.Fatal("sentence skipped")
			}
			if got := outcome.String(); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildSelectToleratesMalformedClauses(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"get name from users where", "SELECT name FROM users;"},
		{"get name from users where age", "SELECT name FROM users WHERE age;"},
		{"get name from users order by desc", "SELECT name FROM users;"},
	}
	for _, tc := range cases {
		outcome, _ := Compile(tc.input)
		if got := outcome.String(); got != tc.want {
			t.Fatalf("Compile(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestBuildSelectRequiresAnchor(t *testing.T) {
	for _, input := range []string{"show me something", "get users", "select from"} {
		outcome, _ := Compile(input)
		if outcome.Recognized() {
			t.Fatalf("Compile(%q) = %q, want sentinel", input, outcome.String())
		}
		if outcome.Intent != IntentSelect {
			t.Fatalf("Intent = %v", outcome.Intent)
		}
	}
}

func TestSelectStatementShape(t *testing.T) {
	outcome, _ := Compile("get name and age from students where age greater than 18 order by age desc")
	stmt, ok := outcome.Statement.(SelectStmt)
	if !ok {
		t.Fatalf("Statement = %#v", outcome.Statement)
	}
	if len(stmt.Columns) != 2 || stmt.Columns[0] != "name" || stmt.Columns[1] != "age" {
		t.Fatalf("Columns = %#v", stmt.Columns)
	}
	if stmt.Where != "age > 18" {
		t.Fatalf("Where = %q", stmt.Where)
	}
	if len(stmt.OrderBy) != 1 || stmt.OrderBy[0] != (OrderItem{Column: "age", Direction: Desc}) {
		t.Fatalf("OrderBy = %#v", stmt.OrderBy)
	}
}
