package plainsqlctl

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRunTranslateArguments(t *testing.T) {
	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"translate", "show all students", "delete student where id is 5"}, Options{Stdout: &stdout})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	want := "SELECT * FROM students;\nDELETE FROM students WHERE id = '5';\n"
	if stdout.String() != want {
		t.Fatalf("stdout = %q, want %q", stdout.String(), want)
	}
}

func TestRunTranslateStdinDropsBlankLines(t *testing.T) {
	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"translate"}, Options{
		Stdin:  strings.NewReader("add a book title is dune\n\nplease do the thing\n"),
		Stdout: &stdout,
	})
	if code != 3 {
		t.Fatalf("exit code = %d", code)
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %#v", lines)
	}
	if lines[0] != "INSERT INTO books (title) VALUES ('dune');" || lines[1] != "unknown error" {
		t.Fatalf("lines = %#v", lines)
	}
}

func TestRunProcessCommand(t *testing.T) {
	var gotMethod, gotPath, gotToken, gotQuery, gotAPIKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("session_token")
		gotQuery = r.URL.Query().Get("query")
		gotAPIKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"executed_sql":"SELECT * FROM students;","result":{"headers":[],"rows":[]}}`))
	}))
	defer srv.Close()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	code := Run(context.Background(), []string{
		"-base-url", srv.URL,
		"-api-key", "k1",
		"process", "tok-1", "show", "all", "students",
	}, Options{
		Stdout:  &stdout,
		Stderr:  &stderr,
		Timeout: 2 * time.Second,
	})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
	if gotMethod != http.MethodGet || gotPath != "/v1/process" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
	if gotToken != "tok-1" || gotQuery != "show all students" || gotAPIKey != "k1" {
		t.Fatalf("token=%q query=%q api_key=%q", gotToken, gotQuery, gotAPIKey)
	}
	if !strings.Contains(stdout.String(), "executed_sql") {
		t.Fatalf("stdout = %s", stdout.String())
	}
}

func TestRunUploadCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "school.duckdb")
	if err := os.WriteFile(dbPath, []byte("db-bytes"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	var gotFileName, gotContent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/sessions" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer func() { _ = file.Close() }()
		content, _ := io.ReadAll(file)
		gotFileName, gotContent = header.Filename, string(content)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"session_token":"tok-1"}`))
	}))
	defer srv.Close()

	code := Run(context.Background(), []string{"-base-url", srv.URL, "upload", dbPath}, Options{})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if gotFileName != "school.duckdb" || gotContent != "db-bytes" {
		t.Fatalf("file=%q content=%q", gotFileName, gotContent)
	}
}

func TestRunExportWritesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sessions/tok-1/export" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/vnd.apache.parquet")
		_, _ = w.Write([]byte("PAR1data"))
	}))
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "out.parquet")
	code := Run(context.Background(), []string{"-base-url", srv.URL, "-o", target, "export", "tok-1", "show", "all", "students"}, Options{})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(content) != "PAR1data" {
		t.Fatalf("content = %q", content)
	}
}

func TestRunDeleteCommand(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"deleted":true}`))
	}))
	defer srv.Close()

	code := Run(context.Background(), []string{"-base-url", srv.URL, "delete", "tok-1"}, Options{})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if gotMethod != http.MethodDelete || gotPath != "/v1/sessions/tok-1" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
}

func TestRunRetentionCommand(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"status":"completed"}`))
	}))
	defer srv.Close()

	code := Run(context.Background(), []string{"-base-url", srv.URL, "retention-run"}, Options{})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if gotMethod != http.MethodPost || gotPath != "/v1/maintenance/retention/run" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
}

func TestRunReturnsErrorOnHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error_code":"FORBIDDEN"}`))
	}))
	defer srv.Close()

	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"-base-url", srv.URL, "ready"}, Options{Stderr: &stderr})
	if code != 1 {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
}

func TestRunMissingArguments(t *testing.T) {
	for _, args := range [][]string{{"process", "tok-1"}, {"upload"}, {"schema"}} {
		var stderr bytes.Buffer
		if code := Run(context.Background(), args, Options{Stderr: &stderr}); code != 2 {
			t.Fatalf("args %v exit code = %d", args, code)
		}
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"unknown"}, Options{Stderr: &stderr})
	if code != 2 {
		t.Fatalf("exit code = %d", code)
	}
	if stderr.Len() == 0 {
		t.Fatal("expected usage output")
	}
}
