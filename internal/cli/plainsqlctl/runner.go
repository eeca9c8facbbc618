package plainsqlctl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/plainsql/plainsql/internal/nl2sql/manual"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
}

type apiRequest struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("plainsqlctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "plainsql API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 30*time.Second), "HTTP timeout (e.g. 10s)")
	output := fs.String("o", "", "output file for export (defaults to <session>.parquet)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	command := strings.TrimSpace(fs.Arg(0))
	rest := fs.Args()[1:]
	if command == "translate" {
		return runTranslate(rest, defaults.Stdin, stdout, stderr)
	}

	var req apiRequest
	switch command {
	case "health":
		req = apiRequest{method: http.MethodGet, path: "/v1/health"}
	case "ready":
		req = apiRequest{method: http.MethodGet, path: "/v1/ready"}
	case "retention-run":
		req = apiRequest{method: http.MethodPost, path: "/v1/maintenance/retention/run"}
	case "integrity-run":
		req = apiRequest{method: http.MethodPost, path: "/v1/maintenance/integrity/run"}
	case "upload":
		if len(rest) != 1 {
			return usageError(stderr, "upload requires a database file path")
		}
		body, contentType, err := multipartFile(rest[0])
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "read database file: %v\n", err)
			return 1
		}
		req = apiRequest{method: http.MethodPost, path: "/v1/sessions", body: body, contentType: contentType}
	case "session", "schema", "delete":
		if len(rest) != 1 {
			return usageError(stderr, command+" requires a session token")
		}
		token := url.PathEscape(rest[0])
		switch command {
		case "session":
			req = apiRequest{method: http.MethodGet, path: "/v1/sessions/" + token}
		case "schema":
			req = apiRequest{method: http.MethodGet, path: "/v1/sessions/" + token + "/schema"}
		default:
			req = apiRequest{method: http.MethodDelete, path: "/v1/sessions/" + token}
		}
	case "process":
		if len(rest) < 2 {
			return usageError(stderr, "process requires a session token and a sentence")
		}
		req = apiRequest{method: http.MethodGet, path: "/v1/process", query: url.Values{
			"session_token": {rest[0]},
			"query":         {strings.Join(rest[1:], " ")},
		}}
	case "export":
		if len(rest) < 2 {
			return usageError(stderr, "export requires a session token and a sentence")
		}
		req = apiRequest{method: http.MethodGet, path: "/v1/sessions/" + url.PathEscape(rest[0]) + "/export", query: url.Values{
			"query": {strings.Join(rest[1:], " ")},
		}}
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}
	code, responseBody, err := doRequest(ctx, client, strings.TrimRight(*baseURL, "/"), req, *apiKey)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}
	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if command == "export" {
		target := *output
		if target == "" {
			target = rest[0] + ".parquet"
		}
		if err := os.WriteFile(target, responseBody, 0o644); err != nil {
			_, _ = fmt.Fprintf(stderr, "write export: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(stdout, "wrote %d bytes to %s\n", len(responseBody), target)
		return 0
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

// runTranslate compiles sentences locally without contacting the API. With no
// arguments it reads one sentence per line from stdin.
func runTranslate(sentences []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(sentences) == 0 {
		if stdin == nil {
			return usageError(stderr, "translate requires sentences as arguments or on stdin")
		}
		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			sentences = append(sentences, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			_, _ = fmt.Fprintf(stderr, "read stdin: %v\n", err)
			return 1
		}
	}

	code := 0
	for _, result := range manual.Translate(sentences) {
		_, _ = fmt.Fprintln(stdout, result)
		if result == manual.Sentinel {
			code = 3
		}
	}
	return code
}

func doRequest(ctx context.Context, client *http.Client, baseURL string, spec apiRequest, apiKey string) (int, []byte, error) {
	endpoint := baseURL + spec.path
	if len(spec.query) > 0 {
		endpoint += "?" + spec.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, spec.method, endpoint, spec.body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if spec.contentType != "" {
		req.Header.Set("Content-Type", spec.contentType)
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func multipartFile(path string) (io.Reader, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = file.Close() }()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &body, writer.FormDataContentType(), nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func usageError(w io.Writer, message string) int {
	_, _ = fmt.Fprintf(w, "%s\n\n", message)
	writeUsage(w)
	return 2
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: plainsqlctl [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  translate [sentence...]        translate offline (stdin lines when no args)")
	_, _ = fmt.Fprintln(w, "  health                         GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                          GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  upload <file>                  POST /v1/sessions")
	_, _ = fmt.Fprintln(w, "  session <token>                GET /v1/sessions/{token}")
	_, _ = fmt.Fprintln(w, "  schema <token>                 GET /v1/sessions/{token}/schema")
	_, _ = fmt.Fprintln(w, "  delete <token>                 DELETE /v1/sessions/{token}")
	_, _ = fmt.Fprintln(w, "  process <token> <sentence...>  GET /v1/process")
	_, _ = fmt.Fprintln(w, "  export <token> <sentence...>   GET /v1/sessions/{token}/export")
	_, _ = fmt.Fprintln(w, "  retention-run                  POST /v1/maintenance/retention/run")
	_, _ = fmt.Fprintln(w, "  integrity-run                  POST /v1/maintenance/integrity/run")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
