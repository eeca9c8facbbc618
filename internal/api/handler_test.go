package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/plainsql/plainsql/internal/auth"
	"github.com/plainsql/plainsql/internal/config"
	"github.com/plainsql/plainsql/internal/nl2sql"
	"github.com/plainsql/plainsql/internal/query"
	"github.com/plainsql/plainsql/internal/session"
	"github.com/plainsql/plainsql/internal/storage"
)

const testToken = "3f8e9b64-5d2c-4c1e-9a7b-1f2d3e4c5b6a"

func TestHealthEndpoint(t *testing.T) {
	cfg := loadTestConfig(t, nil)

	h := NewHandler(cfg, Dependencies{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestReadyEndpointReturns503WhenDependencyFails(t *testing.T) {
	cfg := loadTestConfig(t, nil)

	h := NewHandler(cfg, Dependencies{
		Readiness: func(rctx context.Context) error {
			return errors.New("dependency down")
		},
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestProtectedRouteRequiresAuth(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{"PLAINSQL_AUTH_REQUIRED": "true"})
	validator, err := auth.NewStaticAPIKeyValidator("k1:alice:translate")
	if err != nil {
		t.Fatalf("validator setup failed: %v", err)
	}

	h := NewHandler(cfg, Dependencies{AuthMiddleware: auth.Middleware(nil, validator)})

	unauthResp := httptest.NewRecorder()
	h.ServeHTTP(unauthResp, translateRequestFor(t, []string{"show all students"}))
	if unauthResp.Code != http.StatusUnauthorized {
		t.Fatalf("unauth status = %d", unauthResp.Code)
	}

	authReq := translateRequestFor(t, []string{"show all students"})
	authReq.Header.Set("X-API-Key", "k1")
	authResp := httptest.NewRecorder()
	h.ServeHTTP(authResp, authReq)
	if authResp.Code != http.StatusOK {
		t.Fatalf("auth status = %d body=%s", authResp.Code, authResp.Body.String())
	}
}

func TestProtectedRouteRequiresRole(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{"PLAINSQL_AUTH_REQUIRED": "true"})
	validator, err := auth.NewStaticAPIKeyValidator("k1:alice:translate")
	if err != nil {
		t.Fatalf("validator setup failed: %v", err)
	}
	env := newTestEnv(t)
	deps := env.deps()
	deps.AuthMiddleware = auth.Middleware(nil, validator)
	h := NewHandler(cfg, deps)

	req := processRequest(testToken, "show all students")
	req.Header.Set("X-API-Key", "k1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	if len(env.engine.executed()) != 0 {
		t.Fatal("engine must not run for a forbidden caller")
	}
}

func TestAuthRequiredWithoutMiddlewareFailsClosed(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{"PLAINSQL_AUTH_REQUIRED": "true"})
	h := NewHandler(cfg, Dependencies{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, translateRequestFor(t, []string{"show all students"}))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestCombineReadinessChecksStopsOnFirstFailure(t *testing.T) {
	order := make([]int, 0, 3)
	combined := CombineReadinessChecks(
		func(_ context.Context) error {
			order = append(order, 1)
			return nil
		},
		func(_ context.Context) error {
			order = append(order, 2)
			return errors.New("boom")
		},
		func(_ context.Context) error {
			order = append(order, 3)
			return nil
		},
	)

	err := combined(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("execution order = %#v", order)
	}
}

func TestCheckObjectStoreConfig(t *testing.T) {
	cfg := loadTestConfig(t, nil)
	if err := CheckObjectStoreConfig(cfg)(context.Background()); err != nil {
		t.Fatalf("memory backend should be ready: %v", err)
	}

	cfg.ObjectStore.Backend = config.ObjectStoreBackendS3
	cfg.ObjectStore.Endpoint = ""
	if err := CheckObjectStoreConfig(cfg)(context.Background()); err == nil {
		t.Fatal("expected missing endpoint error")
	}
}

func TestCheckSessionStoreWithoutStore(t *testing.T) {
	if err := CheckSessionStore(nil)(context.Background()); err == nil {
		t.Fatal("expected error for nil store")
	}
	if err := CheckSessionStore(session.NewMemoryStore())(context.Background()); err != nil {
		t.Fatalf("memory store check error = %v", err)
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{"PLAINSQL_HTTP_ALLOWED_ORIGINS": "https://app.example.com"})
	h := NewHandler(cfg, Dependencies{})

	req := httptest.NewRequest(http.MethodOptions, "/v1/process", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("allow origin = %q", got)
	}

	other := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	other.Header.Set("Origin", "https://evil.example.com")
	otherResp := httptest.NewRecorder()
	h.ServeHTTP(otherResp, other)
	if got := otherResp.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestTranslateEndpointPreservesOrderAndDropsBlanks(t *testing.T) {
	cfg := loadTestConfig(t, nil)
	h := NewHandler(cfg, Dependencies{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, translateRequestFor(t, []string{"show all students", "  ", "please do the thing"}))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}

	var body translateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	want := []string{"SELECT * FROM students;", "unknown error"}
	if len(body.Results) != len(want) {
		t.Fatalf("results = %#v", body.Results)
	}
	for i := range want {
		if body.Results[i] != want[i] {
			t.Fatalf("results[%d] = %q, want %q", i, body.Results[i], want[i])
		}
	}
	if body.Details[0].Intent != "select" || !body.Details[0].Recognized {
		t.Fatalf("details[0] = %#v", body.Details[0])
	}
	if body.Details[1].Recognized {
		t.Fatalf("details[1] = %#v", body.Details[1])
	}
}

func TestTranslateEndpointRejectsBadBodies(t *testing.T) {
	cfg := loadTestConfig(t, nil)
	h := NewHandler(cfg, Dependencies{})

	cases := []string{`{`, `{}`, `{"sentences": ["a"], "extra": 1}`}
	for _, payload := range cases {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/translate", strings.NewReader(payload)))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("payload %s status = %d", payload, rr.Code)
		}
	}
}

func TestUploadCreatesSession(t *testing.T) {
	env := newTestEnv(t)
	h := NewHandler(loadTestConfig(t, nil), env.deps())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, uploadRequest(t, "school.duckdb", []byte("duckdb-bytes")))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}

	var body uploadResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !session.ValidToken(body.SessionToken) {
		t.Fatalf("session token = %q", body.SessionToken)
	}
	if body.FileName != "school.duckdb" || body.SizeBytes != int64(len("duckdb-bytes")) {
		t.Fatalf("upload response = %#v", body)
	}

	stored, err := env.sessions.Get(context.Background(), body.SessionToken)
	if err != nil {
		t.Fatalf("session lookup error = %v", err)
	}
	wantKey := "sessions/" + body.SessionToken + "/school.duckdb"
	if stored.ObjectKey != wantKey {
		t.Fatalf("object key = %q, want %q", stored.ObjectKey, wantKey)
	}
	if _, err := env.objects.Stat(context.Background(), wantKey); err != nil {
		t.Fatalf("stored object missing: %v", err)
	}
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	env := newTestEnv(t)
	h := NewHandler(loadTestConfig(t, nil), env.deps())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, uploadRequest(t, "notes.txt", []byte("hello")))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if len(env.objects.Keys()) != 1 {
		t.Fatalf("unexpected objects stored: %v", env.objects.Keys())
	}
}

func TestUploadAcceptsSQLiteExtensions(t *testing.T) {
	env := newTestEnv(t)
	h := NewHandler(loadTestConfig(t, nil), env.deps())

	for _, name := range []string{"school.sqlite", "school.SQLITE3"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, uploadRequest(t, name, []byte("SQLite format 3\x00")))
		if rr.Code != http.StatusCreated {
			t.Fatalf("upload %s status = %d body=%s", name, rr.Code, rr.Body.String())
		}
	}
}

func TestUploadRejectsUnreadableDatabase(t *testing.T) {
	env := newTestEnv(t)
	env.engine.describeErr = errors.New("unsupported database format")
	h := NewHandler(loadTestConfig(t, nil), env.deps())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, uploadRequest(t, "broken.db", []byte("garbage")))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	for _, key := range env.objects.Keys() {
		if strings.HasSuffix(key, "broken.db") {
			t.Fatalf("invalid upload was kept at %q", key)
		}
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	env := newTestEnv(t)
	deps := env.deps()
	deps.MaxUploadBytes = 4
	h := NewHandler(loadTestConfig(t, nil), deps)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, uploadRequest(t, "school.db", []byte("too many bytes")))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestProcessUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	h := NewHandler(loadTestConfig(t, nil), env.deps())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, processRequest("missing", "show all students"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeMap(t, rr)
	if body["message"] != "Invalid session. Please re-upload the database." {
		t.Fatalf("message = %v", body["message"])
	}
}

func TestProcessSelectUsesRuleTranslation(t *testing.T) {
	env := newTestEnv(t)
	env.engine.result = query.Result{
		Columns: []string{"id", "name"},
		Rows:    [][]any{{"1", "alice"}},
	}
	h := NewHandler(loadTestConfig(t, nil), env.deps())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, processRequest(testToken, "show all students"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}

	body := decodeMap(t, rr)
	if body["executed_sql"] != "SELECT * FROM students;" {
		t.Fatalf("executed_sql = %v", body["executed_sql"])
	}
	if body["origin"] != OriginManual {
		t.Fatalf("origin = %v", body["origin"])
	}
	result, ok := body["result"].(map[string]any)
	if !ok {
		t.Fatalf("result = %#v", body["result"])
	}
	rows, _ := result["rows"].([]any)
	if len(rows) != 1 {
		t.Fatalf("rows = %#v", result["rows"])
	}

	requests := env.engine.executed()
	if len(requests) != 1 || requests[0].ObjectKey != env.objectKey || requests[0].RowLimit != 50 {
		t.Fatalf("engine requests = %#v", requests)
	}
	audits := env.sessions.Audits(testToken)
	if len(audits) != 1 || audits[0].Status != session.AuditStatusOK || audits[0].Origin != OriginManual {
		t.Fatalf("audits = %#v", audits)
	}
}

func TestProcessMutationReportsRowsAffected(t *testing.T) {
	env := newTestEnv(t)
	env.engine.result = query.Result{RowsAffected: 1, Mutated: true}
	h := NewHandler(loadTestConfig(t, nil), env.deps())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, processRequest(testToken, "delete student where id is 5"))
	body := decodeMap(t, rr)
	if body["executed_sql"] != "DELETE FROM students WHERE id = '5';" {
		t.Fatalf("executed_sql = %v", body["executed_sql"])
	}
	if body["result"] != "1 rows affected." {
		t.Fatalf("result = %v", body["result"])
	}
}

func TestProcessReportsDatabaseErrorsInline(t *testing.T) {
	env := newTestEnv(t)
	env.engine.executeErr = errors.New("Catalog Error: Table with name students does not exist")
	h := NewHandler(loadTestConfig(t, nil), env.deps())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, processRequest(testToken, "show all students"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeMap(t, rr)
	result, _ := body["result"].(string)
	if !strings.HasPrefix(result, "Database Error: ") {
		t.Fatalf("result = %v", body["result"])
	}
	audits := env.sessions.Audits(testToken)
	if len(audits) != 1 || audits[0].Status != session.AuditStatusError {
		t.Fatalf("audits = %#v", audits)
	}
}

func TestProcessUnrecognizedWithoutModel(t *testing.T) {
	env := newTestEnv(t)
	h := NewHandler(loadTestConfig(t, nil), env.deps())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, processRequest(testToken, "please do the thing"))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeMap(t, rr)
	if body["message"] != "unknown error" {
		t.Fatalf("message = %v", body["message"])
	}
	if len(env.engine.executed()) != 0 {
		t.Fatal("engine must not run for unrecognized sentences")
	}
	audits := env.sessions.Audits(testToken)
	if len(audits) != 1 || audits[0].Status != session.AuditStatusUnrecognized {
		t.Fatalf("audits = %#v", audits)
	}
}

func TestProcessFallsBackToModel(t *testing.T) {
	env := newTestEnv(t)
	model := &stubTranslator{result: nl2sql.Result{SQL: "SELECT count(*) FROM students;", Provider: nl2sql.ModelProvider, Model: "gpt-4o-mini"}}
	env.translator.Secondary = model
	env.engine.result = query.Result{Columns: []string{"count_star()"}, Rows: [][]any{{"3"}}}
	h := NewHandler(loadTestConfig(t, nil), env.deps())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, processRequest(testToken, "how many students are there"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	body := decodeMap(t, rr)
	if body["origin"] != OriginAI || body["model"] != "gpt-4o-mini" {
		t.Fatalf("body = %#v", body)
	}
	if len(model.tables) != 1 || model.tables[0].TableName != "students" {
		t.Fatalf("model schema context = %#v", model.tables)
	}
}

func TestProcessModelFailure(t *testing.T) {
	env := newTestEnv(t)
	env.translator.Secondary = &stubTranslator{err: errors.New("upstream timeout")}
	h := NewHandler(loadTestConfig(t, nil), env.deps())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, processRequest(testToken, "how many students are there"))
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestProcessSchemaAndContent(t *testing.T) {
	env := newTestEnv(t)
	h := NewHandler(loadTestConfig(t, nil), env.deps())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, processRequest(testToken, schemaAndContentQuery))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeMap(t, rr)
	if sqlValue, present := body["executed_sql"]; !present || sqlValue != nil {
		t.Fatalf("executed_sql = %#v", sqlValue)
	}
	result, _ := body["result"].(map[string]any)
	details, _ := result["db_details"].(map[string]any)
	students, ok := details["students"].(map[string]any)
	if !ok {
		t.Fatalf("db_details = %#v", result["db_details"])
	}
	content, _ := students["content"].(map[string]any)
	headers, _ := content["headers"].([]any)
	if len(headers) != 2 || headers[0] != "id" {
		t.Fatalf("headers = %#v", content["headers"])
	}
	if env.engine.lastSampleRows != 0 {
		t.Fatalf("sample rows = %d, want full content", env.engine.lastSampleRows)
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	h := NewHandler(loadTestConfig(t, nil), env.deps())

	getResp := httptest.NewRecorder()
	h.ServeHTTP(getResp, httptest.NewRequest(http.MethodGet, "/v1/sessions/"+testToken, nil))
	if getResp.Code != http.StatusOK {
		t.Fatalf("get status = %d", getResp.Code)
	}

	schemaResp := httptest.NewRecorder()
	h.ServeHTTP(schemaResp, httptest.NewRequest(http.MethodGet, "/v1/sessions/"+testToken+"/schema", nil))
	if schemaResp.Code != http.StatusOK {
		t.Fatalf("schema status = %d", schemaResp.Code)
	}
	if env.engine.lastSampleRows != 50 {
		t.Fatalf("schema sample rows = %d", env.engine.lastSampleRows)
	}

	delResp := httptest.NewRecorder()
	h.ServeHTTP(delResp, httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+testToken, nil))
	if delResp.Code != http.StatusOK {
		t.Fatalf("delete status = %d body=%s", delResp.Code, delResp.Body.String())
	}
	body := decodeMap(t, delResp)
	if body["objects_removed"] != float64(1) {
		t.Fatalf("objects_removed = %v", body["objects_removed"])
	}
	if len(env.objects.Keys()) != 0 {
		t.Fatalf("objects left = %v", env.objects.Keys())
	}

	again := httptest.NewRecorder()
	h.ServeHTTP(again, httptest.NewRequest(http.MethodGet, "/v1/sessions/"+testToken, nil))
	if again.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", again.Code)
	}
}

func TestExportWritesParquet(t *testing.T) {
	env := newTestEnv(t)
	env.engine.result = query.Result{
		Columns: []string{"id", "name"},
		Rows:    [][]any{{"1", "alice"}, {"2", nil}},
	}
	h := NewHandler(loadTestConfig(t, nil), env.deps())

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+testToken+"/export?query="+url.QueryEscape("show all students"), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); got != parquetContentType {
		t.Fatalf("content type = %q", got)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("PAR1")) {
		t.Fatal("export is not a parquet file")
	}
	requests := env.engine.executed()
	if len(requests) != 1 || requests[0].RowLimit != 0 {
		t.Fatalf("engine requests = %#v", requests)
	}
}

func TestExportRejectsMutations(t *testing.T) {
	env := newTestEnv(t)
	h := NewHandler(loadTestConfig(t, nil), env.deps())

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+testToken+"/export?query="+url.QueryEscape("delete student where id is 5"), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if len(env.engine.executed()) != 0 {
		t.Fatal("mutation must not be executed by export")
	}
}

type testEnv struct {
	sessions   *session.MemoryStore
	objects    *storage.MemoryStore
	engine     *fakeEngine
	translator *nl2sql.FallbackTranslator
	objectKey  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	objectKey, err := storage.BuildDatabasePath(testToken, "school.duckdb")
	if err != nil {
		t.Fatalf("build path: %v", err)
	}
	env := &testEnv{
		sessions:   session.NewMemoryStore(),
		objects:    storage.NewMemoryStore(),
		translator: &nl2sql.FallbackTranslator{Primary: nl2sql.NewRuleTranslator()},
		objectKey:  objectKey,
		engine: &fakeEngine{tables: []query.TableInfo{{
			Name:    "students",
			Columns: []query.ColumnInfo{{Name: "id", Type: "INTEGER"}, {Name: "name", Type: "VARCHAR"}},
			Rows:    [][]any{{int64(1), "alice"}},
		}}},
	}
	ctx := context.Background()
	if _, err := env.objects.Put(ctx, objectKey, strings.NewReader("db"), 2, storage.PutOptions{}); err != nil {
		t.Fatalf("seed object: %v", err)
	}
	if _, err := env.sessions.Create(ctx, session.Session{Token: testToken, ObjectKey: objectKey, FileName: "school.duckdb", SizeBytes: 2}); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return env
}

func (e *testEnv) deps() Dependencies {
	return Dependencies{
		Sessions:         e.sessions,
		Auditor:          e.sessions,
		ObjectStore:      e.objects,
		QueryEngine:      e.engine,
		Translator:       e.translator,
		RowLimit:         50,
		SchemaSampleRows: 50,
		MaxUploadBytes:   1 << 20,
	}
}

type fakeEngine struct {
	mu             sync.Mutex
	requests       []query.Request
	result         query.Result
	executeErr     error
	tables         []query.TableInfo
	describeErr    error
	lastSampleRows int
}

func (f *fakeEngine) Execute(_ context.Context, request query.Request) (query.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, request)
	if f.executeErr != nil {
		return query.Result{}, f.executeErr
	}
	return f.result, nil
}

func (f *fakeEngine) Describe(_ context.Context, _ string, sampleRows int) ([]query.TableInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSampleRows = sampleRows
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return f.tables, nil
}

func (f *fakeEngine) executed() []query.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]query.Request(nil), f.requests...)
}

type stubTranslator struct {
	result nl2sql.Result
	err    error
	tables []nl2sql.TableContext
}

func (s *stubTranslator) Translate(ctx context.Context, req nl2sql.Request) (nl2sql.Result, error) {
	if req.LoadTables != nil {
		tables, err := req.LoadTables(ctx)
		if err != nil {
			return nl2sql.Result{}, err
		}
		s.tables = tables
	}
	return s.result, s.err
}

func loadTestConfig(t *testing.T, values map[string]string) config.Config {
	t.Helper()
	env := map[string]string{"PLAINSQL_PROFILE": "test"}
	for key, value := range values {
		env[key] = value
	}
	cfg, err := config.Load("plainsql-api", mapLookup(env))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	return cfg
}

func translateRequestFor(t *testing.T, sentences []string) *http.Request {
	t.Helper()
	payload, err := json.Marshal(translateRequest{Sentences: sentences})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return httptest.NewRequest(http.MethodPost, "/v1/translate", bytes.NewReader(payload))
}

func processRequest(token, text string) *http.Request {
	values := url.Values{}
	values.Set("session_token", token)
	values.Set("query", text)
	return httptest.NewRequest(http.MethodGet, "/v1/process?"+values.Encode(), nil)
}

func uploadRequest(t *testing.T, fileName string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v body=%s", err, rr.Body.String())
	}
	return body
}

func mapLookup(values map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
