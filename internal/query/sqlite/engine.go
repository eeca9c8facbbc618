package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/plainsql/plainsql/internal/observability"
	"github.com/plainsql/plainsql/internal/query"
	"github.com/plainsql/plainsql/internal/storage"
)

const localDatabaseName = "session.sqlite"

// Engine runs statements against SQLite session databases. It follows the
// same checkout, execute and write-back cycle as the DuckDB engine.
type Engine struct {
	Workspace *query.Workspace
}

func NewEngine(store storage.ObjectStore) *Engine {
	return &Engine{Workspace: &query.Workspace{Store: store}}
}

func NewEngineWithWorkspace(workspace *query.Workspace) *Engine {
	return &Engine{Workspace: workspace}
}

func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	sqlText := query.CleanStatement(request.SQL)
	if sqlText == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}
	if strings.TrimSpace(request.ObjectKey) == "" {
		return query.Result{}, fmt.Errorf("object key is required")
	}
	if e.Workspace == nil {
		return query.Result{}, fmt.Errorf("workspace is required")
	}

	kind := query.Classify(sqlText)
	start := time.Now()
	result, err := e.execute(ctx, request, sqlText, kind)
	elapsed := time.Since(start)
	observability.ObserveExecution(string(kind), elapsed, err)
	if err != nil {
		return query.Result{}, err
	}
	result.Duration = elapsed
	return result, nil
}

func (e *Engine) execute(ctx context.Context, request query.Request, sqlText string, kind query.Kind) (query.Result, error) {
	checkout, err := e.Workspace.Checkout(ctx, request.ObjectKey, localDatabaseName)
	if err != nil {
		return query.Result{}, err
	}
	defer checkout.Release()

	db, err := open(checkout.Path, false)
	if err != nil {
		return query.Result{}, err
	}
	defer func() { _ = db.Close() }()

	if kind == query.KindQuery {
		return query.ReadRows(ctx, db, sqlText, request.RowLimit)
	}

	res, err := db.ExecContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, fmt.Errorf("execute statement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}
	// Files uploaded in WAL mode keep recent pages in the -wal sidecar.
	if _, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return query.Result{}, fmt.Errorf("checkpoint database: %w", err)
	}
	if err := db.Close(); err != nil {
		return query.Result{}, fmt.Errorf("close database: %w", err)
	}
	if err := e.Workspace.Commit(ctx, checkout); err != nil {
		return query.Result{}, err
	}
	return query.Result{RowsAffected: affected, Mutated: true}, nil
}

// Describe lists user tables, skipping SQLite's internal sqlite_* tables.
// sampleRows <= 0 returns every row.
func (e *Engine) Describe(ctx context.Context, objectKey string, sampleRows int) ([]query.TableInfo, error) {
	if e.Workspace == nil {
		return nil, fmt.Errorf("workspace is required")
	}
	checkout, err := e.Workspace.Checkout(ctx, objectKey, localDatabaseName)
	if err != nil {
		return nil, err
	}
	defer checkout.Release()

	db, err := open(checkout.Path, true)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	tables, err := listTables(ctx, db)
	if err != nil {
		return nil, err
	}
	out := make([]query.TableInfo, 0, len(tables))
	for _, table := range tables {
		columns, err := listColumns(ctx, db, table)
		if err != nil {
			return nil, err
		}
		content, err := query.ReadRows(ctx, db, "SELECT * FROM "+query.QuoteIdent(table), sampleRows)
		if err != nil {
			return nil, fmt.Errorf("read table %q: %w", table, err)
		}
		out = append(out, query.TableInfo{Name: table, Columns: columns, Rows: content.Rows})
	}
	return out, nil
}

func open(path string, readOnly bool) (*sql.DB, error) {
	dsn := "file:" + path + "?_busy_timeout=5000"
	if readOnly {
		dsn += "&mode=ro"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
SELECT name
FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return tables, nil
}

func listColumns(ctx context.Context, db *sql.DB, table string) ([]query.ColumnInfo, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+query.QuoteIdent(table)+")")
	if err != nil {
		return nil, fmt.Errorf("list columns of %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]query.ColumnInfo, 0)
	for rows.Next() {
		var (
			cid        int
			column     query.ColumnInfo
			notNull    int
			defaultVal sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &column.Name, &column.Type, &notNull, &defaultVal, &primaryKey); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return columns, nil
}
