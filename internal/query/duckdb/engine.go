package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/plainsql/plainsql/internal/observability"
	"github.com/plainsql/plainsql/internal/query"
	"github.com/plainsql/plainsql/internal/storage"
)

const localDatabaseName = "session.duckdb"

// Engine runs statements against session databases kept in the object store.
// Each call works on a private local copy; mutations are checkpointed and
// written back before the call returns.
type Engine struct {
	Workspace *query.Workspace
}

func NewEngine(store storage.ObjectStore) *Engine {
	return &Engine{Workspace: &query.Workspace{Store: store}}
}

// NewEngineWithWorkspace shares a workspace, and therefore its per-key locks,
// with other engines.
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

	db, err := sql.Open("duckdb", checkout.Path)
	if err != nil {
		return query.Result{}, fmt.Errorf("open duckdb: %w", err)
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
	if _, err := db.ExecContext(ctx, "CHECKPOINT"); err != nil {
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

// Describe lists the user tables of a session database with their columns and
// up to sampleRows rows each. sampleRows <= 0 returns every row.
func (e *Engine) Describe(ctx context.Context, objectKey string, sampleRows int) ([]query.TableInfo, error) {
	if e.Workspace == nil {
		return nil, fmt.Errorf("workspace is required")
	}
	checkout, err := e.Workspace.Checkout(ctx, objectKey, localDatabaseName)
	if err != nil {
		return nil, err
	}
	defer checkout.Release()

	db, err := sql.Open("duckdb", checkout.Path+"?access_mode=read_only")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
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

func listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = 'main' AND table_type = 'BASE TABLE'
ORDER BY table_name`)
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
	rows, err := db.QueryContext(ctx, `
SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = 'main' AND table_name = ?
ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]query.ColumnInfo, 0)
	for rows.Next() {
		var column query.ColumnInfo
		if err := rows.Scan(&column.Name, &column.Type); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return columns, nil
}
