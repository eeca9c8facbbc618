package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/plainsql/plainsql/internal/nl2sql"
	"github.com/plainsql/plainsql/internal/nl2sql/manual"
	"github.com/plainsql/plainsql/internal/observability"
	"github.com/plainsql/plainsql/internal/query"
	"github.com/plainsql/plainsql/internal/session"
)

const (
	schemaAndContentQuery = "__GET_SCHEMA_AND_CONTENT__"

	OriginManual = "manual"
	OriginAI     = "ai"
)

type processResponse struct {
	ExecutedSQL *string `json:"executed_sql"`
	Origin      string  `json:"origin,omitempty"`
	Provider    string  `json:"provider,omitempty"`
	Model       string  `json:"model,omitempty"`
	Result      any     `json:"result"`
}

type tableContent struct {
	Headers []string `json:"headers"`
	Rows    [][]any  `json:"rows"`
}

type tableDetails struct {
	Schema  []query.ColumnInfo `json:"schema"`
	Content tableContent       `json:"content"`
}

func handleProcess(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	current, ok := loadSession(deps, w, r, r.URL.Query().Get("session_token"))
	if !ok {
		return
	}
	if deps.QueryEngine == nil || deps.Translator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query engine or translator is not configured", false, nil)
		return
	}
	text := r.URL.Query().Get("query")
	if strings.TrimSpace(text) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REQUIRED", "query is required", false, nil)
		return
	}

	if text == schemaAndContentQuery {
		tables, err := deps.QueryEngine.Describe(r.Context(), current.ObjectKey, 0)
		if err != nil {
			writeJSON(w, http.StatusOK, processResponse{Result: map[string]any{"error": err.Error()}})
			return
		}
		writeJSON(w, http.StatusOK, processResponse{Result: map[string]any{"db_details": dbDetails(tables)}})
		return
	}

	start := time.Now()
	translated, err := deps.Translator.Translate(r.Context(), nl2sql.Request{
		SessionToken:    current.Token,
		NaturalLanguage: text,
		LoadTables:      tableLoader(deps.QueryEngine, current.ObjectKey, deps.SchemaSampleRows),
	})
	if err != nil {
		if errors.Is(err, nl2sql.ErrUnrecognized) {
			recordAudit(r.Context(), deps, session.AuditEntry{
				SessionToken:    current.Token,
				NaturalLanguage: text,
				Origin:          OriginManual,
				Status:          session.AuditStatusUnrecognized,
				Duration:        time.Since(start),
			})
			writeError(r.Context(), w, http.StatusUnprocessableEntity, "TRANSLATION_UNRECOGNIZED", manual.Sentinel, false, map[string]any{"query": text})
			return
		}
		recordAudit(r.Context(), deps, session.AuditEntry{
			SessionToken:    current.Token,
			NaturalLanguage: text,
			Origin:          OriginAI,
			Status:          session.AuditStatusError,
			Duration:        time.Since(start),
		})
		writeError(r.Context(), w, http.StatusBadGateway, "TRANSLATION_FAILED", fmt.Sprintf("AI function failed during execution: %v", err), true, nil)
		return
	}

	origin := originOf(translated)
	executed := translated.SQL
	response := processResponse{
		ExecutedSQL: &executed,
		Origin:      origin,
		Provider:    translated.Provider,
		Model:       translated.Model,
	}

	result, err := deps.QueryEngine.Execute(r.Context(), query.Request{
		SQL:       translated.SQL,
		ObjectKey: current.ObjectKey,
		RowLimit:  deps.RowLimit,
	})
	entry := session.AuditEntry{
		SessionToken:    current.Token,
		NaturalLanguage: text,
		ExecutedSQL:     translated.SQL,
		Origin:          origin,
		Status:          session.AuditStatusOK,
	}
	if err != nil {
		entry.Status = session.AuditStatusError
		entry.Duration = time.Since(start)
		recordAudit(r.Context(), deps, entry)
		response.Result = "Database Error: " + err.Error()
		writeJSON(w, http.StatusOK, response)
		return
	}
	entry.Duration = time.Since(start)
	recordAudit(r.Context(), deps, entry)

	response.Result = renderResult(result)
	w.Header().Set("X-Executed-SQL", singleLine(translated.SQL))
	writeJSON(w, http.StatusOK, response)
}

func renderResult(result query.Result) any {
	if result.Mutated {
		return fmt.Sprintf("%d rows affected.", result.RowsAffected)
	}
	payload := map[string]any{
		"headers": result.Columns,
		"rows":    result.Rows,
	}
	if result.Truncated {
		payload["truncated"] = true
	}
	return payload
}

func dbDetails(tables []query.TableInfo) map[string]tableDetails {
	details := make(map[string]tableDetails, len(tables))
	for _, table := range tables {
		rows := table.Rows
		if rows == nil {
			rows = [][]any{}
		}
		details[table.Name] = tableDetails{
			Schema:  table.Columns,
			Content: tableContent{Headers: table.Headers(), Rows: rows},
		}
	}
	return details
}

// tableLoader defers schema inspection until a translator asks for it.
func tableLoader(engine query.Engine, objectKey string, sampleRows int) func(context.Context) ([]nl2sql.TableContext, error) {
	return func(ctx context.Context) ([]nl2sql.TableContext, error) {
		if sampleRows <= 0 {
			sampleRows = 1
		}
		tables, err := engine.Describe(ctx, objectKey, sampleRows)
		if err != nil {
			return nil, err
		}
		out := make([]nl2sql.TableContext, 0, len(tables))
		for _, table := range tables {
			columns := make([]nl2sql.ColumnContext, 0, len(table.Columns))
			for _, column := range table.Columns {
				columns = append(columns, nl2sql.ColumnContext{Name: column.Name, Type: column.Type})
			}
			out = append(out, nl2sql.TableContext{TableName: table.Name, Columns: columns})
		}
		return out, nil
	}
}

func originOf(result nl2sql.Result) string {
	if result.Provider == nl2sql.RulesProvider {
		return OriginManual
	}
	return OriginAI
}

func recordAudit(ctx context.Context, deps Dependencies, entry session.AuditEntry) {
	if deps.Auditor == nil {
		return
	}
	if err := deps.Auditor.RecordTranslation(ctx, entry); err != nil && deps.Logger != nil {
		deps.Logger.WarnContext(ctx, "record translation audit failed",
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
			slog.String("session_token", entry.SessionToken),
			slog.Any("error", err),
		)
	}
}

func singleLine(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
