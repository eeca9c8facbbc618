package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/plainsql/plainsql/internal/nl2sql"
	"github.com/plainsql/plainsql/internal/nl2sql/manual"
	"github.com/plainsql/plainsql/internal/query"
)

const parquetContentType = "application/vnd.apache.parquet"

// handleExport translates a question against the session database and streams
// the resulting rows as a parquet file. Only row-returning statements qualify.
func handleExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	current, ok := loadSession(deps, w, r, r.PathValue("token"))
	if !ok {
		return
	}
	if deps.QueryEngine == nil || deps.Translator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query engine or translator is not configured", false, nil)
		return
	}
	text := strings.TrimSpace(r.URL.Query().Get("query"))
	if text == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REQUIRED", "query is required", false, nil)
		return
	}

	translated, err := deps.Translator.Translate(r.Context(), nl2sql.Request{
		SessionToken:    current.Token,
		NaturalLanguage: text,
		LoadTables:      tableLoader(deps.QueryEngine, current.ObjectKey, deps.SchemaSampleRows),
	})
	if err != nil {
		if errors.Is(err, nl2sql.ErrUnrecognized) {
			writeError(r.Context(), w, http.StatusUnprocessableEntity, "TRANSLATION_UNRECOGNIZED", manual.Sentinel, false, map[string]any{"query": text})
			return
		}
		writeError(r.Context(), w, http.StatusBadGateway, "TRANSLATION_FAILED", err.Error(), true, nil)
		return
	}
	if query.Classify(translated.SQL) != query.KindQuery {
		writeError(r.Context(), w, http.StatusBadRequest, "EXPORT_REQUIRES_QUERY", "only queries that return rows can be exported", false, map[string]any{"executed_sql": translated.SQL})
		return
	}

	result, err := deps.QueryEngine.Execute(r.Context(), query.Request{
		SQL:       translated.SQL,
		ObjectKey: current.ObjectKey,
	})
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_FAILED", "Database Error: "+err.Error(), false, map[string]any{"executed_sql": translated.SQL})
		return
	}
	payload, err := query.EncodeResultParquet(result)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "EXPORT_FAILED", "failed to encode parquet export", false, map[string]any{"details": err.Error()})
		return
	}

	w.Header().Set("Content-Type", parquetContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", current.Token+".parquet"))
	w.Header().Set("X-Executed-SQL", singleLine(translated.SQL))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
