package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/plainsql/plainsql/internal/auth"
	"github.com/plainsql/plainsql/internal/observability"
	"github.com/plainsql/plainsql/internal/session"
	"github.com/plainsql/plainsql/internal/storage"
)

const (
	defaultMaxUploadBytes = 64 << 20
	multipartMemoryBytes  = 8 << 20
	multipartOverhead     = 1 << 20
)

var allowedDatabaseExtensions = map[string]struct{}{
	".db":      {},
	".duckdb":  {},
	".sqlite":  {},
	".sqlite3": {},
}

type uploadResponse struct {
	SessionToken string    `json:"session_token"`
	FileName     string    `json:"file_name"`
	SizeBytes    int64     `json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
}

func handleUpload(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil || deps.ObjectStore == nil || deps.QueryEngine == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "UPLOAD_NOT_CONFIGURED", "upload dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleExecute); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	maxBytes := deps.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(r.Context(), w, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", "database file exceeds the upload limit", false, map[string]any{"max_bytes": maxBytes})
			return
		}
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_MULTIPART", "invalid multipart upload", false, map[string]any{"details": err.Error()})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "FILE_REQUIRED", "multipart field \"file\" is required", false, nil)
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > maxBytes {
		writeError(r.Context(), w, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", "database file exceeds the upload limit", false, map[string]any{"max_bytes": maxBytes})
		return
	}
	if _, ok := allowedDatabaseExtensions[strings.ToLower(filepath.Ext(header.Filename))]; !ok {
		writeError(r.Context(), w, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "only .db, .duckdb, .sqlite and .sqlite3 files are allowed", false, map[string]any{"file_name": header.Filename})
		return
	}

	token := session.NewToken()
	key, err := storage.BuildDatabasePath(token, header.Filename)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_FILE_NAME", err.Error(), false, nil)
		return
	}

	if _, err := deps.ObjectStore.Put(r.Context(), key, file, header.Size, storage.PutOptions{ContentType: storage.DatabaseContentType}); err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "OBJECT_STORE_ERROR", "failed to store database file", true, map[string]any{"details": err.Error()})
		return
	}
	if _, err := deps.QueryEngine.Describe(r.Context(), key, 1); err != nil {
		_ = deps.ObjectStore.Delete(r.Context(), key)
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_DATABASE", "uploaded file is not a readable database", false, map[string]any{"details": err.Error()})
		return
	}

	created, err := deps.Sessions.Create(r.Context(), session.Session{
		Token:     token,
		ObjectKey: key,
		FileName:  filepath.Base(key),
		SizeBytes: header.Size,
	})
	if err != nil {
		_ = deps.ObjectStore.Delete(r.Context(), key)
		writeError(r.Context(), w, http.StatusInternalServerError, "SESSION_STORE_ERROR", "failed to create session", true, map[string]any{"details": err.Error()})
		return
	}
	observability.ObserveUpload(header.Size)

	writeJSON(w, http.StatusCreated, uploadResponse{
		SessionToken: created.Token,
		FileName:     created.FileName,
		SizeBytes:    created.SizeBytes,
		CreatedAt:    created.CreatedAt,
	})
}

func handleGetSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	current, ok := loadSession(deps, w, r, r.PathValue("token"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func handleDeleteSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	current, ok := loadSession(deps, w, r, r.PathValue("token"))
	if !ok {
		return
	}
	if err := deps.Sessions.Delete(r.Context(), current.Token); err != nil && !errors.Is(err, session.ErrNotFound) {
		writeError(r.Context(), w, http.StatusInternalServerError, "SESSION_STORE_ERROR", "failed to delete session", true, map[string]any{"details": err.Error()})
		return
	}

	removed := 0
	if deps.ObjectStore != nil {
		prefix, err := storage.SessionPrefix(current.Token)
		if err == nil {
			removed, err = deps.ObjectStore.DeletePrefix(r.Context(), prefix)
		}
		if err != nil {
			writeError(r.Context(), w, http.StatusBadGateway, "OBJECT_STORE_ERROR", "session deleted but database file cleanup failed", true, map[string]any{"details": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_token":   current.Token,
		"deleted":         true,
		"objects_removed": removed,
	})
}

func handleSessionSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	current, ok := loadSession(deps, w, r, r.PathValue("token"))
	if !ok {
		return
	}
	if deps.QueryEngine == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query engine is not configured", false, nil)
		return
	}
	tables, err := deps.QueryEngine.Describe(r.Context(), current.ObjectKey, deps.SchemaSampleRows)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "SCHEMA_FETCH_FAILED", "failed to read database schema", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_token": current.Token,
		"db_details":    dbDetails(tables),
	})
}

// loadSession resolves a token for a route that requires the execute role and
// writes the error response itself when it returns false.
func loadSession(deps Dependencies, w http.ResponseWriter, r *http.Request, token string) (session.Session, bool) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session store is not configured", false, nil)
		return session.Session{}, false
	}
	if err := requireRole(r, auth.RoleExecute); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return session.Session{}, false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SESSION_TOKEN_REQUIRED", "session_token is required", false, nil)
		return session.Session{}, false
	}
	current, err := deps.Sessions.Get(r.Context(), token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "SESSION_NOT_FOUND", "Invalid session. Please re-upload the database.", false, nil)
			return session.Session{}, false
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "SESSION_STORE_ERROR", "failed to load session", true, map[string]any{"details": err.Error()})
		return session.Session{}, false
	}
	return current, true
}
