package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/plainsql/plainsql/internal/session"
)

// Store persists sessions in the upload_session table so tokens survive restarts
// and can be shared between API replicas.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping session db: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, in session.Session) (session.Session, error) {
	if in.Token == "" {
		return session.Session{}, fmt.Errorf("session token is required")
	}
	if in.ObjectKey == "" {
		return session.Session{}, fmt.Errorf("object key is required")
	}

	query := `
INSERT INTO upload_session (session_token, object_key, file_name, size_bytes)
VALUES ($1, $2, $3, $4)
RETURNING created_at`
	var createdAt time.Time
	if err := s.db.QueryRowContext(ctx, query, in.Token, in.ObjectKey, in.FileName, in.SizeBytes).Scan(&createdAt); err != nil {
		return session.Session{}, fmt.Errorf("create session: %w", err)
	}
	in.CreatedAt = createdAt
	return in, nil
}

func (s *Store) Get(ctx context.Context, token string) (session.Session, error) {
	query := `
SELECT session_token, object_key, file_name, size_bytes, created_at
FROM upload_session
WHERE session_token = $1`

	var out session.Session
	if err := s.db.QueryRowContext(ctx, query, token).Scan(
		&out.Token,
		&out.ObjectKey,
		&out.FileName,
		&out.SizeBytes,
		&out.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, fmt.Errorf("get session: %w", err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx, `
DELETE FROM upload_session
WHERE session_token = $1`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session rows affected: %w", err)
	}
	if affected == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (s *Store) RecordTranslation(ctx context.Context, entry session.AuditEntry) error {
	var executedSQL any
	if entry.ExecutedSQL != "" {
		executedSQL = entry.ExecutedSQL
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO translation_audit (session_token, natural_language, executed_sql, origin, status, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.SessionToken,
		entry.NaturalLanguage,
		executedSQL,
		entry.Origin,
		entry.Status,
		entry.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record translation audit: %w", err)
	}
	return nil
}

func (s *Store) ListCreatedBefore(ctx context.Context, before time.Time, limit int) ([]session.Session, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT session_token, object_key, file_name, size_bytes, created_at
FROM upload_session
WHERE created_at < $1
ORDER BY created_at ASC, session_token ASC
LIMIT $2`, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]session.Session, 0)
	for rows.Next() {
		var item session.Session
		if err := rows.Scan(&item.Token, &item.ObjectKey, &item.FileName, &item.SizeBytes, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}
