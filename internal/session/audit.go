package session

import (
	"context"
	"time"
)

const (
	AuditStatusOK           = "ok"
	AuditStatusUnrecognized = "unrecognized"
	AuditStatusError        = "error"
)

// AuditEntry records one natural language request processed against a session.
type AuditEntry struct {
	SessionToken    string
	NaturalLanguage string
	ExecutedSQL     string
	Origin          string
	Status          string
	Duration        time.Duration
	CreatedAt       time.Time
}

type Auditor interface {
	RecordTranslation(ctx context.Context, entry AuditEntry) error
}
