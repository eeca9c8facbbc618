package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Session binds an opaque token to one uploaded database file.
type Session struct {
	Token     string    `json:"session_token"`
	ObjectKey string    `json:"object_key"`
	FileName  string    `json:"file_name"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

type Store interface {
	Create(ctx context.Context, s Session) (Session, error)
	Get(ctx context.Context, token string) (Session, error)
	Delete(ctx context.Context, token string) error
}

// Lister enumerates sessions oldest first. It backs retention sweeps.
type Lister interface {
	ListCreatedBefore(ctx context.Context, before time.Time, limit int) ([]Session, error)
}

func NewToken() string {
	return uuid.NewString()
}

// ValidToken reports whether token parses as a UUID.
func ValidToken(token string) bool {
	_, err := uuid.Parse(token)
	return err == nil
}
