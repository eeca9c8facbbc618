package query

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/plainsql/plainsql/internal/storage"
)

type Format string

const (
	FormatDuckDB Format = "duckdb"
	FormatSQLite Format = "sqlite"
)

const headerProbeBytes = 16

var (
	ErrUnsupportedFormat = errors.New("unsupported database format")

	sqliteMagic = []byte("SQLite format 3\x00")
	duckdbMagic = []byte("DUCK")
)

// DetectFormat inspects the first bytes of a database file.
func DetectFormat(header []byte) (Format, error) {
	if bytes.HasPrefix(header, sqliteMagic) {
		return FormatSQLite, nil
	}
	// DuckDB stores an 8 byte checksum ahead of its magic.
	if len(header) >= 12 && bytes.Equal(header[8:12], duckdbMagic) {
		return FormatDuckDB, nil
	}
	return "", ErrUnsupportedFormat
}

// Router dispatches to the engine registered for the stored file's format.
type Router struct {
	Store   storage.ObjectStore
	Engines map[Format]Engine
}

func (r *Router) Execute(ctx context.Context, request Request) (Result, error) {
	engine, err := r.engineFor(ctx, request.ObjectKey)
	if err != nil {
		return Result{}, err
	}
	return engine.Execute(ctx, request)
}

func (r *Router) Describe(ctx context.Context, objectKey string, sampleRows int) ([]TableInfo, error) {
	engine, err := r.engineFor(ctx, objectKey)
	if err != nil {
		return nil, err
	}
	return engine.Describe(ctx, objectKey, sampleRows)
}

func (r *Router) engineFor(ctx context.Context, objectKey string) (Engine, error) {
	if strings.TrimSpace(objectKey) == "" {
		return nil, fmt.Errorf("object key is required")
	}
	if r.Store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	reader, err := r.Store.Get(ctx, objectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("session database %q: %w", objectKey, storage.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("get object %q: %w", objectKey, err)
	}
	defer func() { _ = reader.Close() }()

	header := make([]byte, headerProbeBytes)
	n, err := io.ReadFull(reader, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header of %q: %w", objectKey, err)
	}
	format, err := DetectFormat(header[:n])
	if err != nil {
		return nil, fmt.Errorf("session database %q: %w", objectKey, err)
	}
	engine, ok := r.Engines[format]
	if !ok || engine == nil {
		return nil, fmt.Errorf("session database %q is %s: %w", objectKey, format, ErrUnsupportedFormat)
	}
	return engine, nil
}
