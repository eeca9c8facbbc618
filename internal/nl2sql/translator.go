package nl2sql

import (
	"context"
	"errors"
)

var ErrUnrecognized = errors.New("sentence not recognized")

type ColumnContext struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type TableContext struct {
	TableName string          `json:"table_name"`
	Columns   []ColumnContext `json:"columns"`
}

type Request struct {
	SessionToken    string         `json:"session_token"`
	NaturalLanguage string         `json:"natural_language"`
	Tables          []TableContext `json:"tables"`
	// LoadTables fills Tables on demand for translators that need schema context.
	LoadTables func(ctx context.Context) ([]TableContext, error) `json:"-"`
}

type Result struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Intent   string `json:"intent,omitempty"`
}

type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}
