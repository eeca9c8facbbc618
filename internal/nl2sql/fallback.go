package nl2sql

import (
	"context"
	"errors"
	"log/slog"

	"github.com/plainsql/plainsql/internal/observability"
)

// FallbackTranslator asks Primary first and only consults Secondary when
// Primary does not recognize the sentence.
type FallbackTranslator struct {
	Primary   Translator
	Secondary Translator
	Logger    *slog.Logger
}

func (t *FallbackTranslator) Translate(ctx context.Context, req Request) (Result, error) {
	result, err := t.Primary.Translate(ctx, req)
	if err == nil {
		observability.ObserveTranslation(result.Intent, result.Provider, true)
		return result, nil
	}
	if !errors.Is(err, ErrUnrecognized) {
		return Result{}, err
	}
	observability.ObserveTranslation(result.Intent, RulesProvider, false)
	if t.Secondary == nil {
		return result, err
	}

	if t.Logger != nil {
		t.Logger.InfoContext(ctx, "rule translation failed, trying model",
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
			slog.String("session_token", req.SessionToken),
		)
	}
	fallback, err := t.Secondary.Translate(ctx, req)
	if err != nil {
		observability.ObserveTranslation("", ModelProvider, false)
		return Result{}, err
	}
	observability.ObserveTranslation(fallback.Intent, fallback.Provider, true)
	return fallback, nil
}
