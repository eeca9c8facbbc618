package nl2sql

import (
	"context"
	"fmt"

	"github.com/plainsql/plainsql/internal/nl2sql/manual"
)

const RulesProvider = "rules"

type RuleTranslator struct{}

func NewRuleTranslator() *RuleTranslator {
	return &RuleTranslator{}
}

func (t *RuleTranslator) Translate(_ context.Context, req Request) (Result, error) {
	outcome, ok := manual.Compile(req.NaturalLanguage)
	if !ok {
		return Result{}, fmt.Errorf("natural language text is required")
	}
	if !outcome.Recognized() {
		return Result{Intent: outcome.Intent.String()}, ErrUnrecognized
	}
	return Result{
		SQL:      outcome.Statement.SQL(),
		Provider: RulesProvider,
		Intent:   outcome.Intent.String(),
	}, nil
}
