package manual

import "regexp"

type phraseRule struct {
	phrase   string
	operator string
	pattern  *regexp.Regexp
}

// operatorPhrases is applied in order. Longer phrases come before their
// prefixes so "is not equal to" never degrades into "= not equal to".
var operatorPhrases = []phraseRule{
	newPhraseRule("is not equal to", "<>"),
	newPhraseRule("not equal to", "<>"),
	newPhraseRule("is equal to", "="),
	newPhraseRule("equal to", "="),
	newPhraseRule("greater than or equal to", ">="),
	newPhraseRule("less than or equal to", "<="),
	newPhraseRule("greater than", ">"),
	newPhraseRule("less than", "<"),
	newPhraseRule("is", "="),
	newPhraseRule("like", "LIKE"),
	newPhraseRule("between", "BETWEEN"),
	newPhraseRule("in", "IN"),
	newPhraseRule("not", "NOT"),
	newPhraseRule("or", "OR"),
	newPhraseRule("and", "AND"),
}

func newPhraseRule(phrase, operator string) phraseRule {
	return phraseRule{
		phrase:   phrase,
		operator: operator,
		pattern:  regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`),
	}
}

func TranslateOperators(where string) string {
	for _, rule := range operatorPhrases {
		where = rule.pattern.ReplaceAllLiteralString(where, rule.operator)
	}
	return where
}
