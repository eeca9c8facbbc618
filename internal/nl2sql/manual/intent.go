package manual

import (
	"regexp"
	"strings"
)

type Intent int

const (
	IntentUnknown Intent = iota
	IntentInsert
	IntentUpdate
	IntentDelete
	IntentSelect
)

func (i Intent) String() string {
	switch i {
	case IntentInsert:
		return "insert"
	case IntentUpdate:
		return "update"
	case IntentDelete:
		return "delete"
	case IntentSelect:
		return "select"
	default:
		return "unknown"
	}
}

type intentRule struct {
	intent   Intent
	keywords []string
	pattern  *regexp.Regexp
}

// intentRules is evaluated top to bottom; the first rule with a matching
// keyword decides the intent.
var intentRules = []intentRule{
	newIntentRule(IntentInsert, "add", "insert", "make", "create", "fill", "record", "save", "store", "put", "register"),
	newIntentRule(IntentUpdate, "update", "change", "modify", "edit", "alter", "adjust", "revise", "replace"),
	newIntentRule(IntentDelete, "delete", "remove", "erase", "drop", "clear", "discard", "eliminate", "terminate", "destroy", "cut", "wipe"),
	newIntentRule(IntentSelect, "select", "get", "show", "fetch", "give", "giveme"),
}

func newIntentRule(intent Intent, keywords ...string) intentRule {
	return intentRule{
		intent:   intent,
		keywords: keywords,
		pattern:  wordSet(keywords...),
	}
}

func wordSet(words ...string) *regexp.Regexp {
	quoted := make([]string, 0, len(words))
	for _, word := range words {
		quoted = append(quoted, regexp.QuoteMeta(word))
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

func Classify(normalized string) Intent {
	for _, rule := range intentRules {
		if rule.pattern.MatchString(normalized) {
			return rule.intent
		}
	}
	return IntentUnknown
}

// Keywords returns the verbs that select the given intent.
func Keywords(intent Intent) []string {
	for _, rule := range intentRules {
		if rule.intent == intent {
			return append([]string(nil), rule.keywords...)
		}
	}
	return nil
}

func keywordPattern(intent Intent) *regexp.Regexp {
	for _, rule := range intentRules {
		if rule.intent == intent {
			return rule.pattern
		}
	}
	return nil
}
