package manual

import (
	"regexp"
	"strings"
)

type fillerRule struct {
	prepositions []string
	articles     []string
}

var tableFillers = map[Intent]fillerRule{
	IntentInsert: {prepositions: []string{"into"}, articles: []string{"a", "an", "new"}},
	IntentUpdate: {articles: []string{"a", "an", "the"}},
	IntentDelete: {prepositions: []string{"from"}, articles: []string{"a", "an", "the"}},
	IntentSelect: {articles: []string{"the"}},
}

var nextWordPattern = regexp.MustCompile(`^\s+(\w+)`)

// ResolveTable finds the first verb of the intent's keyword set and returns
// the pluralized noun that follows it, together with the offset just past
// that noun.
func ResolveTable(normalized string, intent Intent) (string, int, bool) {
	pattern := keywordPattern(intent)
	if pattern == nil {
		return "", 0, false
	}
	loc := pattern.FindStringIndex(normalized)
	if loc == nil {
		return "", 0, false
	}
	noun, end, ok := nounAfter(normalized, loc[1], tableFillers[intent])
	if !ok {
		return "", 0, false
	}
	return Pluralize(noun), end, true
}

func nounAfter(text string, pos int, fillers fillerRule) (string, int, bool) {
	word, end, ok := nextWord(text, pos)
	if !ok {
		return "", 0, false
	}
	if contains(fillers.prepositions, word) {
		word, end, ok = nextWord(text, end)
		if !ok {
			return "", 0, false
		}
	}
	if contains(fillers.articles, word) {
		word, end, ok = nextWord(text, end)
		if !ok {
			return "", 0, false
		}
	}
	return word, end, true
}

func nextWord(text string, pos int) (string, int, bool) {
	if pos > len(text) {
		return "", 0, false
	}
	m := nextWordPattern.FindStringSubmatchIndex(text[pos:])
	if m == nil {
		return "", 0, false
	}
	return text[pos+m[2] : pos+m[3]], pos + m[1], true
}

// Pluralize appends "s" unless the word already ends with one. It is
// deliberately mechanical: "box" becomes "boxs" and "bus" stays "bus".
func Pluralize(noun string) string {
	if strings.HasSuffix(noun, "s") {
		return noun
	}
	return noun + "s"
}

func contains(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}
