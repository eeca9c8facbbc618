package manual

import (
	"regexp"
	"strings"
)

type KeyValuePair struct {
	Column string
	Linker string
	Value  string
}

// Linkers separate a column name from its value in free text.
var Linkers = []string{"is", "=", "as", "to"}

var (
	pairHeadPattern       = regexp.MustCompile(`\b(\w+)(?:\s*(=)\s*|\s+(is|as|to)\s+)`)
	connectorTailPattern  = regexp.MustCompile(`(?:^|\s)and\s*$`)
	trailingConnectorTrim = regexp.MustCompile(`(?:^|\s+)and\s*$`)
)

type pendingPair struct {
	column     string
	linker     string
	valueStart int
}

// ExtractPairs returns every "<column> <linker> <value>" pair in span. Commas
// and semicolons always end a value; inside one segment a value also ends
// where "and" introduces the next pair.
func ExtractPairs(span string) []KeyValuePair {
	segments := strings.FieldsFunc(span, func(r rune) bool { return r == ',' || r == ';' })
	pairs := make([]KeyValuePair, 0, len(segments))
	for _, segment := range segments {
		pairs = append(pairs, segmentPairs(segment)...)
	}
	return pairs
}

func segmentPairs(segment string) []KeyValuePair {
	heads := pairHeadPattern.FindAllStringSubmatchIndex(segment, -1)
	var pairs []KeyValuePair
	var current *pendingPair
	for _, head := range heads {
		if current != nil {
			between := segment[current.valueStart:head[0]]
			if !connectorTailPattern.MatchString(between) {
				continue
			}
			pairs = appendPair(pairs, current, between)
		}
		current = &pendingPair{
			column:     segment[head[2]:head[3]],
			linker:     linkerAt(segment, head),
			valueStart: head[1],
		}
	}
	if current != nil {
		pairs = appendPair(pairs, current, segment[current.valueStart:])
	}
	return pairs
}

func linkerAt(segment string, head []int) string {
	if head[4] >= 0 {
		return segment[head[4]:head[5]]
	}
	return segment[head[6]:head[7]]
}

func appendPair(pairs []KeyValuePair, pending *pendingPair, rawValue string) []KeyValuePair {
	value := trailingConnectorTrim.ReplaceAllString(strings.TrimSpace(rawValue), "")
	value = trimQuotes(strings.TrimSpace(value))
	if value == "" {
		return pairs
	}
	return append(pairs, KeyValuePair{
		Column: strings.TrimSpace(pending.column),
		Linker: pending.linker,
		Value:  value,
	})
}

func trimQuotes(value string) string {
	if strings.HasPrefix(value, "'") || strings.HasPrefix(value, `"`) {
		value = value[1:]
	}
	if strings.HasSuffix(value, "'") || strings.HasSuffix(value, `"`) {
		value = value[:len(value)-1]
	}
	return strings.TrimSpace(value)
}
