package manual

import "strings"

type Literal struct {
	Text    string
	Numeric bool
}

// Quote classifies raw as a number or a string. Values that arrive wrapped
// in matching quotes are always strings.
func Quote(raw string) Literal {
	raw = strings.TrimSpace(raw)
	if isQuoted(raw) {
		return Literal{Text: raw[1 : len(raw)-1]}
	}
	return Literal{Text: raw, Numeric: isNumeric(raw)}
}

func QuoteString(raw string) Literal {
	raw = strings.TrimSpace(raw)
	if isQuoted(raw) {
		raw = raw[1 : len(raw)-1]
	}
	return Literal{Text: raw}
}

func (l Literal) SQL() string {
	if l.Numeric {
		return l.Text
	}
	return "'" + l.Text + "'"
}

func isQuoted(raw string) bool {
	return len(raw) >= 2 && (raw[0] == '\'' || raw[0] == '"') && raw[len(raw)-1] == raw[0]
}

func isNumeric(text string) bool {
	text = strings.Replace(text, ".", "", 1)
	if text == "" {
		return false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
