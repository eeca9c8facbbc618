package manual

import "strings"

func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
