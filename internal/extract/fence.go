package extract

import (
	"strings"
	"unicode"
)

const fence = "```"

// StripFences removes a surrounding markdown code fence, with or without a
// language tag, from a model answer. Text without fences is only trimmed.
// When the answer has prose around a fenced block, the block is kept.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, fence) {
		i := strings.Index(s, fence)
		if i < 0 {
			return s
		}
		s = s[i:]
	}

	s = strings.TrimPrefix(s, fence)
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	})
	if end := strings.LastIndex(s, fence); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}
