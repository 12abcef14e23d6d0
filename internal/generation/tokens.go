package generation

import (
	"regexp"
	"strings"
)

var tokenSplitRe = regexp.MustCompile(`[\s,]+`)

// SplitTokens splits prompt text on runs of whitespace and commas into
// the word tokens used for frequency aggregation. Empty tokens are
// dropped; order is preserved.
func SplitTokens(s string) []string {
	var tokens []string
	for _, tok := range tokenSplitRe.Split(s, -1) {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
