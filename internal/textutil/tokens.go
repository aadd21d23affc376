package textutil

import (
	"regexp"
	"sort"
	"strings"
)

var nonAlnumPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize lowercases text, replaces every non-alphanumeric run with a
// single space, and trims the result. Normalization is idempotent.
func Normalize(text string) string {
	lowered := strings.ToLower(text)
	return strings.TrimSpace(nonAlnumPattern.ReplaceAllString(lowered, " "))
}

// Tokens splits normalized text into its whitespace-delimited tokens.
func Tokens(text string) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}

// TokenSet returns the unique tokens of text.
func TokenSet(text string) map[string]struct{} {
	tokens := Tokens(text)
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

func sortedTokens(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for token := range set {
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}
