// Package keywords tokenizes a user prompt into a short, deterministic list
// of ranked search terms used to find files relevant to the current turn.
package keywords

import "strings"

// Stopwords is the fixed filter set from the glossary. It intentionally
// excludes common English words and words that would otherwise dominate
// every coding-assistant prompt ("code", "repo", "project").
var Stopwords = map[string]bool{
	"the": true, "this": true, "that": true, "with": true, "from": true,
	"into": true, "about": true, "would": true, "could": true, "should": true,
	"there": true, "their": true, "your": true, "need": true, "have": true,
	"please": true, "just": true, "when": true, "what": true, "where": true,
	"which": true, "while": true, "after": true, "before": true, "code": true,
	"repo": true, "project": true,
}

const (
	minTokenLen = 4
	maxKeywords = 6
)

// isAllowedRune reports whether r belongs to the keyword character class
// [a-z0-9_./-]. Everything else is a split point.
func isAllowedRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '.' || r == '/' || r == '-':
		return true
	default:
		return false
	}
}

// Extract lowercases the prompt, splits on any character outside
// [a-z0-9_./-], drops tokens shorter than 4 characters and any stopword,
// deduplicates preserving first-seen order, and returns at most the first
// 6 survivors. The result is deterministic for identical input.
func Extract(prompt string) []string {
	lower := strings.ToLower(prompt)

	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !isAllowedRune(r)
	})

	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, maxKeywords)

	for _, tok := range tokens {
		if len(tok) < minTokenLen {
			continue
		}
		if Stopwords[tok] {
			continue
		}
		if seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}
