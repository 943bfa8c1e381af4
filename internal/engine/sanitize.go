// Package engine selects LLM backends for a request and dispatches to them with fallback.
package engine

import (
	"regexp"
	"strings"
)

var (
	thinkBlockRe     = regexp.MustCompile(`(?is)<think>.*?</think>`)
	excessNewlinesRe = regexp.MustCompile(`\n{3,}`)
)

// Sanitize strips <think> blocks, trims surrounding whitespace and collapses
// runs of three or more newlines down to two.
func Sanitize(raw string) string {
	if raw == "" {
		return raw
	}

	text := raw
	// Removing one block can splice the halves of another together.
	for thinkBlockRe.MatchString(text) {
		text = thinkBlockRe.ReplaceAllString(text, "")
	}

	text = strings.TrimSpace(text)
	return excessNewlinesRe.ReplaceAllString(text, "\n\n")
}
