// Package retrieval assembles the grounding context for a processing pass:
// similarity-searched documents and playbook selection.
package retrieval

import "strings"

const (
	// maxContentChars caps document content carried into prompts.
	maxContentChars = 8000

	// breakWindow is the fraction of the cap in which a sentence break is
	// preferred over a hard cut.
	breakWindow = 0.2

	truncationMarker = " [truncated]"
)

// TruncateContent caps content at maxContentChars. Content over the cap is
// cut at the last sentence terminator inside the final 20% of the window if
// one exists, otherwise hard-cut at the cap. Every truncation appends the
// marker.
func TruncateContent(content string) string {
	if len(content) <= maxContentChars {
		return content
	}
	window := content[:maxContentChars]
	floor := int(float64(maxContentChars) * (1 - breakWindow))
	if idx := lastSentenceBreak(window); idx >= floor {
		return window[:idx+1] + truncationMarker
	}
	return window + truncationMarker
}

func lastSentenceBreak(s string) int {
	return max(strings.LastIndexByte(s, '.'),
		max(strings.LastIndexByte(s, '!'), strings.LastIndexByte(s, '?')))
}
