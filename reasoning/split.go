// Package reasoning separates an inline reasoning trace from a model's answer.
package reasoning

import "strings"

const (
	OpenMarker  = "<think>"
	CloseMarker = "</think>"
)

// trimSet matches the whitespace set stripped by the UI contract: space, tab,
// newline, carriage return, NUL and vertical tab.
const trimSet = " \t\n\r\x00\x0B"

// Result is the pair handed to the UI.
type Result struct {
	Response       string `json:"response"`
	ChainOfThought string `json:"chainOfThought"`
}

// Split extracts the first <think>...</think> block from fullText.
//
// The block (markers included) is removed from the response and its interior becomes
// the chain of thought. Later blocks are left in the response. Both fields are trimmed.
// The scan is two forward index searches, so input with many unmatched opening markers
// costs linear time.
func Split(fullText string) Result {
	start, end, ok := findBlock(fullText)
	if !ok {
		return Result{Response: trim(fullText)}
	}

	interior := fullText[start+len(OpenMarker) : end]
	remainder := fullText[:start] + fullText[end+len(CloseMarker):]

	return Result{
		Response:       trim(remainder),
		ChainOfThought: trim(interior),
	}
}

// findBlock returns the offsets of the first opening marker and of the first closing
// marker after it. If the first opening marker has no closing marker after it, no later
// opening marker can have one either.
func findBlock(s string) (start, end int, ok bool) {
	start = strings.Index(s, OpenMarker)
	if start < 0 {
		return 0, 0, false
	}
	rel := strings.Index(s[start+len(OpenMarker):], CloseMarker)
	if rel < 0 {
		return 0, 0, false
	}
	return start, start + len(OpenMarker) + rel, true
}

// HasReasoning reports whether fullText contains a complete reasoning block
func HasReasoning(fullText string) bool {
	_, _, ok := findBlock(fullText)
	return ok
}

func trim(s string) string {
	return strings.Trim(s, trimSet)
}
