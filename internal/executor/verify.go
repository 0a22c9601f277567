// File: internal/executor/verify.go
package executor

import (
	"strings"

	"github.com/google/uuid"
)

// newSentinel returns a clipboard sentinel that no application output can
// plausibly equal.
func newSentinel() string {
	return "deskpilot-sentinel-" + uuid.NewString()
}

// clipboardSatisfies decides whether a post-action clipboard read proves the
// action happened. The clipboard must have moved past the sentinel; when an
// expected fragment is given it must also appear, exactly or within the fuzzy
// hex tolerance.
func clipboardSatisfies(clip, sentinel, expect string, fuzzyMax int) bool {
	if clip == "" || clip == sentinel {
		return false
	}
	if expect == "" {
		return true
	}
	if strings.Contains(clip, expect) {
		return true
	}
	return hexFragmentNear(clip, expect, fuzzyMax)
}

// hexFragmentNear reports whether the clipboard contains a hex token within
// Hamming distance fuzzyMax of the expected hex fragment. Tolerates single
// transcription flips in identifiers without accepting a different token.
func hexFragmentNear(clip, expect string, fuzzyMax int) bool {
	if fuzzyMax <= 0 || !isHex(expect) {
		return false
	}
	n := len(expect)
	for _, run := range hexRuns(clip) {
		if len(run) < n {
			continue
		}
		for i := 0; i+n <= len(run); i++ {
			if hammingAtMost(run[i:i+n], expect, fuzzyMax) {
				return true
			}
		}
	}
	return false
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isHexRune(r) {
			return false
		}
	}
	return true
}

func isHexRune(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// hexRuns extracts maximal runs of hex characters, lowercased.
func hexRuns(s string) []string {
	var runs []string
	var cur strings.Builder
	for _, r := range strings.ToLower(s) {
		if isHexRune(r) {
			cur.WriteRune(r)
			continue
		}
		if cur.Len() > 0 {
			runs = append(runs, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		runs = append(runs, cur.String())
	}
	return runs
}

// hammingAtMost compares equal-length strings with early exit.
func hammingAtMost(a, b string, limit int) bool {
	if len(a) != len(b) {
		return false
	}
	dist := 0
	bl := strings.ToLower(b)
	for i := 0; i < len(a); i++ {
		if a[i] != bl[i] {
			dist++
			if dist > limit {
				return false
			}
		}
	}
	return true
}

// sanitizePrompt flattens newlines before typing: in the target input a bare
// Enter submits, so embedded line breaks would split one prompt into several
// premature submissions.
func sanitizePrompt(text string) string {
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.TrimSpace(text)
}
