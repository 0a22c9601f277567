// File: internal/executor/verify_test.go
package executor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelUniqueness(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		s := newSentinel()
		assert.False(t, seen[s])
		seen[s] = true
		assert.True(t, strings.HasPrefix(s, "deskpilot-sentinel-"))
	}
}

func TestClipboardSatisfies(t *testing.T) {
	sentinel := newSentinel()

	tests := []struct {
		name   string
		clip   string
		expect string
		fuzzy  int
		want   bool
	}{
		{"empty clipboard", "", "", 1, false},
		{"sentinel unchanged", sentinel, "", 1, false},
		{"changed, nothing expected", "some reply text", "", 1, true},
		{"exact fragment present", "result: deadbeef1234 done", "deadbeef1234", 1, true},
		{"fragment absent", "no identifiers here", "deadbeef1234", 1, false},
		{"hex off by one", "got deadbeef1235 back", "deadbeef1234", 1, true},
		{"hex off by one, fuzz disabled", "got deadbeef1235 back", "deadbeef1234", 0, false},
		{"hex off by four", "got deadbeefcafe back", "deadbeef1234", 1, false},
		{"non-hex expectation never fuzzy", "statuz ok", "status", 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clipboardSatisfies(tt.clip, sentinel, tt.expect, tt.fuzzy)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHexFragmentNear(t *testing.T) {
	assert.True(t, hexFragmentNear("prefix deadbeef1234 suffix", "deadbeef1234", 1))
	assert.True(t, hexFragmentNear("DEADBEEF1234", "deadbeef1234", 0), "matching is case-insensitive")
	assert.True(t, hexFragmentNear("ffdeadbeef1234aa", "deadbeef1234", 1),
		"the fragment may sit inside a longer hex run")
	assert.False(t, hexFragmentNear("deadbeefcafe", "deadbeef1234", 1),
		"distance four is a different token, not a transcription slip")
	assert.False(t, hexFragmentNear("deadbeef123", "deadbeef1234", 1), "shorter runs never match")
	assert.False(t, hexFragmentNear("deadbeef1234", "not-hex!", 1))
}

func TestHammingAtMost(t *testing.T) {
	assert.True(t, hammingAtMost("deadbeef1234", "deadbeef1234", 0))
	assert.True(t, hammingAtMost("deadbeef1235", "deadbeef1234", 1))
	assert.False(t, hammingAtMost("deadbeef1265", "deadbeef1234", 1))
	assert.False(t, hammingAtMost("abc", "abcd", 10), "length mismatch never matches")
}

func TestSanitizePrompt(t *testing.T) {
	assert.Equal(t, "one two three", sanitizePrompt("one\ntwo\r\nthree"))
	assert.Equal(t, "kept intact", sanitizePrompt("  kept intact  "))
	assert.Equal(t, "", sanitizePrompt("\n\r\n"))
}
