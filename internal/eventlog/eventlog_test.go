// File: internal/eventlog/eventlog_test.go
package eventlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLoggerAppendsJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	l := NewFileLogger(path)

	l.Log("phase", map[string]any{"phase": "seeding"})
	l.Log("goal_result", map[string]any{"ok": true, "kind": "copy_content"})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "phase", rec["event"])
	assert.Equal(t, "seeding", rec["phase"])
	assert.NotEmpty(t, rec["ts"])
}

func TestFileLoggerSwallowsUnwritablePath(t *testing.T) {
	l := NewFileLogger(filepath.Join(t.TempDir(), "missing", "sub", "x", string([]byte{0}), "events.jsonl"))
	assert.NotPanics(t, func() {
		l.Log("phase", nil)
	})
}

func TestErrorRateWindow(t *testing.T) {
	l := NewFileLogger(filepath.Join(t.TempDir(), "events.jsonl"))
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Log("goal_result", map[string]any{"ok": false})
	l.Log("goal_result", map[string]any{"ok": false})
	l.Log("goal_result", map[string]any{"ok": true})
	assert.Equal(t, 2, l.ErrorRate("goal_result"), "only failures count")

	now = now.Add(6 * time.Minute)
	assert.Equal(t, 0, l.ErrorRate("goal_result"), "failures age out of the window")
}

func TestIsFailureEvent(t *testing.T) {
	assert.True(t, isFailureEvent("capture_error", nil))
	assert.True(t, isFailureEvent("inject_failed", nil))
	assert.True(t, isFailureEvent("goal_result", map[string]any{"ok": false}))
	assert.False(t, isFailureEvent("goal_result", map[string]any{"ok": true}))
	assert.False(t, isFailureEvent("phase", nil))
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() { Nop{}.Log("anything", map[string]any{"k": "v"}) })
}
