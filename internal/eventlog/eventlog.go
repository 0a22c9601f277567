// File: internal/eventlog/eventlog.go

// Package eventlog appends one structured line per gated action, focus
// attempt, and verification step. The log is write-only diagnostics: nothing
// in the agent ever reads it back to make a decision.
package eventlog

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Logger is the capability the core depends on. Implementations decide the
// sink (file, test buffer, nothing).
type Logger interface {
	Log(event string, fields map[string]any)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Log(string, map[string]any) {}

// FileLogger appends JSONL records to a single file. Writes are best-effort;
// a failed append is swallowed because diagnostics must never block or fail
// an action.
type FileLogger struct {
	path string

	mu sync.Mutex
	// Sliding window of recent failure events per event name, used only for
	// the ErrorRate diagnostics surface.
	errWindow time.Duration
	errTimes  map[string][]time.Time
	now       func() time.Time
}

// NewFileLogger creates the parent directory eagerly so the first append
// cannot race directory creation with the cleanup sweeper.
func NewFileLogger(path string) *FileLogger {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	return &FileLogger{
		path:      path,
		errWindow: 5 * time.Minute,
		errTimes:  make(map[string][]time.Time),
		now:       time.Now,
	}
}

// Log appends one record. Field order is not guaranteed; the record always
// carries "ts" and "event".
func (l *FileLogger) Log(event string, fields map[string]any) {
	rec := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		rec[k] = v
	}
	rec["ts"] = l.now().Format("2006-01-02T15:04:05.000Z07:00")
	rec["event"] = event

	line, err := json.Marshal(rec)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err == nil {
		_, _ = f.Write(append(line, '\n'))
		_ = f.Close()
	}

	if isFailureEvent(event, fields) {
		l.recordErrorLocked(event)
	}
}

func isFailureEvent(event string, fields map[string]any) bool {
	lower := strings.ToLower(event)
	if strings.Contains(lower, "error") || strings.Contains(lower, "fail") {
		return true
	}
	ok, present := fields["ok"].(bool)
	return present && !ok
}

func (l *FileLogger) recordErrorLocked(event string) {
	l.errTimes[event] = append(l.errTimes[event], l.now())
}

// ErrorRate reports how many failure events of this name landed inside the
// tracking window. Diagnostics only.
func (l *FileLogger) ErrorRate(event string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.errWindow)
	times := l.errTimes[event]
	i := 0
	for i < len(times) && times[i].Before(cutoff) {
		i++
	}
	times = times[i:]
	l.errTimes[event] = times
	return len(times)
}
