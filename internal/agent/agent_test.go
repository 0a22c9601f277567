// File: internal/agent/agent_test.go
package agent

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot/internal/config"
	"github.com/xkilldash9x/deskpilot/internal/executor"
	"github.com/xkilldash9x/deskpilot/internal/winauth"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// deniedAuthority refuses every operation, like a desktop that is not there.
type deniedAuthority struct{}

func (deniedAuthority) ListWindows() []winauth.WindowInfo      { return nil }
func (deniedAuthority) Foreground() (winauth.WindowInfo, bool) { return winauth.WindowInfo{}, false }
func (deniedAuthority) FindWindow(winauth.FocusTarget) (winauth.WindowInfo, bool) {
	return winauth.WindowInfo{}, false
}
func (deniedAuthority) Activate(uintptr) bool                     { return false }
func (deniedAuthority) WindowRect(uintptr) (winauth.Rect, bool)   { return winauth.Rect{}, false }
func (deniedAuthority) Close(uintptr) bool                        { return false }
func (deniedAuthority) InjectKeys([]string) bool                  { return false }
func (deniedAuthority) InjectText(string) bool                    { return false }
func (deniedAuthority) MoveMouse(int, int) bool                   { return false }
func (deniedAuthority) Click(int, int, string) bool               { return false }
func (deniedAuthority) ReadClipboard(time.Duration) string        { return "" }
func (deniedAuthority) WriteClipboard(string, time.Duration) bool { return false }

func testAgentConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Target.TitleContains = "Target App"

	dir := t.TempDir()
	cfg.State.Dir = filepath.Join(dir, "state")
	cfg.State.EventLogFile = filepath.Join(dir, "events.jsonl")
	cfg.Capture.DebugDir = filepath.Join(dir, "captures")
	cfg.Capture.SaveDebugImages = false
	cfg.Executor.MaxAttempts = 1
	return cfg
}

func TestRunWithoutGoalsFails(t *testing.T) {
	c := New(testAgentConfig(t), deniedAuthority{}, zap.NewNop())
	err := c.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no goals")
}

func TestRunReportsUnacquirableTarget(t *testing.T) {
	cfg := testAgentConfig(t)
	c := New(cfg, deniedAuthority{}, zap.NewNop())

	err := c.Run(context.Background(), []executor.Goal{{Kind: executor.GoalCopyContent}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(executor.ReasonFocusLost))

	// The ownership marker must be released on the way out.
	assert.Equal(t, "", c.Store().LoadMarker().Owner)
}

func TestRunHonorsPersistedPause(t *testing.T) {
	cfg := testAgentConfig(t)

	// A previous run left a fresh pause behind.
	first := New(cfg, deniedAuthority{}, zap.NewNop())
	first.Store().SavePause(true)

	c := New(cfg, deniedAuthority{}, zap.NewNop())
	assert.True(t, c.Gate().Paused(), "a fresh persisted pause binds the next run")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := c.Run(ctx, []executor.Goal{{Kind: executor.GoalCopyContent}})
	require.Error(t, err, "a paused agent waits instead of acting, until the context expires")
	assert.Contains(t, err.Error(), "context deadline exceeded")
}

func TestRunCancelledContext(t *testing.T) {
	cfg := testAgentConfig(t)
	c := New(cfg, deniedAuthority{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Run(ctx, []executor.Goal{{Kind: executor.GoalCopyContent}})
	// Cancellation is a normal shutdown, not a failure.
	assert.NoError(t, err)
}
