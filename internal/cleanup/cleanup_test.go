// File: internal/cleanup/cleanup_test.go
package cleanup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot/internal/config"
)

func writeAged(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestSweepRemovesOnlyAgedFiles(t *testing.T) {
	dir := t.TempDir()
	old := writeAged(t, dir, "frame-old.png", 80*time.Hour)
	fresh := writeAged(t, dir, "frame-fresh.png", time.Minute)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	s := NewSweeper(config.CleanupConfig{
		MaxAge: 72 * time.Hour,
		MinAge: 5 * time.Minute,
	}, []string{dir}, nil, zap.NewNop())

	assert.Equal(t, 1, s.Sweep())
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.DirExists(t, filepath.Join(dir, "sub"), "subdirectories are never touched")
}

func TestSweepMinAgeFloorProtectsFreshFiles(t *testing.T) {
	dir := t.TempDir()
	fresh := writeAged(t, dir, "frame.png", time.Minute)

	// A zero MaxAge must not turn the sweeper into "delete everything".
	s := NewSweeper(config.CleanupConfig{
		MaxAge: 0,
		MinAge: 5 * time.Minute,
	}, []string{dir}, nil, zap.NewNop())

	assert.Equal(t, 0, s.Sweep())
	assert.FileExists(t, fresh)
}

func TestSweepMissingDirIsQuiet(t *testing.T) {
	s := NewSweeper(config.CleanupConfig{MaxAge: time.Hour}, []string{"/does/not/exist"}, nil, zap.NewNop())
	assert.Equal(t, 0, s.Sweep())
}
