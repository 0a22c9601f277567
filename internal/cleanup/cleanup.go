// File: internal/cleanup/cleanup.go

// Package cleanup prunes the artifact directories the agent writes into
// (debug captures, rotated event logs). Capture debugging produces a steady
// drip of PNGs; without a sweeper a long-running agent fills the disk.
package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot/internal/config"
	"github.com/xkilldash9x/deskpilot/internal/eventlog"
)

// Sweeper removes aged files from a fixed set of directories.
type Sweeper struct {
	cfg    config.CleanupConfig
	dirs   []string
	events eventlog.Logger
	logger *zap.Logger
	now    func() time.Time
}

func NewSweeper(cfg config.CleanupConfig, dirs []string, events eventlog.Logger, logger *zap.Logger) *Sweeper {
	if events == nil {
		events = eventlog.Nop{}
	}
	return &Sweeper{
		cfg:    cfg,
		dirs:   dirs,
		events: events,
		logger: logger.Named("cleanup"),
		now:    time.Now,
	}
}

// cutoffAge is the effective deletion age. MinAge is a floor: even a
// misconfigured MaxAge of zero never deletes files that were just written.
func (s *Sweeper) cutoffAge() time.Duration {
	if s.cfg.MaxAge > s.cfg.MinAge {
		return s.cfg.MaxAge
	}
	return s.cfg.MinAge
}

// Sweep removes aged regular files once and reports how many were removed.
// Subdirectories are left alone.
func (s *Sweeper) Sweep() int {
	cutoff := s.now().Add(-s.cutoffAge())
	removed := 0
	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if err := os.Remove(path); err != nil {
				s.logger.Debug("sweep remove failed", zap.String("path", path), zap.Error(err))
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("artifacts swept", zap.Int("removed", removed))
		s.events.Log("cleanup_sweep", map[string]any{"removed": removed})
	}
	return removed
}

// Run sweeps on the configured interval until the context is done. A zero or
// negative interval falls back to a conservative default.
func (s *Sweeper) Run(ctx context.Context) error {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep()
		}
	}
}
