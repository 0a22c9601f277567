// File: internal/vision/capture.go
package vision

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/kbinani/screenshot"
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot/internal/config"
)

// Frame is one observation of the watched region.
type Frame struct {
	// ID is unique per capture and feeds the observation signature.
	ID string
	// Img is the captured pixels of the region.
	Img *image.RGBA
	// Origin is the absolute screen position of Img's top-left pixel, used to
	// translate detected boxes back into click coordinates.
	Origin image.Point
}

// Capturer produces frames of the watched region. The screen implementation
// is swapped out in executor tests.
type Capturer interface {
	Capture() (*Frame, error)
}

// ScreenCapturer grabs the configured monitor region. Capture can fail
// transiently (locked desktop, monitor sleep, RDP disconnect); callers treat
// an error as "no observation this tick", never as fatal.
type ScreenCapturer struct {
	cfg    config.CaptureConfig
	logger *zap.Logger
	seq    int
}

func NewScreenCapturer(cfg config.CaptureConfig, logger *zap.Logger) *ScreenCapturer {
	if cfg.SaveDebugImages && cfg.DebugDir != "" {
		_ = os.MkdirAll(cfg.DebugDir, 0o755)
	}
	return &ScreenCapturer{cfg: cfg, logger: logger.Named("capture")}
}

// Capture grabs one frame of the configured region.
func (c *ScreenCapturer) Capture() (*Frame, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, fmt.Errorf("no active displays")
	}
	idx := c.cfg.MonitorIndex
	if idx < 0 || idx >= n {
		idx = 0
	}
	region := ResolveRegion(screenshot.GetDisplayBounds(idx), c.cfg.Region)

	img, err := screenshot.CaptureRect(region)
	if err != nil {
		return nil, fmt.Errorf("capture region %v: %w", region, err)
	}

	c.seq++
	frame := &Frame{
		ID:     fmt.Sprintf("%s-%04d", time.Now().Format("20060102T150405.000"), c.seq),
		Img:    img,
		Origin: region.Min,
	}
	if c.cfg.SaveDebugImages && c.cfg.DebugDir != "" {
		c.saveDebug(frame)
	}
	return frame, nil
}

// saveDebug is best-effort; a full disk must not stop observation.
func (c *ScreenCapturer) saveDebug(f *Frame) {
	path := filepath.Join(c.cfg.DebugDir, "frame-"+f.ID+".png")
	if err := imgio.Save(path, f.Img, imgio.PNGEncoder()); err != nil {
		c.logger.Debug("debug image save failed", zap.String("path", path), zap.Error(err))
	}
}
