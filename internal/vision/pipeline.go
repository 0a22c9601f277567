// File: internal/vision/pipeline.go
package vision

import (
	"image"

	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot/internal/config"
)

// Analyzer is the perception surface the executor consumes. Tests substitute
// scripted candidate lists for the real pipeline.
type Analyzer interface {
	Analyze(img image.Image) []Box
}

// Pipeline runs template matching and contour detection on a frame and merges
// the results into one ranked candidate list.
type Pipeline struct {
	cfg      config.VisionConfig
	detector *Detector
	matcher  *Matcher
	logger   *zap.Logger
}

func NewPipeline(cfg config.VisionConfig, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		detector: NewDetector(cfg, logger),
		matcher:  NewMatcher(cfg, logger),
		logger:   logger.Named("vision"),
	}
}

// Analyze returns candidates sorted best-first.
func (p *Pipeline) Analyze(img image.Image) []Box {
	templates := p.matcher.Match(img)
	contours := p.detector.Detect(img)
	merged := Merge(templates, contours, p.cfg)
	p.logger.Debug("frame analyzed",
		zap.Int("template_hits", len(templates)),
		zap.Int("contour_hits", len(contours)),
		zap.Int("merged", len(merged)))
	return merged
}
