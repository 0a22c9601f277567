// File: internal/vision/template.go
package vision

import (
	"image"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/imgio"
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot/internal/config"
)

// plane is a grayscale image as float64 samples, the working format for
// correlation.
type plane struct {
	w, h int
	pix  []float64
}

func toPlane(img image.Image) plane {
	gray := effect.Grayscale(img)
	b := gray.Bounds()
	p := plane{w: b.Dx(), h: b.Dy(), pix: make([]float64, b.Dx()*b.Dy())}
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			r, _, _, _ := gray.At(b.Min.X+x, b.Min.Y+y).RGBA()
			p.pix[y*p.w+x] = float64(r >> 8)
		}
	}
	return p
}

type template struct {
	name string
	img  plane
	// mean and norm are precomputed so matching only touches the frame.
	mean float64
	norm float64
}

// Matcher finds known control glyphs by zero-mean normalized
// cross-correlation. Templates are PNG crops dropped into the templates
// directory; the file stem is the label.
type Matcher struct {
	cfg       config.VisionConfig
	logger    *zap.Logger
	templates []template
}

// NewMatcher loads every PNG in the configured directory. A missing or empty
// directory simply disables template matching; contour detection still runs.
func NewMatcher(cfg config.VisionConfig, logger *zap.Logger) *Matcher {
	m := &Matcher{cfg: cfg, logger: logger.Named("template")}
	entries, err := os.ReadDir(cfg.TemplatesDir)
	if err != nil {
		m.logger.Debug("no templates directory", zap.String("dir", cfg.TemplatesDir))
		return m
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".png") {
			continue
		}
		path := filepath.Join(cfg.TemplatesDir, e.Name())
		img, err := imgio.Open(path)
		if err != nil {
			m.logger.Warn("skipping unreadable template", zap.String("path", path), zap.Error(err))
			continue
		}
		m.add(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())), img)
	}
	m.logger.Info("templates loaded", zap.Int("count", len(m.templates)))
	return m
}

func (m *Matcher) add(name string, img image.Image) {
	p := toPlane(img)
	if p.w == 0 || p.h == 0 {
		return
	}
	var sum float64
	for _, v := range p.pix {
		sum += v
	}
	mean := sum / float64(len(p.pix))
	var sq float64
	for _, v := range p.pix {
		d := v - mean
		sq += d * d
	}
	m.templates = append(m.templates, template{
		name: name,
		img:  p,
		mean: mean,
		norm: math.Sqrt(sq),
	})
}

// Count reports the number of loaded templates.
func (m *Matcher) Count() int { return len(m.templates) }

// Match scans the frame for every template and returns boxes scoring at or
// above the configured threshold. Scores are correlation coefficients in
// [0, 1]; overlapping hits are left for the merge step to suppress.
func (m *Matcher) Match(img image.Image) []Box {
	if len(m.templates) == 0 {
		return nil
	}
	frame := toPlane(img)

	var boxes []Box
	for _, t := range m.templates {
		boxes = append(boxes, matchOne(frame, t, m.cfg.TemplateMatchThreshold)...)
	}
	sort.SliceStable(boxes, func(i, j int) bool { return boxes[i].Score > boxes[j].Score })
	return boxes
}

// matchOne slides one template over the frame. A flat template (zero norm)
// matches everything and nothing; it is skipped.
func matchOne(frame plane, t template, threshold float64) []Box {
	if t.norm == 0 || t.img.w > frame.w || t.img.h > frame.h {
		return nil
	}
	var boxes []Box
	for oy := 0; oy <= frame.h-t.img.h; oy++ {
		for ox := 0; ox <= frame.w-t.img.w; ox++ {
			score := correlate(frame, t, ox, oy)
			if score >= threshold {
				boxes = append(boxes, Box{
					Rect:  image.Rect(ox, oy, ox+t.img.w, oy+t.img.h),
					Score: score,
					Kind:  KindTemplate,
					Label: t.name,
				})
			}
		}
	}
	return boxes
}

func correlate(frame plane, t template, ox, oy int) float64 {
	n := float64(t.img.w * t.img.h)

	var sum float64
	for y := 0; y < t.img.h; y++ {
		row := frame.pix[(oy+y)*frame.w+ox:]
		for x := 0; x < t.img.w; x++ {
			sum += row[x]
		}
	}
	fmean := sum / n

	var cross, fsq float64
	for y := 0; y < t.img.h; y++ {
		frow := frame.pix[(oy+y)*frame.w+ox:]
		trow := t.img.pix[y*t.img.w:]
		for x := 0; x < t.img.w; x++ {
			fd := frow[x] - fmean
			cross += fd * (trow[x] - t.mean)
			fsq += fd * fd
		}
	}
	if fsq == 0 {
		return 0
	}
	return cross / (math.Sqrt(fsq) * t.norm)
}
