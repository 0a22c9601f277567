// File: internal/vision/detect.go
package vision

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot/internal/config"
)

// BoxKind separates the two candidate sources during the merge.
type BoxKind string

const (
	KindTemplate BoxKind = "template"
	KindContour  BoxKind = "contour"
)

// Box is one candidate UI element, in frame-relative coordinates.
type Box struct {
	Rect  image.Rectangle
	Score float64
	Kind  BoxKind
	// Label names the matched template; empty for contour boxes.
	Label string
}

// Center returns the click point of the box.
func (b Box) Center() image.Point {
	return image.Pt(b.Rect.Min.X+b.Rect.Dx()/2, b.Rect.Min.Y+b.Rect.Dy()/2)
}

// Area in pixels.
func (b Box) Area() int { return b.Rect.Dx() * b.Rect.Dy() }

// Detector proposes rectangles from edge structure. No classifier and no
// OCR: anything with a closed-ish outline becomes a candidate, and the
// executor's verification loop weeds out the wrong ones.
type Detector struct {
	cfg    config.VisionConfig
	logger *zap.Logger
}

func NewDetector(cfg config.VisionConfig, logger *zap.Logger) *Detector {
	return &Detector{cfg: cfg, logger: logger.Named("detect")}
}

// Detect runs the edge pipeline and returns candidate boxes scored by area.
// Larger outlines are assumed to be panels and buttons rather than glyph
// noise, so area is the ranking signal.
func (d *Detector) Detect(img image.Image) []Box {
	gray := effect.Grayscale(img)
	blurred := blur.Gaussian(gray, d.cfg.BlurRadius)
	edges := effect.EdgeDetection(blurred, 1.0)
	thick := effect.Dilate(edges, 1.0)
	mask := segment.Threshold(thick, d.cfg.EdgeThreshold)

	boxes := d.componentBoxes(mask)
	d.logger.Debug("contour detection complete", zap.Int("candidates", len(boxes)))
	return boxes
}

// componentBoxes finds connected components in the binary mask and returns
// their bounding boxes, filtered by the size rules.
func (d *Detector) componentBoxes(mask *image.Gray) []Box {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	frameArea := float64(w * h)

	visited := make([]bool, w*h)
	at := func(x, y int) bool {
		return mask.GrayAt(b.Min.X+x, b.Min.Y+y).Y > 0
	}

	var boxes []Box
	var stack []image.Point
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if visited[y*w+x] || !at(x, y) {
				continue
			}
			// Flood-fill one component, tracking its extent.
			minX, minY, maxX, maxY := x, y, x, y
			stack = append(stack[:0], image.Pt(x, y))
			visited[y*w+x] = true
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if p.X < minX {
					minX = p.X
				}
				if p.X > maxX {
					maxX = p.X
				}
				if p.Y < minY {
					minY = p.Y
				}
				if p.Y > maxY {
					maxY = p.Y
				}
				for _, q := range [4]image.Point{
					{p.X - 1, p.Y}, {p.X + 1, p.Y}, {p.X, p.Y - 1}, {p.X, p.Y + 1},
				} {
					if q.X < 0 || q.Y < 0 || q.X >= w || q.Y >= h {
						continue
					}
					if visited[q.Y*w+q.X] || !at(q.X, q.Y) {
						continue
					}
					visited[q.Y*w+q.X] = true
					stack = append(stack, q)
				}
			}

			bw, bh := maxX-minX+1, maxY-minY+1
			if bw < d.cfg.MinBoxSize || bh < d.cfg.MinBoxSize {
				continue
			}
			// A box covering nearly the whole frame is the frame border, not
			// an element.
			if float64(bw*bh) > d.cfg.MaxBoxFraction*frameArea {
				continue
			}
			boxes = append(boxes, Box{
				Rect:  image.Rect(minX, minY, maxX+1, maxY+1),
				Score: float64(bw * bh),
				Kind:  KindContour,
			})
		}
	}
	return boxes
}
