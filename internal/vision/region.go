// File: internal/vision/region.go

// Package vision turns screenshots into ranked candidate boxes. Detection is
// deliberately dumb: edge contours propose rectangles, templates confirm known
// controls, and non-maximum suppression merges the two into one ranked list.
package vision

import (
	"image"

	"github.com/xkilldash9x/deskpilot/internal/config"
)

// ResolveRegion converts a percent-relative region into absolute pixels on the
// given monitor bounds. Both axes scale against their own dimension. The
// result is clamped inside the monitor and never empty.
func ResolveRegion(bounds image.Rectangle, pct config.RegionPercent) image.Rectangle {
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())

	r := image.Rect(
		bounds.Min.X+int(w*pct.Left/100),
		bounds.Min.Y+int(h*pct.Top/100),
		bounds.Min.X+int(w*(pct.Left+pct.Width)/100),
		bounds.Min.Y+int(h*(pct.Top+pct.Height)/100),
	)
	// Clamp axis by axis so a region falling entirely off the monitor still
	// collapses onto its nearest edge, wherever the monitor sits in the
	// virtual desktop.
	r.Min.X = min(max(r.Min.X, bounds.Min.X), bounds.Max.X-1)
	r.Min.Y = min(max(r.Min.Y, bounds.Min.Y), bounds.Max.Y-1)
	r.Max.X = min(max(r.Max.X, r.Min.X+1), bounds.Max.X)
	r.Max.Y = min(max(r.Max.Y, r.Min.Y+1), bounds.Max.Y)
	return r
}
