// File: internal/vision/nms.go
package vision

import (
	"image"
	"sort"

	"github.com/xkilldash9x/deskpilot/internal/config"
)

// IoU computes intersection-over-union of two rectangles. Zero when either
// rectangle is empty.
func IoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	interArea := inter.Dx() * inter.Dy()
	union := a.Dx()*a.Dy() + b.Dx()*b.Dy() - interArea
	if union <= 0 {
		return 0
	}
	return float64(interArea) / float64(union)
}

// suppress keeps the highest-scored boxes, dropping any box whose overlap
// with an already-kept box exceeds iouMax.
func suppress(boxes []Box, iouMax float64) []Box {
	sorted := make([]Box, len(boxes))
	copy(sorted, boxes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	var kept []Box
	for _, b := range sorted {
		overlaps := false
		for _, k := range kept {
			if IoU(b.Rect, k.Rect) > iouMax {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, b)
		}
	}
	return kept
}

// Merge combines template matches and contour proposals into one ranked list.
// Templates win: they are suppressed among themselves first, then contour
// boxes that substantially overlap a surviving template are dropped (the
// template identifies the element more precisely), then the remaining
// contours are suppressed among themselves. The result is sorted by score
// descending, templates first on ties.
func Merge(templates, contours []Box, cfg config.VisionConfig) []Box {
	keptTemplates := suppress(templates, cfg.NMSIoU)

	var freeContours []Box
	for _, c := range contours {
		shadowed := false
		for _, t := range keptTemplates {
			if IoU(c.Rect, t.Rect) > cfg.TemplateContourIoU {
				shadowed = true
				break
			}
		}
		if !shadowed {
			freeContours = append(freeContours, c)
		}
	}
	keptContours := suppress(freeContours, cfg.ContourNMSIoU)

	merged := append(keptTemplates, keptContours...)
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Kind == KindTemplate && merged[j].Kind != KindTemplate
	})
	return merged
}
