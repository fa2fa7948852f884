// Package layout maps zoom scales to column counts and computes the
// rectangles of grid cells.
package layout

import "math"

const (
	// minPositiveScale stands in for non-positive scales so the column count stays finite.
	minPositiveScale = 1e-6

	// MaxColumns caps the column count for degenerate scales.
	MaxColumns = 1 << 16
)

// ColumnsForScale returns round(base/scale), never less than 1.
// Larger scales mean fewer, larger tiles, so the result is non-increasing in scale.
func ColumnsForScale(scale float64, base int) int {
	base = max(base, 1)
	if scale <= 0 || math.IsNaN(scale) {
		scale = minPositiveScale
	}
	cols := math.Round(float64(base) / scale)
	switch {
	case cols < 1:
		return 1
	case cols > MaxColumns:
		return MaxColumns
	}
	return int(cols)
}

// Snap rounds scale to the nearest value that yields a whole column count,
// base / round(base/scale). Snapping an already snapped scale returns it unchanged.
func Snap(scale float64, base int) float64 {
	base = max(base, 1)
	return float64(base) / float64(ColumnsForScale(scale, base))
}

// ClampScale limits scale to [lo, hi]
func ClampScale(scale, lo, hi float64) float64 {
	return math.Min(math.Max(scale, lo), hi)
}
