package tui

import (
	"math"

	"github.com/mmcdole/lensgrid/internal/domain"
)

// Each terminal column is one point wide and each row is two points tall:
// a row renders two pixel rows using the upper half block.
const (
	pointsPerColumn = 1.0
	pointsPerRow    = 2.0

	// ChromeHeight is the footer line below the grid
	ChromeHeight = 1

	// wheelStep is how far one wheel notch scrolls, in points
	wheelStep = 3 * pointsPerRow
)

// gridRows returns the terminal rows available to the grid
func (m Model) gridRows() int {
	return max(m.Height-ChromeHeight, 0)
}

// viewportSize converts the terminal size into grid points
func (m Model) viewportSize() domain.Size {
	return domain.Size{
		Width:  float64(m.Width) * pointsPerColumn,
		Height: float64(m.gridRows()) * pointsPerRow,
	}
}

// pointAt maps a terminal cell to a viewport point at the cell's centre
func pointAt(x, y int) domain.Point {
	return domain.Point{
		X: (float64(x) + 0.5) * pointsPerColumn,
		Y: (float64(y) + 0.5) * pointsPerRow,
	}
}

// scrollToReveal returns the offset that brings r and the spacing around it
// fully into view with the least movement
func scrollToReveal(r domain.Rect, spacing, offsetY, viewportHeight float64) float64 {
	top := math.Max(r.MinY()-spacing, 0)
	bottom := r.MaxY() + spacing
	switch {
	case top < offsetY:
		return top
	case bottom > offsetY+viewportHeight:
		return math.Min(bottom-viewportHeight, top)
	}
	return offsetY
}
