package layout

import (
	"math"

	"github.com/mmcdole/lensgrid/internal/domain"
)

// Grid is a square-tile flow layout with equal spacing between tiles and
// an inset of one spacing on every edge.
type Grid struct {
	Width        float64 // Viewport width in points
	Spacing      float64 // Gap between tiles and around the content
	Columns      int     // Tiles per row, at least 1
	Count        int     // Number of tiles
	PixelDensity float64 // Pixels per point for thumbnail targets
}

// ItemSide returns the side length of a tile in points
func (g Grid) ItemSide() float64 {
	cols := max(g.Columns, 1)
	available := g.Width - 2*g.Spacing - g.Spacing*float64(cols-1)
	if available <= 0 {
		return 0
	}
	return available / float64(cols)
}

// stride is the distance between the origins of adjacent tiles
func (g Grid) stride() float64 {
	return g.ItemSide() + g.Spacing
}

// Rows returns the number of rows needed for Count tiles
func (g Grid) Rows() int {
	cols := max(g.Columns, 1)
	if g.Count <= 0 {
		return 0
	}
	return (g.Count + cols - 1) / cols
}

// CellRect returns the rectangle of tile i
func (g Grid) CellRect(i int) domain.Rect {
	cols := max(g.Columns, 1)
	side := g.ItemSide()
	row, col := i/cols, i%cols
	return domain.Rect{
		X:      g.Spacing + float64(col)*g.stride(),
		Y:      g.Spacing + float64(row)*g.stride(),
		Width:  side,
		Height: side,
	}
}

// ContentHeight returns the total scrollable height including both insets
func (g Grid) ContentHeight() float64 {
	rows := g.Rows()
	if rows == 0 {
		return 2 * g.Spacing
	}
	return 2*g.Spacing + float64(rows)*g.ItemSide() + float64(rows-1)*g.Spacing
}

// IndexesIn returns the indexes of tiles whose rects intersect r, in order.
// Indexes are clamped to [0, Count), so rects above the content or past its end
// simply contribute fewer tiles.
func (g Grid) IndexesIn(r domain.Rect) []int {
	if r.IsEmpty() || g.Count <= 0 || g.ItemSide() <= 0 {
		return nil
	}
	cols := max(g.Columns, 1)
	stride := g.stride()

	firstRow := int(math.Floor((r.MinY() - g.Spacing) / stride))
	lastRow := int(math.Floor((r.MaxY() - g.Spacing) / stride))
	firstRow = max(firstRow, 0)
	lastRow = min(lastRow, g.Rows()-1)

	var out []int
	for row := firstRow; row <= lastRow; row++ {
		for col := 0; col < cols; col++ {
			i := row*cols + col
			if i >= g.Count {
				break
			}
			if g.CellRect(i).Intersects(r) {
				out = append(out, i)
			}
		}
	}
	return out
}

// ThumbnailSize returns the pixel size thumbnails should be requested at
func (g Grid) ThumbnailSize() domain.Size {
	density := g.PixelDensity
	if density <= 0 {
		density = 1
	}
	side := math.Round(g.ItemSide() * density)
	return domain.Size{Width: side, Height: side}
}

// MaxOffsetY returns the largest valid vertical scroll offset for a viewport height
func (g Grid) MaxOffsetY(viewportHeight float64) float64 {
	return math.Max(0, g.ContentHeight()-viewportHeight)
}
