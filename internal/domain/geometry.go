package domain

import "math"

// Size is a width/height pair in layout points (or pixels for image targets)
type Size struct {
	Width  float64
	Height float64
}

// IsEmpty returns true if either dimension is non-positive
func (s Size) IsEmpty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Point is a position in layout points
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned rectangle with its origin at the top-left corner.
// Y grows downward, which is the scroll axis of the grid.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// RectFrom builds a rect from an origin and a size
func RectFrom(origin Point, size Size) Rect {
	return Rect{X: origin.X, Y: origin.Y, Width: size.Width, Height: size.Height}
}

func (r Rect) MinX() float64 { return r.X }
func (r Rect) MaxX() float64 { return r.X + r.Width }
func (r Rect) MinY() float64 { return r.Y }
func (r Rect) MaxY() float64 { return r.Y + r.Height }
func (r Rect) MidX() float64 { return r.X + r.Width/2 }
func (r Rect) MidY() float64 { return r.Y + r.Height/2 }

// Area returns width*height, or 0 for empty rects
func (r Rect) Area() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Width * r.Height
}

// IsEmpty returns true if the rect has no extent
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Inset shrinks the rect by dx on the left and right and dy on the top and bottom.
// Negative values grow it.
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{
		X:      r.X + dx,
		Y:      r.Y + dy,
		Width:  r.Width - 2*dx,
		Height: r.Height - 2*dy,
	}
}

// Intersects returns true if both rects are non-empty and overlap with positive area
func (r Rect) Intersects(o Rect) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}
	return r.MinX() < o.MaxX() && o.MinX() < r.MaxX() &&
		r.MinY() < o.MaxY() && o.MinY() < r.MaxY()
}

// Intersection returns the overlapping area, or the zero rect if none
func (r Rect) Intersection(o Rect) Rect {
	if !r.Intersects(o) {
		return Rect{}
	}
	x0 := math.Max(r.MinX(), o.MinX())
	y0 := math.Max(r.MinY(), o.MinY())
	x1 := math.Min(r.MaxX(), o.MaxX())
	y1 := math.Min(r.MaxY(), o.MaxY())
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Contains returns true if o lies entirely inside r
func (r Rect) Contains(o Rect) bool {
	return o.MinX() >= r.MinX() && o.MaxX() <= r.MaxX() &&
		o.MinY() >= r.MinY() && o.MaxY() <= r.MaxY()
}
