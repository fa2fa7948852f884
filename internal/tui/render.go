package tui

import (
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/lensgrid/internal/cellload"
	"github.com/mmcdole/lensgrid/internal/domain"
	"github.com/mmcdole/lensgrid/internal/tui/styles"
)

// halfBlock draws the upper pixel in the foreground and the lower in the background
const halfBlock = "▀"

type rgb = [3]uint8

// canvas is a pixel buffer two pixels tall per terminal row
type canvas struct {
	w, h int
	px   []rgb
}

func newCanvas(w, rows int, bg rgb) *canvas {
	c := &canvas{w: max(w, 0), h: max(rows, 0) * 2}
	c.px = make([]rgb, c.w*c.h)
	for i := range c.px {
		c.px[i] = bg
	}
	return c
}

func (c *canvas) set(x, y int, col rgb) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.px[y*c.w+x] = col
}

func (c *canvas) at(x, y int) rgb {
	return c.px[y*c.w+x]
}

// paintTile fills r, given in viewport points, with the presentation.
// One pixel covers one point in each direction.
func (c *canvas) paintTile(r domain.Rect, p cellload.Presentation, alpha float64, selected bool) {
	x0, x1 := max(int(r.MinX()), 0), min(int(r.MaxX()+0.5), c.w)
	y0, y1 := max(int(r.MinY()), 0), min(int(r.MaxY()+0.5), c.h)
	if x0 >= x1 || y0 >= y1 {
		return
	}

	var src image.Image
	if p.Image != nil {
		src = p.Image.Pixels
	}

	for y := y0; y < y1; y++ {
		cy := float64(y) + 0.5
		if cy < r.MinY() || cy >= r.MaxY() {
			continue
		}
		for x := x0; x < x1; x++ {
			cx := float64(x) + 0.5
			if cx < r.MinX() || cx >= r.MaxX() {
				continue
			}
			if selected && onEdge(cx, cy, r) {
				c.set(x, y, styles.CursorRGB)
				continue
			}
			col := styles.PlaceholderRGB
			if src != nil {
				col = blend(col, sample(src, (cx-r.X)/r.Width, (cy-r.Y)/r.Height), alpha)
			}
			c.set(x, y, col)
		}
	}
}

// onEdge reports whether a pixel centre lies on the tile's one-point border
func onEdge(cx, cy float64, r domain.Rect) bool {
	return cx-r.MinX() < 1 || r.MaxX()-cx < 1 || cy-r.MinY() < 1 || r.MaxY()-cy < 1
}

// sample returns the nearest pixel at normalized coordinates u, v
func sample(img image.Image, u, v float64) rgb {
	b := img.Bounds()
	if b.Empty() {
		return styles.PlaceholderRGB
	}
	x := b.Min.X + min(int(u*float64(b.Dx())), b.Dx()-1)
	y := b.Min.Y + min(int(v*float64(b.Dy())), b.Dy()-1)
	r, g, bl, _ := img.At(x, y).RGBA()
	return rgb{uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8)}
}

// blend mixes from towards to by alpha in [0, 1]
func blend(from, to rgb, alpha float64) rgb {
	if alpha >= 1 {
		return to
	}
	if alpha <= 0 {
		return from
	}
	var out rgb
	for i := range out {
		out[i] = uint8(float64(from[i]) + (float64(to[i])-float64(from[i]))*alpha + 0.5)
	}
	return out
}

// fadeAlpha returns how far the presentation's cross-fade has progressed
func fadeAlpha(p cellload.Presentation, now time.Time) float64 {
	if p.Fade <= 0 || p.PresentedAt.IsZero() {
		return 1
	}
	elapsed := now.Sub(p.PresentedAt)
	if elapsed >= p.Fade {
		return 1
	}
	return max(float64(elapsed)/float64(p.Fade), 0)
}

func hex(c rgb) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", c[0], c[1], c[2]))
}

// String renders the canvas as half blocks, one styled run per colour pair
func (c *canvas) String() string {
	var sb strings.Builder
	for row := 0; row < c.h/2; row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		x := 0
		for x < c.w {
			top, bottom := c.at(x, row*2), c.at(x, row*2+1)
			run := 1
			for x+run < c.w && c.at(x+run, row*2) == top && c.at(x+run, row*2+1) == bottom {
				run++
			}
			sb.WriteString(lipgloss.NewStyle().
				Foreground(hex(top)).
				Background(hex(bottom)).
				Render(strings.Repeat(halfBlock, run)))
			x += run
		}
	}
	return sb.String()
}

// renderGrid paints every visible cell into a canvas the size of the grid area
func (m Model) renderGrid() string {
	c := newCanvas(m.Width, m.gridRows(), styles.BackgroundRGB)
	grid := m.Ctrl.Grid()
	off := m.Ctrl.Offset()
	now := m.now()

	for _, p := range m.Ctrl.VisibleCells() {
		if !p.Bound {
			continue
		}
		r := grid.CellRect(p.Index)
		r.X -= off.X
		r.Y -= off.Y
		c.paintTile(r, p, fadeAlpha(p, now), p.Index == m.Cursor)
	}
	return c.String()
}
