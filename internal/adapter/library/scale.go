package library

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/mmcdole/lensgrid/internal/domain"
)

// Fill scales src to cover target and crops the overflow evenly from both
// sides. Fast quality uses bilinear approximation; high quality uses Catmull-Rom.
func Fill(src image.Image, target domain.Size, q domain.Quality) *image.RGBA {
	w := max(int(math.Round(target.Width)), 1)
	h := max(int(math.Round(target.Height)), 1)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	sb := src.Bounds()
	if sb.Empty() {
		return dst
	}

	scaler := draw.Interpolator(draw.CatmullRom)
	if q == domain.QualityFast {
		scaler = draw.ApproxBiLinear
	}
	scaler.Scale(dst, dst.Bounds(), src, cropToAspect(sb, w, h), draw.Src, nil)
	return dst
}

// cropToAspect returns the largest centred rect in b with the aspect ratio w:h
func cropToAspect(b image.Rectangle, w, h int) image.Rectangle {
	sw, sh := b.Dx(), b.Dy()
	// Compare sw/sh with w/h without dividing
	if sw*h > sh*w {
		cw := max(sh*w/h, 1)
		x0 := b.Min.X + (sw-cw)/2
		return image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	}
	ch := max(sw*h/w, 1)
	y0 := b.Min.Y + (sh-ch)/2
	return image.Rect(b.Min.X, y0, b.Max.X, y0+ch)
}
