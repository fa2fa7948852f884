package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/lensgrid/internal/domain"
)

func TestDiff_Disjoint(t *testing.T) {
	prev := domain.Rect{X: 0, Y: 0, Width: 100, Height: 100}
	next := domain.Rect{X: 0, Y: 500, Width: 100, Height: 100}

	added, removed := Diff(prev, next)
	assert.Equal(t, []domain.Rect{next}, added)
	assert.Equal(t, []domain.Rect{prev}, removed)
}

func TestDiff_EmptyPrevious(t *testing.T) {
	next := domain.Rect{X: 0, Y: 0, Width: 100, Height: 100}

	added, removed := Diff(domain.Rect{}, next)
	assert.Equal(t, []domain.Rect{next}, added)
	assert.Empty(t, removed)
}

func TestDiff_Identical(t *testing.T) {
	r := domain.Rect{X: 0, Y: 50, Width: 100, Height: 100}

	added, removed := Diff(r, r)
	assert.Empty(t, added)
	assert.Empty(t, removed)
}

func TestDiff_ScrollDown(t *testing.T) {
	prev := domain.Rect{X: 0, Y: 0, Width: 100, Height: 300}
	next := domain.Rect{X: 0, Y: 100, Width: 100, Height: 300}

	added, removed := Diff(prev, next)
	assert.Equal(t, []domain.Rect{{X: 0, Y: 300, Width: 100, Height: 100}}, added)
	assert.Equal(t, []domain.Rect{{X: 0, Y: 0, Width: 100, Height: 100}}, removed)
}

func TestDiff_ScrollUp(t *testing.T) {
	prev := domain.Rect{X: 0, Y: 100, Width: 100, Height: 300}
	next := domain.Rect{X: 0, Y: 0, Width: 100, Height: 300}

	added, removed := Diff(prev, next)
	assert.Equal(t, []domain.Rect{{X: 0, Y: 0, Width: 100, Height: 100}}, added)
	assert.Equal(t, []domain.Rect{{X: 0, Y: 300, Width: 100, Height: 100}}, removed)
}

func TestDiff_Nested(t *testing.T) {
	outer := domain.Rect{X: 0, Y: 0, Width: 100, Height: 400}
	inner := domain.Rect{X: 0, Y: 100, Width: 100, Height: 150}

	t.Run("grow", func(t *testing.T) {
		added, removed := Diff(inner, outer)
		assert.Empty(t, removed)
		require.Len(t, added, 2)
		assert.InDelta(t, outer.Area()-inner.Area(), Area(added), 1e-9)
	})

	t.Run("shrink", func(t *testing.T) {
		added, removed := Diff(outer, inner)
		assert.Empty(t, added)
		require.Len(t, removed, 2)
		assert.InDelta(t, outer.Area()-inner.Area(), Area(removed), 1e-9)
	})
}

func TestDiff_StripsAreDisjoint(t *testing.T) {
	prev := domain.Rect{X: 0, Y: 0, Width: 100, Height: 400}
	for _, dy := range []float64{-350, -120, -1, 1, 60, 399} {
		next := domain.Rect{X: 0, Y: dy, Width: 100, Height: 400}
		added, removed := Diff(prev, next)

		for _, a := range added {
			assert.False(t, a.Intersects(prev), "added strip overlaps prev at dy=%v", dy)
			assert.True(t, next.Contains(a))
		}
		for _, r := range removed {
			assert.False(t, r.Intersects(next), "removed strip overlaps next at dy=%v", dy)
			assert.True(t, prev.Contains(r))
		}
		assert.InDelta(t, next.Area()-next.Intersection(prev).Area(), Area(added), 1e-9)
		assert.InDelta(t, prev.Area()-prev.Intersection(next).Area(), Area(removed), 1e-9)
	}
}
