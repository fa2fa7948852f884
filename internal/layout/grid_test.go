package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/lensgrid/internal/domain"
)

func testGrid() Grid {
	// 3 columns of 100pt tiles with 1pt spacing: 2 + 2 + 300
	return Grid{Width: 304, Spacing: 1, Columns: 3, Count: 10, PixelDensity: 2}
}

func TestGrid_ItemSide(t *testing.T) {
	g := testGrid()
	assert.InDelta(t, 100, g.ItemSide(), 1e-9)

	g.Columns = 1
	assert.InDelta(t, 302, g.ItemSide(), 1e-9)

	g.Width = 1
	assert.Zero(t, g.ItemSide())
}

func TestGrid_CellRect(t *testing.T) {
	g := testGrid()

	assert.Equal(t, domain.Rect{X: 1, Y: 1, Width: 100, Height: 100}, g.CellRect(0))
	assert.Equal(t, domain.Rect{X: 203, Y: 1, Width: 100, Height: 100}, g.CellRect(2))
	assert.Equal(t, domain.Rect{X: 1, Y: 102, Width: 100, Height: 100}, g.CellRect(3))
}

func TestGrid_RowsAndContentHeight(t *testing.T) {
	g := testGrid()
	assert.Equal(t, 4, g.Rows())
	assert.InDelta(t, 2+400+3, g.ContentHeight(), 1e-9)
	assert.InDelta(t, 405-200, g.MaxOffsetY(200), 1e-9)
	assert.Zero(t, g.MaxOffsetY(1000))

	g.Count = 0
	assert.Zero(t, g.Rows())
	assert.InDelta(t, 2, g.ContentHeight(), 1e-9)
}

func TestGrid_IndexesIn(t *testing.T) {
	g := testGrid()

	t.Run("first row", func(t *testing.T) {
		assert.Equal(t, []int{0, 1, 2}, g.IndexesIn(domain.Rect{X: 0, Y: 0, Width: 304, Height: 50}))
	})

	t.Run("straddles rows", func(t *testing.T) {
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, g.IndexesIn(domain.Rect{X: 0, Y: 90, Width: 304, Height: 20}))
	})

	t.Run("spacing gap only", func(t *testing.T) {
		assert.Empty(t, g.IndexesIn(domain.Rect{X: 0, Y: 101.2, Width: 304, Height: 0.5}))
	})

	t.Run("clamped past the end", func(t *testing.T) {
		assert.Equal(t, []int{9}, g.IndexesIn(domain.Rect{X: 0, Y: 310, Width: 304, Height: 1000}))
	})

	t.Run("above content", func(t *testing.T) {
		assert.Empty(t, g.IndexesIn(domain.Rect{X: 0, Y: -500, Width: 304, Height: 400}))
	})

	t.Run("partial column", func(t *testing.T) {
		assert.Equal(t, []int{1, 4}, g.IndexesIn(domain.Rect{X: 110, Y: 0, Width: 50, Height: 150}))
	})
}

func TestGrid_ThumbnailSize(t *testing.T) {
	g := testGrid()
	assert.Equal(t, domain.Size{Width: 200, Height: 200}, g.ThumbnailSize())

	g.PixelDensity = 0
	assert.Equal(t, domain.Size{Width: 100, Height: 100}, g.ThumbnailSize())
}

// A pinch from 1.0 to 1.4 drops to two columns, snaps to 1.5, and pinching
// back below 1.2 restores three columns.
func TestPinchScenario(t *testing.T) {
	const base = 3

	require.Equal(t, 3, ColumnsForScale(1.0, base))
	require.Equal(t, 2, ColumnsForScale(1.4, base))

	snapped := Snap(1.4, base)
	require.InDelta(t, 1.5, snapped, 1e-9)
	require.Equal(t, 2, ColumnsForScale(snapped, base))

	require.Equal(t, 3, ColumnsForScale(1.19, base))
	assert.InDelta(t, 1.0, Snap(1.19, base), 1e-9)
}
