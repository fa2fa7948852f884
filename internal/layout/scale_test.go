package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnsForScale(t *testing.T) {
	tests := []struct {
		name  string
		scale float64
		base  int
		want  int
	}{
		{"identity", 1.0, 3, 3},
		{"zoomed in", 1.5, 3, 2},
		{"max zoom", 2.0, 3, 2},
		{"zoomed out", 0.5, 3, 6},
		{"just above half step", 1.21, 3, 2},
		{"just below half step", 1.19, 3, 3},
		{"huge scale clamps to one", 100, 3, 1},
		{"zero scale", 0, 3, MaxColumns},
		{"negative scale", -1, 3, MaxColumns},
		{"nan scale", math.NaN(), 3, MaxColumns},
		{"zero base", 1.0, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ColumnsForScale(tt.scale, tt.base))
		})
	}
}

func TestColumnsForScale_NonIncreasing(t *testing.T) {
	for _, base := range []int{1, 3, 4, 7} {
		prev := ColumnsForScale(0.5, base)
		for s := 0.5; s <= 2.0; s += 0.001 {
			cols := ColumnsForScale(s, base)
			require.GreaterOrEqual(t, cols, 1)
			require.LessOrEqual(t, cols, prev, "base %d scale %f", base, s)
			prev = cols
		}
	}
}

func TestSnap(t *testing.T) {
	assert.InDelta(t, 1.5, Snap(1.4, 3), 1e-9)
	assert.InDelta(t, 1.0, Snap(1.1, 3), 1e-9)
	assert.InDelta(t, 0.5, Snap(0.52, 3), 1e-9)
	assert.InDelta(t, 0.75, Snap(0.8, 3), 1e-9)
}

func TestSnap_Idempotent(t *testing.T) {
	for s := 0.5; s <= 2.0; s += 0.01 {
		once := Snap(s, 3)
		assert.Equal(t, once, Snap(once, 3), "scale %f", s)
		assert.Equal(t, ColumnsForScale(s, 3), ColumnsForScale(once, 3), "scale %f", s)
	}
}

func TestClampScale(t *testing.T) {
	assert.Equal(t, 0.5, ClampScale(0.1, 0.5, 2))
	assert.Equal(t, 2.0, ClampScale(5, 0.5, 2))
	assert.Equal(t, 1.3, ClampScale(1.3, 0.5, 2))
}
