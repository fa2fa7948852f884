package prefetch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/lensgrid/internal/domain"
	"github.com/mmcdole/lensgrid/internal/gridtest"
	"github.com/mmcdole/lensgrid/internal/layout"
)

// 304pt wide with 1pt spacing gives three 100pt columns at scale 1
var viewport = domain.Size{Width: 304, Height: 303}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Spacing = 1
	return cfg
}

type fixture struct {
	store *gridtest.Store
	sched *gridtest.Scheduler
	ctrl  *Controller
}

func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	f := &fixture{
		store: gridtest.NewStore(gridtest.Assets(n)),
		sched: gridtest.NewScheduler(),
	}
	f.ctrl = New(f.store, f.sched, testConfig(), nil, nil)
	t.Cleanup(f.ctrl.Close)
	require.NoError(t, f.ctrl.Load(context.Background()))
	return f
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// awaitFetch waits until the latest fetch for id at q satisfies ok
func (f *fixture) awaitFetch(t *testing.T, id domain.AssetID, q domain.Quality, ok func(*gridtest.Fetch) bool) *gridtest.Fetch {
	t.Helper()
	var got *gridtest.Fetch
	require.Eventually(t, func() bool {
		got = f.store.FindFetch(id, q)
		return got != nil && (ok == nil || ok(got))
	}, waitFor, tick)
	return got
}

func ids(from, to int) []domain.AssetID {
	var out []domain.AssetID
	for i := from; i <= to; i++ {
		out = append(out, domain.AssetID(fmt.Sprintf("asset-%d", i)))
	}
	return out
}

func visibleIndexes(c *Controller) []int {
	var out []int
	for _, p := range c.VisibleCells() {
		out = append(out, p.Index)
	}
	return out
}

func TestController_InitialLayout(t *testing.T) {
	f := newFixture(t, 1000)
	f.ctrl.OnLayoutChanged(viewport, domain.Point{})

	assert.Equal(t, StateUpdated, f.ctrl.State())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8}, visibleIndexes(f.ctrl))
	assert.Equal(t, 9, f.ctrl.Tracker().Len())

	started := f.store.Started()
	require.Len(t, started, 1)
	assert.Equal(t, ids(0, 14), started[0].Assets)
	assert.Equal(t, domain.Size{Width: 200, Height: 200}, started[0].Target)
	assert.Empty(t, f.store.Stopped())
}

// Jumping from the top of a 1000 asset grid to the middle replaces the whole
// window: everything old is stopped and only the new window is started.
func TestController_JumpReplacesWindow(t *testing.T) {
	f := newFixture(t, 1000)
	f.ctrl.OnLayoutChanged(viewport, domain.Point{})
	oldFetch := f.awaitFetch(t, "asset-0", domain.QualityHigh, nil)
	f.store.ResetHints()

	f.ctrl.OnLayoutChanged(viewport, domain.Point{Y: 20000})

	started := f.store.Started()
	stopped := f.store.Stopped()
	require.Len(t, started, 1)
	require.Len(t, stopped, 1)
	assert.Equal(t, ids(588, 608), started[0].Assets)
	assert.Equal(t, ids(0, 14), stopped[0].Assets)

	assert.Equal(t, []int{594, 595, 596, 597, 598, 599, 600, 601, 602, 603, 604, 605}, visibleIndexes(f.ctrl))
	assert.Equal(t, 12, f.ctrl.Tracker().Len())
	assert.True(t, oldFetch.Cancelled())
}

func TestController_ScrollBackStopsTrailingRows(t *testing.T) {
	f := newFixture(t, 1000)
	f.ctrl.OnLayoutChanged(viewport, domain.Point{Y: 20000})
	f.store.ResetHints()

	f.ctrl.OnLayoutChanged(viewport, domain.Point{Y: 19700})

	started := f.store.Started()
	stopped := f.store.Stopped()
	require.Len(t, started, 1)
	require.Len(t, stopped, 1)
	assert.Equal(t, ids(579, 587), started[0].Assets)
	assert.Equal(t, ids(600, 608), stopped[0].Assets)

	window := f.ctrl.PreheatWindow()
	grid := f.ctrl.Grid()
	for _, id := range stopped[0].Assets {
		var i int
		_, err := fmt.Sscanf(string(id), "asset-%d", &i)
		require.NoError(t, err)
		assert.False(t, grid.CellRect(i).Intersects(window), "stopped %s is still in the window", id)
	}
}

func TestController_GuardSkipsSmallScrolls(t *testing.T) {
	f := newFixture(t, 1000)
	f.ctrl.OnLayoutChanged(viewport, domain.Point{})
	window := f.ctrl.PreheatWindow()
	f.store.ResetHints()

	// A third of 303 is 101
	f.ctrl.ScrollBy(50)
	assert.Equal(t, StateIdle, f.ctrl.State())
	assert.Equal(t, window, f.ctrl.PreheatWindow())
	assert.Empty(t, f.store.Started())

	f.ctrl.ScrollBy(50)
	assert.Equal(t, StateIdle, f.ctrl.State())

	f.ctrl.ScrollBy(50)
	assert.Equal(t, StateUpdated, f.ctrl.State())
	started := f.store.Started()
	require.Len(t, started, 1)
	assert.Equal(t, ids(15, 17), started[0].Assets)
	assert.Empty(t, f.store.Stopped())
}

func TestController_OffsetIsClamped(t *testing.T) {
	f := newFixture(t, 10)
	f.ctrl.OnLayoutChanged(viewport, domain.Point{Y: -40})
	assert.Zero(t, f.ctrl.Offset().Y)

	f.ctrl.OnLayoutChanged(viewport, domain.Point{Y: 1e9})
	assert.InDelta(t, f.ctrl.Grid().MaxOffsetY(viewport.Height), f.ctrl.Offset().Y, 1e-9)
}

func TestController_PinchAndSettle(t *testing.T) {
	f := newFixture(t, 1000)
	f.ctrl.OnLayoutChanged(viewport, domain.Point{})
	f.store.ResetHints()

	focal := domain.Point{X: 152, Y: 150}
	before := (f.ctrl.Offset().Y + focal.Y) / f.ctrl.Grid().ContentHeight()

	f.ctrl.OnPinchUpdate(1.1, focal)
	assert.Equal(t, 3, f.ctrl.Grid().Columns)
	f.ctrl.OnPinchUpdate(1.3, focal)
	assert.Equal(t, 2, f.ctrl.Grid().Columns)
	f.ctrl.OnPinchUpdate(1.4, focal)
	assert.Equal(t, 2, f.ctrl.Grid().Columns)
	assert.InDelta(t, 1.4, f.ctrl.Scale().Current, 1e-9)
	after := (f.ctrl.Offset().Y + focal.Y) / f.ctrl.Grid().ContentHeight()
	assert.InDelta(t, before, after, 1e-9)

	f.ctrl.OnPinchEnd(focal)
	assert.InDelta(t, 1.5, f.ctrl.Scale().Current, 1e-9)
	assert.Equal(t, 2, f.ctrl.Scale().PreviousColumns)
	assert.True(t, f.ctrl.Settling())

	// Scrolling while settling does not touch the cache window
	f.ctrl.ScrollBy(400)
	assert.Empty(t, f.store.Started())
	assert.Empty(t, f.store.Stopped())
	assert.Zero(t, f.store.StopAllCalls())

	f.sched.Advance(299 * time.Millisecond)
	assert.True(t, f.ctrl.Settling())
	assert.Empty(t, f.store.Started())

	f.sched.Advance(time.Millisecond)
	assert.False(t, f.ctrl.Settling())
	assert.Equal(t, 1, f.store.StopAllCalls())

	thumb := domain.Size{Width: 301, Height: 301}
	started := f.store.Started()
	require.Len(t, started, 1)
	assert.Equal(t, thumb, started[0].Target)

	for _, p := range f.ctrl.VisibleCells() {
		f.awaitFetch(t, p.Asset.ID, domain.QualityHigh, func(fetch *gridtest.Fetch) bool {
			return fetch.Target == thumb
		})
	}

	scale := f.ctrl.Scale()
	assert.Equal(t, layout.ColumnsForScale(scale.Current, 3), scale.PreviousColumns)

	// Back across 1.2 to three columns
	f.ctrl.OnPinchUpdate(1.19/1.5, focal)
	assert.Equal(t, 3, f.ctrl.Grid().Columns)
	f.ctrl.OnPinchEnd(focal)
	assert.InDelta(t, 1.0, f.ctrl.Scale().Current, 1e-9)
	assert.Equal(t, 3, f.ctrl.Scale().PreviousColumns)
}

func TestController_PinchLeavesCacheWindowAlone(t *testing.T) {
	f := newFixture(t, 1000)
	f.ctrl.OnLayoutChanged(viewport, domain.Point{})
	window := f.ctrl.PreheatWindow()
	f.store.ResetHints()

	for _, s := range []float64{0.9, 0.8, 0.6, 0.5} {
		f.ctrl.OnPinchUpdate(s, domain.Point{})
	}
	assert.Equal(t, 6, f.ctrl.Grid().Columns)
	assert.Equal(t, window, f.ctrl.PreheatWindow())
	assert.Empty(t, f.store.Started())
	assert.Empty(t, f.store.Stopped())
	assert.NotEmpty(t, f.ctrl.VisibleCells())
}

func TestController_ScaleIsClamped(t *testing.T) {
	f := newFixture(t, 100)
	f.ctrl.OnLayoutChanged(viewport, domain.Point{})

	f.ctrl.OnPinchUpdate(10, domain.Point{})
	assert.InDelta(t, 2.0, f.ctrl.Scale().Current, 1e-9)
	f.ctrl.OnPinchUpdate(0.01, domain.Point{})
	assert.InDelta(t, 0.5, f.ctrl.Scale().Current, 1e-9)
}

func TestController_NewPinchCancelsPendingSettle(t *testing.T) {
	f := newFixture(t, 100)
	f.ctrl.OnLayoutChanged(viewport, domain.Point{})
	f.store.ResetHints()

	f.ctrl.OnPinchUpdate(1.4, domain.Point{})
	f.ctrl.OnPinchEnd(domain.Point{})
	f.ctrl.OnPinchUpdate(1.1, domain.Point{})

	f.sched.Advance(time.Second)
	assert.True(t, f.ctrl.Pinching())
	assert.False(t, f.ctrl.Settling())
	assert.Zero(t, f.store.StopAllCalls())
	assert.Empty(t, f.store.Started())
}

func TestController_Teardown(t *testing.T) {
	f := newFixture(t, 1000)
	f.ctrl.OnLayoutChanged(viewport, domain.Point{})
	require.Eventually(t, func() bool { return len(f.store.Fetches()) == 18 }, waitFor, tick)
	fetches := f.store.Fetches()

	f.ctrl.Teardown()

	assert.Equal(t, 0, f.ctrl.Tracker().Len())
	assert.Equal(t, 1, f.store.StopAllCalls())
	assert.Empty(t, f.ctrl.VisibleCells())
	assert.True(t, f.ctrl.PreheatWindow().IsEmpty())
	assert.Equal(t, StateIdle, f.ctrl.State())
	for _, fetch := range fetches {
		assert.True(t, fetch.Cancelled())
	}
}

func TestController_CompletionReachesVisibleCell(t *testing.T) {
	f := newFixture(t, 9)
	presented := make(map[int]int)
	f.ctrl.OnPresent = func(index int) { presented[index]++ }
	f.ctrl.OnLayoutChanged(viewport, domain.Point{})

	fetch := f.awaitFetch(t, "asset-4", domain.QualityFast, nil)
	f.store.Complete(fetch, gridtest.Image("asset-4", domain.QualityFast), nil)

	require.Eventually(t, func() bool { return f.sched.Pending() > 0 }, waitFor, tick)
	f.sched.Drain()

	assert.Equal(t, 1, presented[4])
	for _, p := range f.ctrl.VisibleCells() {
		if p.Index == 4 {
			require.NotNil(t, p.Image)
			assert.Equal(t, domain.AssetID("asset-4"), p.Image.AssetID)
		}
	}
}

func TestController_Load(t *testing.T) {
	t.Run("not readable", func(t *testing.T) {
		for _, status := range []domain.AuthorizationStatus{
			domain.AuthorizationNotDetermined,
			domain.AuthorizationDenied,
			domain.AuthorizationRestricted,
		} {
			store := gridtest.NewStore(gridtest.Assets(5))
			store.SetAuthorization(status)
			c := New(store, gridtest.NewScheduler(), testConfig(), nil, nil)

			require.NoError(t, c.Load(context.Background()), status.String())
			assert.Empty(t, c.Assets())
			c.Close()
		}
	})

	t.Run("limited", func(t *testing.T) {
		store := gridtest.NewStore(gridtest.Assets(5))
		store.SetAuthorization(domain.AuthorizationLimited)
		c := New(store, gridtest.NewScheduler(), testConfig(), nil, nil)
		defer c.Close()

		require.NoError(t, c.Load(context.Background()))
		assert.Len(t, c.Assets(), 5)
	})

	t.Run("list error", func(t *testing.T) {
		store := gridtest.NewStore(nil)
		store.SetListError(domain.ErrStoreClosed)
		c := New(store, gridtest.NewScheduler(), testConfig(), nil, nil)
		defer c.Close()

		err := c.Load(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrStoreClosed))
	})
}

func TestController_UpdateAssets(t *testing.T) {
	f := newFixture(t, 1000)
	f.ctrl.OnLayoutChanged(viewport, domain.Point{Y: 5000})
	f.store.ResetHints()

	f.ctrl.UpdateAssets(gridtest.Assets(900))
	assert.Equal(t, 1, f.store.StopAllCalls())
	assert.InDelta(t, 5000, f.ctrl.Offset().Y, 1e-9)
	assert.Len(t, f.store.Started(), 1)

	f.ctrl.SetAssets(gridtest.Assets(20))
	assert.Zero(t, f.ctrl.Offset().Y)
	assert.Equal(t, 20, f.ctrl.Grid().Count)
}

func TestController_PrefetchIndexes(t *testing.T) {
	f := newFixture(t, 50)
	f.ctrl.OnLayoutChanged(viewport, domain.Point{})
	f.store.ResetHints()

	f.ctrl.PrefetchIndexes([]int{30, 31, 99})
	f.ctrl.CancelPrefetchIndexes([]int{31})
	f.ctrl.PrefetchIndexes([]int{-1, 500})

	started := f.store.Started()
	require.Len(t, started, 1)
	assert.Equal(t, ids(30, 31), started[0].Assets)
	stopped := f.store.Stopped()
	require.Len(t, stopped, 1)
	assert.Equal(t, ids(31, 31), stopped[0].Assets)
}

func TestController_Select(t *testing.T) {
	f := newFixture(t, 10)
	f.ctrl.OnLayoutChanged(viewport, domain.Point{})

	var got []domain.AssetID
	f.ctrl.OnSelect = func(a domain.Asset) { got = append(got, a.ID) }

	f.ctrl.Select(f.ctrl.IndexAt(domain.Point{X: 150, Y: 150}))
	f.ctrl.Select(-1)
	f.ctrl.Select(10)

	assert.Equal(t, []domain.AssetID{"asset-4"}, got)
}
