// Package prefetch drives the tile grid: it keeps the visible cells bound,
// asks the asset store to warm thumbnails around the viewport and handles
// pinch zooming between column counts.
package prefetch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/mmcdole/lensgrid/internal/cellload"
	"github.com/mmcdole/lensgrid/internal/domain"
	"github.com/mmcdole/lensgrid/internal/layout"
	"github.com/mmcdole/lensgrid/internal/metrics"
	"github.com/mmcdole/lensgrid/internal/region"
	"github.com/mmcdole/lensgrid/internal/tracker"
)

// State is where the controller is in its recompute cycle
type State int

const (
	StateIdle      State = iota // No recompute ran, or the guard skipped it
	StateComputing              // Recompute in progress
	StateUpdated                // Preheat window replaced
)

// String returns a label for the state
func (s State) String() string {
	switch s {
	case StateComputing:
		return "computing"
	case StateUpdated:
		return "updated"
	default:
		return "idle"
	}
}

// Config holds the grid tuning knobs
type Config struct {
	BaseColumns       int           // Columns at scale 1.0
	MinScale          float64       // Most zoomed out
	MaxScale          float64       // Most zoomed in
	Spacing           float64       // Gap between tiles in points
	PixelDensity      float64       // Pixels per point for thumbnail targets
	PreheatFactor     float64       // Preheat expansion as a fraction of the viewport
	ThresholdFraction float64       // Minimum window movement, as a fraction of viewport height
	SettleDelay       time.Duration // Quiet period after a pinch ends
	LowFiSize         domain.Size   // Target for the fast pass
	Crossfade         time.Duration // Fade for the high-fidelity image
}

// DefaultConfig returns the stock grid settings
func DefaultConfig() Config {
	return Config{
		BaseColumns:       3,
		MinScale:          0.5,
		MaxScale:          2.0,
		Spacing:           0.5,
		PixelDensity:      2,
		PreheatFactor:     0.5,
		ThresholdFraction: 1.0 / 3.0,
		SettleDelay:       300 * time.Millisecond,
		LowFiSize:         domain.Size{Width: cellload.DefaultLowFiSide, Height: cellload.DefaultLowFiSide},
		Crossfade:         cellload.DefaultCrossfade,
	}
}

// withDefaults fills zero fields from DefaultConfig
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BaseColumns <= 0 {
		c.BaseColumns = d.BaseColumns
	}
	if c.MinScale <= 0 {
		c.MinScale = d.MinScale
	}
	if c.MaxScale < c.MinScale {
		c.MaxScale = max(d.MaxScale, c.MinScale)
	}
	if c.Spacing < 0 {
		c.Spacing = 0
	}
	if c.PixelDensity <= 0 {
		c.PixelDensity = d.PixelDensity
	}
	if c.PreheatFactor < 0 {
		c.PreheatFactor = 0
	}
	if c.ThresholdFraction < 0 {
		c.ThresholdFraction = 0
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	return c
}

// ScaleState is the zoom level and the column count it last settled on
type ScaleState struct {
	Current         float64
	PreviousColumns int
}

// Controller owns the grid layout, the visible cells and the preheat window.
// Every method must be called from the goroutine that runs the Scheduler.
type Controller struct {
	store   domain.AssetStore
	sched   cellload.Scheduler
	tracker *tracker.Tracker
	loader  *cellload.Loader
	cfg     Config
	logger  *slog.Logger
	metrics metrics.Recorder

	assets   []domain.Asset
	grid     layout.Grid
	viewport domain.Size
	offset   domain.Point
	scale    ScaleState

	state      State
	preheat    domain.Rect
	cachedSize domain.Size

	cells map[int]*cellload.Cell
	free  []*cellload.Cell

	pinching   bool
	pinchStart float64
	settling   bool
	settleGen  uint64

	// OnSelect is called when the host selects a tile
	OnSelect func(domain.Asset)
	// OnPresent is called after a visible cell's image changes
	OnPresent func(index int)
}

// New creates a controller for store. Completions and settle timers run on sched.
func New(store domain.AssetStore, sched cellload.Scheduler, cfg Config, logger *slog.Logger, rec metrics.Recorder) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	rec = metrics.OrNop(rec)

	t := tracker.New(logger)
	t.OnChange(rec.SetTrackedRequests)

	c := &Controller{
		store:   store,
		sched:   sched,
		tracker: t,
		cfg:     cfg,
		logger:  logger,
		metrics: rec,
		cells:   make(map[int]*cellload.Cell),
	}
	c.loader = cellload.NewLoader(store, t, sched, cellload.Config{
		LowFiSize: cfg.LowFiSize,
		Crossfade: cfg.Crossfade,
	}, logger, rec)
	c.loader.OnPresent = func(index int) {
		if c.OnPresent != nil {
			c.OnPresent(index)
		}
	}

	columns := layout.ColumnsForScale(1, cfg.BaseColumns)
	c.scale = ScaleState{Current: 1, PreviousColumns: columns}
	c.grid = layout.Grid{
		Spacing:      cfg.Spacing,
		Columns:      columns,
		PixelDensity: cfg.PixelDensity,
	}
	return c
}

// ReadAssets queries authorization and lists the store's assets. A status
// that does not allow reading yields an empty list without an error. It may
// be called from any goroutine.
func ReadAssets(ctx context.Context, store domain.AssetStore) ([]domain.Asset, domain.AuthorizationStatus, error) {
	status := store.Authorization(ctx)
	if !status.CanRead() {
		return nil, status, nil
	}

	assets, err := store.ListAssets(ctx)
	if err != nil {
		return nil, status, fmt.Errorf("failed to list assets: %w", err)
	}
	return assets, status, nil
}

// Load reads the asset list and shows it
func (c *Controller) Load(ctx context.Context) error {
	assets, status, err := ReadAssets(ctx, c.store)
	if err != nil {
		return err
	}
	c.logger.Info("assets loaded", "count", len(assets), "status", status.String())
	c.SetAssets(assets)
	return nil
}

// SetAssets replaces the asset list and scrolls back to the top
func (c *Controller) SetAssets(assets []domain.Asset) {
	c.replaceAssets(assets, true)
}

// UpdateAssets replaces the asset list keeping the scroll position where possible
func (c *Controller) UpdateAssets(assets []domain.Asset) {
	c.replaceAssets(assets, false)
}

func (c *Controller) replaceAssets(assets []domain.Asset, resetOffset bool) {
	c.unbindAll()
	if !c.preheat.IsEmpty() {
		c.stopCachingAll()
	}
	c.preheat = domain.Rect{}

	c.assets = assets
	c.grid.Count = len(assets)
	if resetOffset {
		c.offset = domain.Point{}
	}
	c.refresh(true)
}

// Assets returns the current asset list
func (c *Controller) Assets() []domain.Asset {
	return c.assets
}

// OnLayoutChanged handles a scroll or bounds change
func (c *Controller) OnLayoutChanged(viewport domain.Size, offset domain.Point) {
	c.viewport = viewport
	sizeChanged := c.relayout(c.grid.Columns)
	c.offset = offset
	c.refresh(sizeChanged)
}

// ScrollBy moves the viewport vertically by dy points
func (c *Controller) ScrollBy(dy float64) {
	c.OnLayoutChanged(c.viewport, domain.Point{X: c.offset.X, Y: c.offset.Y + dy})
}

// refresh clamps the offset, syncs the visible cells and, outside of a pinch
// or settle, recomputes the cache window.
func (c *Controller) refresh(force bool) {
	c.offset = c.clampOffset(c.offset)
	if c.pinching || c.settling {
		c.syncVisible()
		return
	}
	if force {
		c.invalidateCache()
		c.ReloadVisible()
	}
	c.syncVisible()
	c.updateCachedAssets(force)
}

// OnPinchUpdate applies a pinch frame. gestureScale is the cumulative scale
// since the pinch began; focal is the pinch centre in viewport coordinates.
func (c *Controller) OnPinchUpdate(gestureScale float64, focal domain.Point) {
	if !c.pinching {
		c.pinching = true
		c.pinchStart = c.scale.Current
		// A new pinch abandons any pending settle
		c.settleGen++
		c.settling = false
	}
	if gestureScale <= 0 || math.IsNaN(gestureScale) {
		return
	}

	c.scale.Current = layout.ClampScale(c.pinchStart*gestureScale, c.cfg.MinScale, c.cfg.MaxScale)
	columns := layout.ColumnsForScale(c.scale.Current, c.cfg.BaseColumns)
	if columns != c.grid.Columns {
		c.relayoutAround(columns, focal)
	}
	c.refresh(false)
}

// OnPinchEnd snaps the scale to a whole column count and starts settling.
// When the settle delay elapses the visible cells reload and the cache window
// is recomputed.
func (c *Controller) OnPinchEnd(focal domain.Point) {
	if !c.pinching {
		return
	}
	c.pinching = false

	c.scale.Current = layout.Snap(c.scale.Current, c.cfg.BaseColumns)
	columns := layout.ColumnsForScale(c.scale.Current, c.cfg.BaseColumns)
	if columns != c.grid.Columns {
		c.relayoutAround(columns, focal)
	}
	c.scale.PreviousColumns = columns
	c.offset = c.clampOffset(c.offset)
	c.syncVisible()

	c.settling = true
	c.settleGen++
	gen := c.settleGen
	c.logger.Debug("pinch ended", "scale", c.scale.Current, "columns", columns)

	c.sched.PostAfter(c.cfg.SettleDelay, func() {
		if gen != c.settleGen {
			return
		}
		c.settling = false
		c.settle()
	})
}

// settle reloads everything at the settled layout
func (c *Controller) settle() {
	c.invalidateCache()
	c.ReloadVisible()
	c.syncVisible()
	c.updateCachedAssets(true)
}

// invalidateCache drops caching requested at a stale thumbnail size
func (c *Controller) invalidateCache() {
	if c.cachedSize.IsEmpty() || c.cachedSize == c.grid.ThumbnailSize() {
		return
	}
	c.stopCachingAll()
	c.preheat = domain.Rect{}
}

// relayout updates the grid for the viewport width and a column count and
// reports whether the thumbnail size changed.
func (c *Controller) relayout(columns int) bool {
	before := c.grid.ThumbnailSize()
	c.grid.Width = c.viewport.Width
	if columns != c.grid.Columns {
		c.grid.Columns = columns
		c.metrics.ColumnsChanged(columns)
	}
	return c.grid.ThumbnailSize() != before
}

// relayoutAround changes the column count keeping the content under focal in place
func (c *Controller) relayoutAround(columns int, focal domain.Point) {
	anchor := c.offset.Y + focal.Y
	oldHeight := c.grid.ContentHeight()
	c.relayout(columns)
	if oldHeight > 0 {
		c.offset.Y = anchor*c.grid.ContentHeight()/oldHeight - focal.Y
	}
}

func (c *Controller) clampOffset(p domain.Point) domain.Point {
	maxY := c.grid.MaxOffsetY(c.viewport.Height)
	y := p.Y
	if math.IsNaN(y) || y < 0 {
		y = 0
	}
	return domain.Point{X: 0, Y: math.Min(y, maxY)}
}

// VisibleRect returns the viewport in content coordinates
func (c *Controller) VisibleRect() domain.Rect {
	return domain.RectFrom(c.offset, c.viewport)
}

// syncVisible binds cells entering the viewport and unbinds those leaving it
func (c *Controller) syncVisible() {
	if c.viewport.IsEmpty() {
		c.unbindAll()
		return
	}

	want := make(map[int]struct{})
	for _, i := range c.grid.IndexesIn(c.VisibleRect()) {
		want[i] = struct{}{}
	}
	for i, cell := range c.cells {
		if _, ok := want[i]; !ok {
			c.release(i, cell)
		}
	}
	for i := range want {
		if _, ok := c.cells[i]; !ok {
			c.BindCell(i, c.assets[i])
		}
	}
}

// BindCell binds the slot for index to asset and starts its two-phase load
func (c *Controller) BindCell(index int, asset domain.Asset) *cellload.Cell {
	cell, ok := c.cells[index]
	if !ok {
		cell = c.take()
		c.cells[index] = cell
	}
	c.loader.Bind(cell, index, asset, c.grid.ThumbnailSize())
	return cell
}

// ReloadVisible rebinds every visible cell at the current thumbnail size
func (c *Controller) ReloadVisible() {
	for _, i := range c.boundIndexes() {
		if i < len(c.assets) {
			c.BindCell(i, c.assets[i])
		}
	}
}

// VisibleCells returns the presentation of every bound cell in index order
func (c *Controller) VisibleCells() []cellload.Presentation {
	out := make([]cellload.Presentation, 0, len(c.cells))
	for _, i := range c.boundIndexes() {
		out = append(out, c.cells[i].Snapshot())
	}
	return out
}

func (c *Controller) boundIndexes() []int {
	idx := make([]int, 0, len(c.cells))
	for i := range c.cells {
		idx = append(idx, i)
	}
	slices.Sort(idx)
	return idx
}

func (c *Controller) take() *cellload.Cell {
	if n := len(c.free); n > 0 {
		cell := c.free[n-1]
		c.free = c.free[:n-1]
		return cell
	}
	return cellload.NewCell()
}

func (c *Controller) release(index int, cell *cellload.Cell) {
	c.loader.Unbind(cell)
	delete(c.cells, index)
	c.free = append(c.free, cell)
}

func (c *Controller) unbindAll() {
	for i, cell := range c.cells {
		c.release(i, cell)
	}
}

// updateCachedAssets moves the preheat window. Unless forced, it only runs when
// the window centre has moved far enough along the scroll axis.
func (c *Controller) updateCachedAssets(force bool) {
	c.state = StateComputing
	if c.viewport.IsEmpty() || len(c.assets) == 0 {
		c.state = StateIdle
		return
	}

	visible := c.VisibleRect()
	next := visible.Inset(-c.cfg.PreheatFactor*visible.Width, -c.cfg.PreheatFactor*visible.Height)

	if !force && !c.preheat.IsEmpty() {
		delta := math.Abs(next.MidY() - c.preheat.MidY())
		if delta <= c.viewport.Height*c.cfg.ThresholdFraction {
			c.state = StateIdle
			return
		}
	}

	prev := c.preheat
	added, removed := region.Diff(prev, next)

	// A tile straddling a strip edge can sit in both windows; keep caching it
	addedAssets := c.assetsIn(added, prev)
	removedAssets := c.assetsIn(removed, next)

	size := c.grid.ThumbnailSize()
	if len(addedAssets) > 0 {
		c.store.StartCaching(addedAssets, size)
		c.metrics.CachingHint(metrics.HintStart, len(addedAssets))
	}
	if len(removedAssets) > 0 {
		c.store.StopCaching(removedAssets, size)
		c.metrics.CachingHint(metrics.HintStop, len(removedAssets))
	}

	c.preheat = next
	c.cachedSize = size
	c.state = StateUpdated
	c.metrics.PreheatRecomputed()
	c.logger.Debug("preheat window updated",
		"added", len(addedAssets), "removed", len(removedAssets),
		"minY", next.MinY(), "maxY", next.MaxY())
}

// assetsIn resolves rects to their assets, deduplicated and in index order,
// skipping tiles that intersect exclude
func (c *Controller) assetsIn(rects []domain.Rect, exclude domain.Rect) []domain.Asset {
	seen := make(map[int]struct{})
	var idx []int
	for _, r := range rects {
		for _, i := range c.grid.IndexesIn(r) {
			if _, ok := seen[i]; ok {
				continue
			}
			seen[i] = struct{}{}
			if c.grid.CellRect(i).Intersects(exclude) {
				continue
			}
			idx = append(idx, i)
		}
	}
	slices.Sort(idx)
	return c.assetsAt(idx)
}

func (c *Controller) assetsAt(indexes []int) []domain.Asset {
	out := make([]domain.Asset, 0, len(indexes))
	for _, i := range indexes {
		if i >= 0 && i < len(c.assets) {
			out = append(out, c.assets[i])
		}
	}
	return out
}

func (c *Controller) stopCachingAll() {
	c.store.StopCachingAll()
	c.metrics.CachingHint(metrics.HintStopAll, 0)
}

// PrefetchIndexes asks the store to warm specific tiles ahead of display
func (c *Controller) PrefetchIndexes(indexes []int) {
	assets := c.assetsAt(indexes)
	if len(assets) == 0 {
		return
	}
	c.store.StartCaching(assets, c.grid.ThumbnailSize())
	c.metrics.CachingHint(metrics.HintStart, len(assets))
}

// CancelPrefetchIndexes withdraws a PrefetchIndexes hint
func (c *Controller) CancelPrefetchIndexes(indexes []int) {
	assets := c.assetsAt(indexes)
	if len(assets) == 0 {
		return
	}
	c.store.StopCaching(assets, c.grid.ThumbnailSize())
	c.metrics.CachingHint(metrics.HintStop, len(assets))
}

// Select reports the asset at index to OnSelect
func (c *Controller) Select(index int) {
	if index < 0 || index >= len(c.assets) || c.OnSelect == nil {
		return
	}
	c.OnSelect(c.assets[index])
}

// IndexAt returns the tile under a viewport point, or -1
func (c *Controller) IndexAt(p domain.Point) int {
	content := domain.Rect{X: p.X + c.offset.X, Y: p.Y + c.offset.Y, Width: 0.01, Height: 0.01}
	if idx := c.grid.IndexesIn(content); len(idx) > 0 {
		return idx[0]
	}
	return -1
}

// Teardown cancels every request, stops all caching and releases every cell
func (c *Controller) Teardown() {
	c.settleGen++
	c.settling = false
	c.pinching = false

	c.tracker.ClearAll()
	c.stopCachingAll()
	c.unbindAll()
	c.preheat = domain.Rect{}
	c.cachedSize = domain.Size{}
	c.state = StateIdle
}

// Close tears the grid down and abandons any fetch still in flight
func (c *Controller) Close() {
	c.Teardown()
	c.loader.Close()
}

// Grid returns the current layout
func (c *Controller) Grid() layout.Grid { return c.grid }

// Offset returns the current scroll offset
func (c *Controller) Offset() domain.Point { return c.offset }

// Viewport returns the current viewport size
func (c *Controller) Viewport() domain.Size { return c.viewport }

// Scale returns the zoom state
func (c *Controller) Scale() ScaleState { return c.scale }

// State returns the outcome of the last recompute
func (c *Controller) State() State { return c.state }

// PreheatWindow returns the last window caching was requested for
func (c *Controller) PreheatWindow() domain.Rect { return c.preheat }

// Pinching reports whether a pinch is in progress
func (c *Controller) Pinching() bool { return c.pinching }

// Settling reports whether the post-pinch quiet period is running
func (c *Controller) Settling() bool { return c.settling }

// Tracker exposes the request tracker for inspection
func (c *Controller) Tracker() *tracker.Tracker { return c.tracker }
