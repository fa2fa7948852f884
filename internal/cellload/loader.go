// Package cellload performs the two-phase image load for grid cells.
//
// A bind issues a fast low-fidelity fetch and a high-fidelity fetch at the same
// time. Results are marshalled back to the grid's goroutine through a Scheduler
// and only land in the cell if the cell is still bound to the same asset.
package cellload

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mmcdole/lensgrid/internal/domain"
	"github.com/mmcdole/lensgrid/internal/metrics"
	"github.com/mmcdole/lensgrid/internal/tracker"
)

// Defaults used when Config fields are zero
const (
	DefaultLowFiSide = 100
	DefaultCrossfade = 200 * time.Millisecond
)

// Scheduler runs work on the goroutine that owns the grid
type Scheduler interface {
	// Post queues fn; it must not block the caller
	Post(fn func())

	// PostAfter queues fn once d has elapsed
	PostAfter(d time.Duration, fn func())
}

// Config holds loader settings
type Config struct {
	LowFiSize domain.Size   // Target for the fast pass
	Crossfade time.Duration // Fade applied when the high-fidelity image lands
}

// Loader binds cells to assets and drives their fetches
type Loader struct {
	store   domain.AssetStore
	tracker *tracker.Tracker
	sched   Scheduler
	cfg     Config
	logger  *slog.Logger
	metrics metrics.Recorder

	base   context.Context
	cancel context.CancelFunc
	now    func() time.Time

	// OnPresent is called on the grid goroutine after a cell's image changes
	OnPresent func(index int)
}

// NewLoader creates a loader. Requests derive from an internal context that
// Close cancels.
func NewLoader(
	store domain.AssetStore,
	t *tracker.Tracker,
	sched Scheduler,
	cfg Config,
	logger *slog.Logger,
	rec metrics.Recorder,
) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LowFiSize.IsEmpty() {
		cfg.LowFiSize = domain.Size{Width: DefaultLowFiSide, Height: DefaultLowFiSide}
	}
	if cfg.Crossfade <= 0 {
		cfg.Crossfade = DefaultCrossfade
	}
	base, cancel := context.WithCancel(context.Background())
	return &Loader{
		store:   store,
		tracker: t,
		sched:   sched,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.OrNop(rec),
		base:    base,
		cancel:  cancel,
		now:     time.Now,
	}
}

// Close abandons every request the loader has issued
func (l *Loader) Close() {
	l.cancel()
}

// request is the tracker handle shared by both phases of one bind
type request struct {
	id        string
	index     int
	asset     domain.AssetID
	cancel    context.CancelFunc
	remaining atomic.Int32
	logger    *slog.Logger
}

// Cancel abandons both phases. Safe to call more than once.
func (r *request) Cancel() {
	r.cancel()
	r.logger.Debug("request cancelled", "request", r.id, "index", r.index, "asset", r.asset)
}

// Bind points cell at asset for grid index and starts both load phases.
// Any request still tracked for index, or for the index the cell previously
// showed, is cancelled first.
func (l *Loader) Bind(cell *Cell, index int, asset domain.Asset, target domain.Size) {
	l.tracker.Cancel(index)
	if prev := cell.Index(); prev >= 0 && prev != index {
		l.tracker.Cancel(prev)
	}

	token := cell.bind(index, asset)

	ctx, cancel := context.WithCancel(l.base)
	req := &request{
		id:     uuid.NewString(),
		index:  index,
		asset:  asset.ID,
		cancel: cancel,
		logger: l.logger,
	}
	req.remaining.Store(2)
	l.tracker.Set(index, req)

	l.logger.Debug("binding cell", "index", index, "asset", asset.ID, "request", req.id)

	go l.fetch(ctx, req, cell, token, PhaseLow, l.cfg.LowFiSize, domain.QualityFast)
	go l.fetch(ctx, req, cell, token, PhaseHigh, target, domain.QualityHigh)
}

// Unbind cancels the cell's request and returns it to the placeholder state
func (l *Loader) Unbind(cell *Cell) {
	index, wasBound := cell.unbind()
	if wasBound {
		l.tracker.Cancel(index)
	}
}

func (l *Loader) fetch(
	ctx context.Context,
	req *request,
	cell *Cell,
	token uint64,
	phase Phase,
	target domain.Size,
	quality domain.Quality,
) {
	defer l.done(req)

	l.metrics.FetchStarted(quality)
	img, err := l.store.FetchImage(ctx, req.asset, target, quality)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			l.metrics.FetchFinished(quality, metrics.OutcomeCancelled)
			return
		}
		l.logger.Debug("fetch failed", "index", req.index, "asset", req.asset, "phase", phase, "error", err)
		l.metrics.FetchFinished(quality, metrics.OutcomeFailed)
		return
	}
	if img == nil {
		l.metrics.FetchFinished(quality, metrics.OutcomeFailed)
		return
	}

	fade := time.Duration(0)
	if phase == PhaseHigh {
		fade = l.cfg.Crossfade
	}

	l.sched.Post(func() {
		outcome := cell.present(token, phase, img, fade, l.now())
		l.metrics.FetchFinished(quality, outcome)
		if outcome != metrics.OutcomeDisplayed {
			l.logger.Debug("dropped completion", "request", req.id, "index", req.index, "phase", phase, "outcome", outcome)
			return
		}
		if l.OnPresent != nil {
			l.OnPresent(req.index)
		}
	})
}

// done releases the request once both phases have finished
func (l *Loader) done(req *request) {
	if req.remaining.Add(-1) > 0 {
		return
	}
	l.tracker.Finish(req.index, req)
	req.cancel()
}
