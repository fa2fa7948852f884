package cellload

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mmcdole/lensgrid/internal/domain"
	"github.com/mmcdole/lensgrid/internal/metrics"
)

// Phase is how far a cell's two-phase load has progressed
type Phase int

const (
	PhaseNone Phase = iota // Placeholder
	PhaseLow               // Fast low-fidelity image shown
	PhaseHigh              // High-fidelity image shown
)

// String returns a short label for the phase
func (p Phase) String() string {
	switch p {
	case PhaseLow:
		return "low"
	case PhaseHigh:
		return "high"
	default:
		return "none"
	}
}

// Presentation is what a cell currently displays
type Presentation struct {
	Index       int
	Asset       domain.Asset
	Bound       bool
	Image       *domain.Image // nil while the placeholder is shown
	Phase       Phase
	Fade        time.Duration // Cross-fade to apply when the image was presented
	PresentedAt time.Time
}

// Cell is a reusable renderable slot.
//
// The token is the bound-asset token: it changes on every bind and unbind, and a
// completion may only write to the cell if it carries the current token.
type Cell struct {
	token atomic.Uint64

	mu          sync.Mutex
	index       int
	asset       domain.Asset
	bound       bool
	image       *domain.Image
	phase       Phase
	fade        time.Duration
	presentedAt time.Time
}

// NewCell creates an unbound cell
func NewCell() *Cell {
	return &Cell{index: -1}
}

// Token returns the current bound-asset token
func (c *Cell) Token() uint64 {
	return c.token.Load()
}

// Index returns the grid index the cell is bound to, or -1
func (c *Cell) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.bound {
		return -1
	}
	return c.index
}

// Asset returns the bound asset and whether the cell is bound
func (c *Cell) Asset() (domain.Asset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.asset, c.bound
}

// Snapshot returns a copy of the cell's presentation state
func (c *Cell) Snapshot() Presentation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Presentation{
		Index:       c.index,
		Asset:       c.asset,
		Bound:       c.bound,
		Image:       c.image,
		Phase:       c.phase,
		Fade:        c.fade,
		PresentedAt: c.presentedAt,
	}
}

// bind assigns the cell to an asset and returns the new token.
// Rebinding to the same asset keeps the current image on screen until the new
// load replaces it; a different asset resets the cell to its placeholder.
func (c *Cell) bind(index int, asset domain.Asset) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.bound || c.asset.ID != asset.ID {
		c.image = nil
		c.phase = PhaseNone
		c.fade = 0
		c.presentedAt = time.Time{}
	}
	c.index = index
	c.asset = asset
	c.bound = true
	return c.token.Add(1)
}

// unbind detaches the cell and returns the index it was bound to
func (c *Cell) unbind() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token.Add(1)
	index, wasBound := c.index, c.bound
	c.index = -1
	c.asset = domain.Asset{}
	c.bound = false
	c.image = nil
	c.phase = PhaseNone
	c.fade = 0
	c.presentedAt = time.Time{}
	return index, wasBound
}

// present applies a completed fetch if token is still current.
// A low-fidelity result never replaces a high-fidelity one.
func (c *Cell) present(token uint64, phase Phase, img *domain.Image, fade time.Duration, now time.Time) metrics.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token.Load() != token || !c.bound {
		return metrics.OutcomeStale
	}
	if phase == PhaseLow && c.phase == PhaseHigh {
		return metrics.OutcomeSuperseded
	}
	c.image = img
	c.phase = phase
	c.fade = fade
	c.presentedAt = now
	return metrics.OutcomeDisplayed
}
