package tui

import (
	"log/slog"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/lensgrid/internal/domain"
	"github.com/mmcdole/lensgrid/internal/prefetch"
	"github.com/mmcdole/lensgrid/internal/tui/styles"
)

// Animation timing
const (
	zoomFrames        = 6
	zoomFrameInterval = 16 * time.Millisecond
	fadeFrameInterval = 33 * time.Millisecond

	statusTimeout = 4 * time.Second
)

// zoomState tracks a keyboard-driven pinch animation
type zoomState struct {
	gen     int
	active  bool
	gesture float64 // Final cumulative scale of the animation
	focal   domain.Point
}

// Model is the main Bubble Tea model for the application
type Model struct {
	// Grid engine
	Ctrl  *prefetch.Controller
	Sched *Scheduler
	Store domain.AssetStore

	// Opening photos
	Opener Opener
	Paths  PathResolver

	Logger *slog.Logger

	// Data
	All    []domain.Asset // Unfiltered listing
	Status domain.AuthorizationStatus
	Loaded bool

	// Dimensions
	Width  int
	Height int
	Ready  bool

	// UI state
	Cursor      int
	Filter      textinput.Model
	Filtering   bool
	Query       string
	StatusMsg   string
	StatusIsErr bool
	Loading     bool
	ShowHelp    bool

	zoom        zoomState
	fadeTicking bool
	prefetched  []int // Tiles hinted ahead of the cursor
	selected    *[]domain.Asset
	now         func() time.Time
}

// NewModel creates a new application model around a grid controller
func NewModel(ctrl *prefetch.Controller, sched *Scheduler, store domain.AssetStore, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}

	ti := textinput.New()
	ti.Prompt = "/"
	ti.PromptStyle = styles.FilterPromptStyle
	ti.Placeholder = "filter by name"
	ti.CharLimit = 128

	selected := new([]domain.Asset)
	ctrl.OnSelect = func(a domain.Asset) {
		*selected = append(*selected, a)
	}

	return Model{
		Ctrl:     ctrl,
		Sched:    sched,
		Store:    store,
		Logger:   logger,
		Filter:   ti,
		Loading:  true,
		selected: selected,
		now:      time.Now,
	}
}

// WithOpener sets how selected photos are opened
func (m Model) WithOpener(opener Opener, paths PathResolver) Model {
	m.Opener = opener
	m.Paths = paths
	return m
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.Sched.ListenCmd(),
		LoadAssetsCmd(m.Store),
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.Ctrl.OnLayoutChanged(m.viewportSize(), m.Ctrl.Offset())
		m.revealCursor()
		return m.withFade()

	case postedMsg:
		for _, fn := range msg.fns {
			fn()
		}
		fade := m.fadeCmd()
		return m, tea.Batch(m.Sched.ListenCmd(), fade)

	case fadeFrameMsg:
		m.fadeTicking = false
		return m.withFade()

	case zoomFrameMsg:
		return m.handleZoomFrame(msg)

	case AssetsLoadedMsg:
		m.Loading = false
		m.All = msg.Assets
		m.Status = msg.Status
		keepOffset := m.Loaded
		m.Loaded = true
		m.applyFilter(keepOffset)
		m.Logger.Info("library loaded", "assets", len(msg.Assets), "status", msg.Status.String())
		if !msg.Status.CanRead() {
			m.StatusMsg = "Library access: " + msg.Status.String()
			m.StatusIsErr = true
			return m, nil
		}
		return m.withFade()

	case AssetOpenedMsg:
		m.StatusMsg = "Opened " + msg.Asset.Name
		m.StatusIsErr = false
		return m, ClearStatusCmd(statusTimeout)

	case ErrMsg:
		m.Loading = false
		m.StatusMsg = msg.Error()
		m.StatusIsErr = true
		m.Logger.Error("operation failed", "context", msg.Context, "error", msg.Err)
		return m, ClearStatusCmd(statusTimeout)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, nil
}

// applyFilter pushes the filtered listing into the grid
func (m *Model) applyFilter(keepOffset bool) {
	assets := filterAssets(m.All, m.Query)
	if keepOffset {
		m.Ctrl.UpdateAssets(assets)
	} else {
		m.Ctrl.SetAssets(assets)
		m.Cursor = 0
	}
	m.Cursor = min(m.Cursor, max(len(assets)-1, 0))
	m.prefetched = nil
	m.revealCursor()
}

// moveCursor moves the selection by delta tiles, stopping at the ends
func (m *Model) moveCursor(delta int) {
	n := len(m.Ctrl.Assets())
	if n == 0 {
		return
	}
	m.Cursor = min(max(m.Cursor+delta, 0), n-1)
	m.revealCursor()

	dir := 1
	if delta < 0 {
		dir = -1
	}
	m.prefetchAhead(dir)
}

// prefetchAhead hints the row just past the preheat window in the direction
// the cursor travels and withdraws the previous hint. Tiles the window now
// covers keep their caching.
func (m *Model) prefetchAhead(dir int) {
	ahead := m.rowAhead(dir)
	if slices.Equal(ahead, m.prefetched) {
		return
	}

	grid := m.Ctrl.Grid()
	window := m.Ctrl.PreheatWindow()
	var behind []int
	for _, i := range m.prefetched {
		if !slices.Contains(ahead, i) && !grid.CellRect(i).Intersects(window) {
			behind = append(behind, i)
		}
	}
	if len(behind) > 0 {
		m.Ctrl.CancelPrefetchIndexes(behind)
	}
	if len(ahead) > 0 {
		m.Ctrl.PrefetchIndexes(ahead)
	}
	m.prefetched = ahead
}

// rowAhead returns the tiles of the first row, walking from the cursor in
// direction dir, that lies outside the preheat window
func (m Model) rowAhead(dir int) []int {
	grid := m.Ctrl.Grid()
	n := len(m.Ctrl.Assets())
	cols := grid.Columns
	if n == 0 || cols <= 0 {
		return nil
	}
	window := m.Ctrl.PreheatWindow()
	if window.IsEmpty() {
		window = m.Ctrl.VisibleRect()
	}

	for row := m.Cursor / cols; row >= 0 && row*cols < n; row += dir {
		first := row * cols
		if grid.CellRect(first).Intersects(window) {
			continue
		}
		out := make([]int, 0, cols)
		for i := first; i < min(first+cols, n); i++ {
			out = append(out, i)
		}
		return out
	}
	return nil
}

// revealCursor scrolls just enough to show the selected tile
func (m *Model) revealCursor() {
	if len(m.Ctrl.Assets()) == 0 || !m.Ready {
		return
	}
	vp := m.Ctrl.Viewport()
	off := m.Ctrl.Offset()
	g := m.Ctrl.Grid()
	y := scrollToReveal(g.CellRect(m.Cursor), g.Spacing, off.Y, vp.Height)
	if y != off.Y {
		m.Ctrl.OnLayoutChanged(vp, domain.Point{X: off.X, Y: y})
	}
}

// openSelected hands the selected tile to the viewer
func (m *Model) openSelected() tea.Cmd {
	m.Ctrl.Select(m.Cursor)

	var cmds []tea.Cmd
	for _, a := range *m.selected {
		cmds = append(cmds, OpenAssetCmd(m.Opener, m.Paths, a))
	}
	*m.selected = (*m.selected)[:0]
	return tea.Batch(cmds...)
}

// withFade returns the model with a fade redraw scheduled if one is needed
func (m Model) withFade() (tea.Model, tea.Cmd) {
	cmd := m.fadeCmd()
	return m, cmd
}

// fadeCmd keeps redrawing while a visible tile is cross-fading
func (m *Model) fadeCmd() tea.Cmd {
	if m.fadeTicking || !m.anyFading() {
		return nil
	}
	m.fadeTicking = true
	return fadeFrameCmd()
}

func (m Model) anyFading() bool {
	now := m.now()
	for _, p := range m.Ctrl.VisibleCells() {
		if p.Image != nil && fadeAlpha(p, now) < 1 {
			return true
		}
	}
	return false
}
