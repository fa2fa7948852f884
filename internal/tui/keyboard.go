package tui

import (
	"math"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/lensgrid/internal/domain"
)

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ShowHelp {
		if key.Matches(msg, Keys.Escape, Keys.Help, Keys.Quit) {
			m.ShowHelp = false
		}
		return m, nil
	}

	if m.Filtering {
		return m.handleFilterKey(msg)
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		m.Ctrl.Teardown()
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.ShowHelp = true
		return m, nil

	case key.Matches(msg, Keys.Escape):
		if m.Query != "" {
			m.Query = ""
			m.Filter.SetValue("")
			m.applyFilter(false)
		}
		return m, nil

	case key.Matches(msg, Keys.Filter):
		m.Filtering = true
		m.Filter.SetValue(m.Query)
		m.Filter.CursorEnd()
		cmd := m.Filter.Focus()
		return m, cmd

	case key.Matches(msg, Keys.Refresh):
		m.Loading = true
		return m, LoadAssetsCmd(m.Store)

	case key.Matches(msg, Keys.Open):
		return m, m.openSelected()

	case key.Matches(msg, Keys.ZoomIn):
		return m.startZoom(1)

	case key.Matches(msg, Keys.ZoomOut):
		return m.startZoom(-1)
	}

	cols := max(m.Ctrl.Grid().Columns, 1)
	switch {
	case key.Matches(msg, Keys.Left):
		m.moveCursor(-1)
	case key.Matches(msg, Keys.Right):
		m.moveCursor(1)
	case key.Matches(msg, Keys.Up):
		m.moveCursor(-cols)
	case key.Matches(msg, Keys.Down):
		m.moveCursor(cols)
	case key.Matches(msg, Keys.HalfUp):
		m.moveCursor(-m.rowsPerScreen(0.5) * cols)
	case key.Matches(msg, Keys.HalfDown):
		m.moveCursor(m.rowsPerScreen(0.5) * cols)
	case key.Matches(msg, Keys.PageUp):
		m.moveCursor(-m.rowsPerScreen(1) * cols)
	case key.Matches(msg, Keys.PageDown):
		m.moveCursor(m.rowsPerScreen(1) * cols)
	case key.Matches(msg, Keys.Home):
		m.moveCursor(-m.Cursor)
	case key.Matches(msg, Keys.End):
		m.moveCursor(len(m.Ctrl.Assets()))
	default:
		return m, nil
	}
	return m.withFade()
}

// handleFilterKey routes input to the filter field
func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.Filtering = false
		m.Filter.Blur()
		m.Filter.SetValue("")
		if m.Query != "" {
			m.Query = ""
			m.applyFilter(false)
		}
		return m, nil

	case tea.KeyEnter:
		m.Filtering = false
		m.Filter.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.Filter, cmd = m.Filter.Update(msg)
	if q := m.Filter.Value(); q != m.Query {
		m.Query = q
		m.applyFilter(false)
	}
	return m, cmd
}

// handleMouse scrolls on the wheel, zooms on ctrl+wheel and selects on click.
// Clicking the selected tile opens it.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.ShowHelp || msg.Action != tea.MouseActionPress {
		return m, nil
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if msg.Ctrl {
			return m.startZoom(1)
		}
		m.Ctrl.ScrollBy(-wheelStep)
	case tea.MouseButtonWheelDown:
		if msg.Ctrl {
			return m.startZoom(-1)
		}
		m.Ctrl.ScrollBy(wheelStep)
	case tea.MouseButtonLeft:
		if msg.Y >= m.gridRows() {
			return m, nil
		}
		idx := m.Ctrl.IndexAt(pointAt(msg.X, msg.Y))
		if idx < 0 {
			return m, nil
		}
		if idx == m.Cursor {
			return m, m.openSelected()
		}
		m.Cursor = idx
		m.revealCursor()
	default:
		return m, nil
	}
	return m.withFade()
}

// rowsPerScreen returns how many tile rows fit in fraction of the viewport
func (m Model) rowsPerScreen(fraction float64) int {
	g := m.Ctrl.Grid()
	stride := g.ItemSide() + g.Spacing
	if stride <= 0 {
		return 1
	}
	return max(int(math.Round(m.Ctrl.Viewport().Height*fraction/stride)), 1)
}

// startZoom animates a pinch that adds (dir < 0) or removes (dir > 0) one
// column, centred on the selected tile
func (m Model) startZoom(dir int) (tea.Model, tea.Cmd) {
	if m.zoom.active || len(m.Ctrl.Assets()) == 0 {
		return m, nil
	}
	cols := m.Ctrl.Grid().Columns
	target := cols - dir
	if target < 1 {
		return m, nil
	}

	m.zoom.gen++
	m.zoom.active = true
	m.zoom.gesture = float64(cols) / float64(target)
	m.zoom.focal = m.cursorFocal()
	return m, zoomFrameCmd(m.zoom.gen, 1)
}

// handleZoomFrame feeds one animation frame to the controller
func (m Model) handleZoomFrame(msg zoomFrameMsg) (tea.Model, tea.Cmd) {
	if !m.zoom.active || msg.gen != m.zoom.gen {
		return m, nil
	}

	t := float64(msg.frame) / zoomFrames
	m.Ctrl.OnPinchUpdate(1+(m.zoom.gesture-1)*t, m.zoom.focal)
	if msg.frame < zoomFrames {
		return m, zoomFrameCmd(m.zoom.gen, msg.frame+1)
	}

	m.Ctrl.OnPinchEnd(m.zoom.focal)
	m.zoom.active = false
	m.prefetched = nil
	m.revealCursor()
	return m.withFade()
}

// cursorFocal returns the centre of the selected tile in viewport coordinates,
// kept inside the viewport
func (m Model) cursorFocal() domain.Point {
	vp := m.Ctrl.Viewport()
	off := m.Ctrl.Offset()
	r := m.Ctrl.Grid().CellRect(m.Cursor)
	return domain.Point{
		X: math.Min(math.Max(r.MidX()-off.X, 0), vp.Width),
		Y: math.Min(math.Max(r.MidY()-off.Y, 0), vp.Height),
	}
}
