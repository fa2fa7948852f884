package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/lensgrid/internal/tui/styles"
)

// View renders the UI
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	if m.ShowHelp {
		return lipgloss.Place(m.Width, m.Height,
			lipgloss.Center, lipgloss.Center,
			m.renderHelp())
	}

	var content string
	if len(m.Ctrl.Assets()) == 0 {
		content = lipgloss.Place(m.Width, m.gridRows(),
			lipgloss.Center, lipgloss.Center,
			m.renderEmpty())
	} else {
		content = m.renderGrid()
	}

	return lipgloss.JoinVertical(lipgloss.Left, content, m.renderFooter())
}

// renderEmpty explains why the grid has nothing to show
func (m Model) renderEmpty() string {
	switch {
	case m.Loading:
		return styles.DimStyle.Render("Scanning library...")
	case m.Loaded && !m.Status.CanRead():
		return styles.ErrorStyle.Render("Library not readable: " + m.Status.String())
	case m.Query != "":
		return styles.DimStyle.Render(fmt.Sprintf("No photos match %q", m.Query))
	default:
		return styles.DimStyle.Render("No photos")
	}
}

// renderFooter renders a single-line footer: status or filter on the left,
// grid position on the right
func (m Model) renderFooter() string {
	var left string
	switch {
	case m.Filtering:
		left = m.Filter.View()
	case m.StatusMsg != "" && m.StatusIsErr:
		left = styles.ErrorStyle.Render(m.StatusMsg)
	case m.StatusMsg != "":
		left = styles.SuccessStyle.Render(m.StatusMsg)
	case m.Loading:
		left = styles.DimStyle.Render("Loading...")
	case m.Query != "":
		left = styles.AccentStyle.Render("/" + m.Query)
	default:
		left = m.selectedName()
	}

	total := len(m.Ctrl.Assets())
	position := "0/0"
	if total > 0 {
		position = fmt.Sprintf("%d/%d", m.Cursor+1, total)
	}
	scale := m.Ctrl.Scale()
	right := styles.DimStyle.Render(fmt.Sprintf("%s · %d cols · %.2fx ", position, m.Ctrl.Grid().Columns, scale.Current))
	if m.Ctrl.Pinching() || m.Ctrl.Settling() {
		right = styles.DimBadgeStyle.Render("zoom") + " " + right
	}

	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return styles.FooterStyle.Render(left + strings.Repeat(" ", gap) + right)
}

// selectedName returns the name of the tile under the cursor
func (m Model) selectedName() string {
	assets := m.Ctrl.Assets()
	if m.Cursor < 0 || m.Cursor >= len(assets) {
		return ""
	}
	return styles.SubtitleStyle.Render(" " + assets[m.Cursor].Name)
}

// renderHelp renders the key binding overlay
func (m Model) renderHelp() string {
	var sb strings.Builder
	sb.WriteString(styles.ModalTitleStyle.Render("Keys"))
	sb.WriteString("\n")
	for _, b := range helpBindings() {
		h := b.Help()
		sb.WriteString(fmt.Sprintf("%s  %s\n",
			styles.HelpKeyStyle.Render(fmt.Sprintf("%-6s", h.Key)),
			styles.HelpDescStyle.Render(h.Desc)))
	}
	return styles.ModalStyle.Render(strings.TrimRight(sb.String(), "\n"))
}
