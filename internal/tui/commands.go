package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/lensgrid/internal/domain"
	"github.com/mmcdole/lensgrid/internal/prefetch"
)

// Command factories for async operations

// Opener opens a photo outside the terminal
type Opener interface {
	Open(path string) error
}

// PathResolver maps an asset to the file it was read from
type PathResolver interface {
	Path(id domain.AssetID) (string, error)
}

// LoadAssetsCmd reads the library listing
func LoadAssetsCmd(store domain.AssetStore) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute) // large libraries
		defer cancel()

		assets, status, err := prefetch.ReadAssets(ctx, store)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading library"}
		}
		return AssetsLoadedMsg{Assets: assets, Status: status}
	}
}

// OpenAssetCmd opens an asset in the external viewer
func OpenAssetCmd(opener Opener, paths PathResolver, asset domain.Asset) tea.Cmd {
	return func() tea.Msg {
		if opener == nil || paths == nil {
			return ErrMsg{Err: fmt.Errorf("no viewer configured"), Context: "opening " + asset.Name}
		}
		path, err := paths.Path(asset.ID)
		if err != nil {
			return ErrMsg{Err: err, Context: "opening " + asset.Name}
		}
		if err := opener.Open(path); err != nil {
			return ErrMsg{Err: err, Context: "opening " + asset.Name}
		}
		return AssetOpenedMsg{Asset: asset}
	}
}

// ClearStatusCmd clears the status after a delay
func ClearStatusCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}

// zoomFrameCmd schedules the next zoom animation frame
func zoomFrameCmd(gen, frame int) tea.Cmd {
	return tea.Tick(zoomFrameInterval, func(time.Time) tea.Msg {
		return zoomFrameMsg{gen: gen, frame: frame}
	})
}

// fadeFrameCmd schedules a redraw for running cross-fades
func fadeFrameCmd() tea.Cmd {
	return tea.Tick(fadeFrameInterval, func(t time.Time) tea.Msg {
		return fadeFrameMsg(t)
	})
}
