package tui

import (
	"time"

	"github.com/mmcdole/lensgrid/internal/domain"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// AssetsLoadedMsg signals that the asset list has been read
type AssetsLoadedMsg struct {
	Assets []domain.Asset
	Status domain.AuthorizationStatus
}

// AssetOpenedMsg signals that a photo was handed to the viewer
type AssetOpenedMsg struct {
	Asset domain.Asset
}

// ClearStatusMsg clears the footer status
type ClearStatusMsg struct{}

// postedMsg carries work posted through the Scheduler
type postedMsg struct {
	fns []func()
}

// zoomFrameMsg advances a keyboard zoom animation
type zoomFrameMsg struct {
	gen   int
	frame int
}

// fadeFrameMsg redraws while cross-fades are running
type fadeFrameMsg time.Time
