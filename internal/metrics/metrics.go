// Package metrics records grid engine activity.
//
// Components accept a Recorder and default to the no-op implementation, so
// instrumentation costs nothing unless a Prometheus collector is wired in.
package metrics

import "github.com/mmcdole/lensgrid/internal/domain"

// Outcome classifies how a fetch ended from the grid's point of view
type Outcome string

const (
	OutcomeDisplayed  Outcome = "displayed"  // Result was presented in its cell
	OutcomeStale      Outcome = "stale"      // Cell was rebound before the result arrived
	OutcomeSuperseded Outcome = "superseded" // Fast result arrived after the high result
	OutcomeFailed     Outcome = "failed"     // Store returned an error
	OutcomeCancelled  Outcome = "cancelled"  // Request context was cancelled
)

// Caching hint operations
const (
	HintStart   = "start"
	HintStop    = "stop"
	HintStopAll = "stop_all"
)

// Recorder receives grid engine events
type Recorder interface {
	FetchStarted(quality domain.Quality)
	FetchFinished(quality domain.Quality, outcome Outcome)
	CachingHint(op string, assets int)
	PreheatRecomputed()
	ColumnsChanged(columns int)
	SetTrackedRequests(n int)
}
