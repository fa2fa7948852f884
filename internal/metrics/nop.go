package metrics

import "github.com/mmcdole/lensgrid/internal/domain"

// NopRecorder discards all events.
type NopRecorder struct{}

// Compile-time assertion that NopRecorder implements Recorder.
var _ Recorder = (*NopRecorder)(nil)

// NewNop creates a recorder that discards everything.
func NewNop() *NopRecorder {
	return &NopRecorder{}
}

func (n *NopRecorder) FetchStarted(_ domain.Quality)                {}
func (n *NopRecorder) FetchFinished(_ domain.Quality, _ Outcome)    {}
func (n *NopRecorder) CachingHint(_ /* op */ string, _ /* n */ int) {}
func (n *NopRecorder) PreheatRecomputed()                           {}
func (n *NopRecorder) ColumnsChanged(_ /* columns */ int)           {}
func (n *NopRecorder) SetTrackedRequests(_ /* n */ int)             {}

// OrNop returns r, or a no-op recorder if r is nil
func OrNop(r Recorder) Recorder {
	if r == nil {
		return NewNop()
	}
	return r
}
