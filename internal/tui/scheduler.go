package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// schedulerBuffer is how many posted functions can queue before Post falls
// back to a goroutine per send
const schedulerBuffer = 256

// Scheduler marshals work from fetch goroutines and timers onto the Bubble Tea
// update loop. Posted functions run inside Update, in order of arrival.
type Scheduler struct {
	ch chan func()
}

// NewScheduler creates a scheduler; ListenCmd must be running for work to execute
func NewScheduler() *Scheduler {
	return &Scheduler{ch: make(chan func(), schedulerBuffer)}
}

// Post queues fn without blocking the caller
func (s *Scheduler) Post(fn func()) {
	select {
	case s.ch <- fn:
	default:
		// Buffer full: hand off rather than block a fetch goroutine
		go func() { s.ch <- fn }()
	}
}

// PostAfter queues fn once d has elapsed
func (s *Scheduler) PostAfter(d time.Duration, fn func()) {
	time.AfterFunc(d, func() { s.Post(fn) })
}

// ListenCmd waits for posted work and returns it as a message, draining
// whatever else is already queued so a burst of completions costs one update
func (s *Scheduler) ListenCmd() tea.Cmd {
	return func() tea.Msg {
		fns := []func(){<-s.ch}
		for {
			select {
			case fn := <-s.ch:
				fns = append(fns, fn)
			default:
				return postedMsg{fns: fns}
			}
		}
	}
}
