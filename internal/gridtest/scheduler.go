// Package gridtest provides a manual scheduler and a controllable asset store
// for exercising the grid engine in tests.
package gridtest

import (
	"sort"
	"sync"
	"time"
)

type timer struct {
	due time.Duration
	seq int
	fn  func()
}

// Scheduler queues posted work until the test drains it, and runs delayed work
// only when the test advances its clock.
type Scheduler struct {
	mu     sync.Mutex
	queue  []func()
	timers []timer
	now    time.Duration
	seq    int
}

// NewScheduler creates an empty manual scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Post queues fn
func (s *Scheduler) Post(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	s.mu.Unlock()
}

// PostAfter queues fn once the clock has advanced by d
func (s *Scheduler) PostAfter(d time.Duration, fn func()) {
	s.mu.Lock()
	s.seq++
	s.timers = append(s.timers, timer{due: s.now + d, seq: s.seq, fn: fn})
	s.mu.Unlock()
}

// Pending returns the number of queued functions
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Timers returns the number of delayed functions not yet due
func (s *Scheduler) Timers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Drain runs queued functions, including ones they post, until the queue is empty.
// It returns how many ran.
func (s *Scheduler) Drain() int {
	ran := 0
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return ran
		}
		fn := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		fn()
		ran++
	}
}

// Advance moves the clock forward, queues every timer that became due in order,
// and drains the queue.
func (s *Scheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	s.now += d
	var due, rest []timer
	for _, t := range s.timers {
		if t.due <= s.now {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	s.timers = rest
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		s.queue = append(s.queue, t.fn)
	}
	s.mu.Unlock()

	return s.Drain()
}
