// Package buttons implements the front panel button pipeline: edge event
// polling, per-button debounce, a single-in-flight processing gate, and
// asynchronous delegation to the active plugin.
package buttons

import (
	"sync"
	"time"
)

// Event is a falling-edge notification from one input line.
type Event struct {
	Line int       // hardware line (BCM numbering)
	Time time.Time // arrival time
}

// LineRequest is an acquired set of input lines delivering edge events.
type LineRequest interface {
	// WaitForEvents blocks up to timeout for pending edge events and
	// returns them in arrival order. An empty slice means the timeout
	// expired, which is not an error.
	WaitForEvents(timeout time.Duration) ([]Event, error)

	// Release frees the lines. Safe to call once.
	Release() error
}

// LineSource acquires input lines configured as pulled-up inputs with
// falling-edge detection.
type LineSource interface {
	RequestLines(lines []int) (LineRequest, error)
}

// SimSource is a LineSource fed by software. It backs --mock mode and the
// package tests: pushed events are indistinguishable from hardware ones
// downstream.
type SimSource struct {
	mu       sync.Mutex
	ch       chan Event
	released bool
	failNext error
}

// NewSimSource creates a simulated line source.
func NewSimSource() *SimSource {
	return &SimSource{ch: make(chan Event, 16)}
}

// Push injects an edge event for the given line.
func (s *SimSource) Push(line int) {
	s.ch <- Event{Line: line, Time: time.Now()}
}

// FailNextWait makes the next WaitForEvents call return err. Test helper.
func (s *SimSource) FailNextWait(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

// Released reports whether Release has been called.
func (s *SimSource) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// RequestLines returns the source itself; the line set is recorded only by
// the handler.
func (s *SimSource) RequestLines(lines []int) (LineRequest, error) {
	return s, nil
}

func (s *SimSource) WaitForEvents(timeout time.Duration) ([]Event, error) {
	s.mu.Lock()
	if err := s.failNext; err != nil {
		s.failNext = nil
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	t := time.NewTimer(timeout)
	defer t.Stop()

	var events []Event
	select {
	case ev := <-s.ch:
		events = append(events, ev)
	case <-t.C:
		return nil, nil
	}
	// Drain whatever else is already pending
	for {
		select {
		case ev := <-s.ch:
			events = append(events, ev)
		default:
			return events, nil
		}
	}
}

func (s *SimSource) Release() error {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
	return nil
}

var _ LineSource = (*SimSource)(nil)
var _ LineRequest = (*SimSource)(nil)
