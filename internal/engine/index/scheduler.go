// # internal/engine/index/scheduler.go
package index

import (
	"sync"
	"time"
)

type schedulerState int

const (
	schedulerIdle schedulerState = iota
	schedulerDebouncing
	schedulerReindexing
)

func (s schedulerState) String() string {
	switch s {
	case schedulerDebouncing:
		return "debouncing"
	case schedulerReindexing:
		return "reindexing"
	default:
		return "idle"
	}
}

// scheduler collapses bursts of change sets into reindex passes.
//
//	Idle --notify--> Debouncing --timer--> Reindexing --done--> Idle
//	                     ^ notify restarts       | changes arrived
//	                     +-----------------------+ during the pass
//
// Passes never overlap. Timer callbacks carry the generation they were armed
// with; a fire from a stopped or superseded timer is ignored.
type scheduler struct {
	delay time.Duration
	run   func(ChangeSet)

	mu         sync.Mutex
	state      schedulerState
	pending    pendingChanges
	timer      *time.Timer
	generation uint64
	closed     bool
	idle       *sync.Cond
}

func newScheduler(delay time.Duration, run func(ChangeSet)) *scheduler {
	s := &scheduler{delay: delay, run: run}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// notify records changes and (re)starts the debounce timer. While a pass is
// running the changes are held for exactly one follow-up pass.
func (s *scheduler) notify(cs ChangeSet) {
	if cs.Empty() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pending.add(cs)
	if s.state == schedulerReindexing {
		return
	}
	s.state = schedulerDebouncing
	s.arm()
}

// arm must be called with mu held.
func (s *scheduler) arm() {
	s.generation++
	gen := s.generation
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
}

func (s *scheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.generation || s.state != schedulerDebouncing {
		s.mu.Unlock()
		return
	}
	changes := s.pending.take()
	s.state = schedulerReindexing
	s.timer = nil
	s.mu.Unlock()

	s.run(changes)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed && !s.pending.empty() {
		s.state = schedulerDebouncing
		s.arm()
		return
	}
	s.state = schedulerIdle
	s.idle.Broadcast()
}

func (s *scheduler) current() schedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// waitIdle blocks until no pass is pending or running.
func (s *scheduler) waitIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.state != schedulerIdle && !s.closed {
		s.idle.Wait()
	}
}

// close stops the timer and drops pending changes. A running pass finishes.
func (s *scheduler) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = pendingChanges{}
	s.idle.Broadcast()
}
