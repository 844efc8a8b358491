package monitoreditem

import (
	"sync"
	"time"
)

// pollListener is polled once per tick by the pollGroup it is subscribed
// to. Implemented by Item for the periodic-timer sampling strategy
// (spec.md §4.2).
type pollListener interface {
	Poll()
}

// Scheduler fans periodic sampling out across shared tickers, one per
// distinct sampling interval, so that items with the same interval don't
// each pay for their own goroutine. Grounded on the teacher's
// Scheduler/PollGroup (vendor/.../server/scheduler.go).
type Scheduler struct {
	mu         sync.Mutex
	groups     map[time.Duration]*pollGroup
	closing    chan struct{}
	closeOnce  sync.Once
}

// NewScheduler constructs a Scheduler. Call Close when the engine shuts
// down to stop every ticker goroutine.
func NewScheduler() *Scheduler {
	return &Scheduler{
		groups:  make(map[time.Duration]*pollGroup),
		closing: make(chan struct{}),
	}
}

// GetPollGroup returns the shared pollGroup for interval, creating it on
// first use.
func (s *Scheduler) GetPollGroup(interval time.Duration) *pollGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.groups[interval]; ok {
		return g
	}
	g := newPollGroup(interval, s.closing)
	s.groups[interval] = g
	return g
}

// Close stops all poll-group tickers. Idempotent.
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() {
		close(s.closing)
	})
}

type pollGroup struct {
	mu       sync.Mutex
	interval time.Duration
	subs     map[pollListener]struct{}
}

func newPollGroup(interval time.Duration, closing <-chan struct{}) *pollGroup {
	g := &pollGroup{
		interval: interval,
		subs:     make(map[pollListener]struct{}),
	}
	go g.run(closing)
	return g
}

func (g *pollGroup) run(closing <-chan struct{}) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-closing:
			return
		case <-ticker.C:
			g.mu.Lock()
			listeners := make([]pollListener, 0, len(g.subs))
			for l := range g.subs {
				listeners = append(listeners, l)
			}
			g.mu.Unlock()
			for _, l := range listeners {
				l.Poll()
			}
		}
	}
}

// Subscribe adds listener to the group's tick fan-out.
func (g *pollGroup) Subscribe(listener pollListener) {
	g.mu.Lock()
	g.subs[listener] = struct{}{}
	g.mu.Unlock()
}

// Unsubscribe removes listener from the group's tick fan-out. Idempotent.
func (g *pollGroup) Unsubscribe(listener pollListener) {
	g.mu.Lock()
	delete(g.subs, listener)
	g.mu.Unlock()
}
