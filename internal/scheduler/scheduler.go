// Package scheduler drives the time-based side of a raid's life: periodic
// roster table refreshes, the departure reminder and the final expiry
// teardown. One timer chain runs per live raid and is cancelled the
// moment the raid leaves the registry, whichever path removed it.
package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Gliger13/bdo-daily-bot-sub001/internal/raid"
)

// Events receives the scheduler's callbacks. Implemented by the bot.
type Events interface {
	// RefreshDisplay is fired at every computed display-refresh instant.
	RefreshDisplay(r *raid.Raid)
	// Remind is fired once per raid, the configured lead time before
	// departure.
	Remind(r *raid.Raid)
	// Expire is fired once the departure time has passed. The handler is
	// expected to tear the raid down, including removing it from the
	// registry.
	Expire(r *raid.Raid)
}

type handle struct {
	stop chan struct{}
	once sync.Once
}

func (h *handle) cancel() {
	h.once.Do(func() { close(h.stop) })
}

// Scheduler tracks one timer chain per live raid.
type Scheduler struct {
	registry     *raid.Registry
	events       Events
	reminderLead time.Duration
	now          func() time.Time

	mu      sync.Mutex
	handles map[string]*handle
	wg      sync.WaitGroup
}

func New(registry *raid.Registry, events Events, reminderLead time.Duration, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		registry:     registry,
		events:       events,
		reminderLead: reminderLead,
		now:          now,
		handles:      map[string]*handle{},
	}
}

// Track starts the timer chain for a freshly registered raid.
// Tracking the same raid twice replaces the previous chain.
func (s *Scheduler) Track(r *raid.Raid) {
	key := trackKey(r)

	s.mu.Lock()
	if old, ok := s.handles[key]; ok {
		old.cancel()
	}
	h := &handle{stop: make(chan struct{})}
	s.handles[key] = h
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(r, h)
}

// Cancel stops the raid's timer chain. Idempotent; safe to call from
// within an event callback.
func (s *Scheduler) Cancel(r *raid.Raid) {
	key := trackKey(r)

	s.mu.Lock()
	h, ok := s.handles[key]
	if ok {
		delete(s.handles, key)
	}
	s.mu.Unlock()

	if ok {
		h.cancel()
	}
}

// Shutdown cancels every timer chain and waits for them to finish.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	for key, h := range s.handles {
		h.cancel()
		delete(s.handles, key)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) run(r *raid.Raid, h *handle) {
	defer s.wg.Done()

	window := r.Window()
	reminded := false
	for {
		now := s.now()
		next := window.NextDisplayRefresh(now)
		if remindAt := r.DepartureTime().Add(-s.reminderLead); !reminded && remindAt.After(now) && remindAt.Before(next) {
			next = remindAt
		}
		wait := next.Sub(now)
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-h.stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		// The raid may have been torn down between the timer firing
		// and this goroutine acting. A stale timer must never touch a
		// retired raid, even if cancellation has not reached us yet.
		if s.registry.FindByCaptainAndTime(r.CaptainName(), r.DepartureTime()) != r {
			log.Debug().Str("raid", trackKey(r)).Msg("Timer fired for a retired raid, ignoring")
			return
		}

		now = s.now()
		if window.Expired(now) {
			log.Info().Str("raid", trackKey(r)).Msg("Raid departure time reached, expiring")
			s.events.Expire(r)
			s.Cancel(r)
			return
		}
		if !reminded && s.reminderLead > 0 && window.TimeUntilDeparture(now) <= s.reminderLead {
			reminded = true
			s.events.Remind(r)
		}
		s.events.RefreshDisplay(r)
	}
}

func trackKey(r *raid.Raid) string {
	return r.CaptainName() + "@" + r.DepartureTime().UTC().Format(time.RFC3339)
}
