package raid

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// registryView is the immutable lookup state handed out to readers.
// Writers build a fresh view under the registry lock and swap the
// pointer, so reads never observe a half-applied mutation and never
// iterate a map that is being written to.
type registryView struct {
	byKey     map[string]*Raid
	byMessage map[string]*Raid
}

func emptyView() *registryView {
	return &registryView{
		byKey:     map[string]*Raid{},
		byMessage: map[string]*Raid{},
	}
}

// Registry is the process-wide collection of live raids. A raid is
// reachable only through the registry while active: added on creation,
// removed on manual teardown or expiry.
type Registry struct {
	mu   sync.Mutex
	view atomic.Pointer[registryView]
}

func NewRegistry() *Registry {
	reg := &Registry{}
	reg.view.Store(emptyView())
	return reg
}

func registryKey(captainName string, departureTime time.Time) string {
	return captainName + "@" + departureTime.UTC().Format(time.RFC3339)
}

// Add registers the raid. Fails with ErrRaidExists if a raid with the
// same captain and departure time is already live.
func (reg *Registry) Add(r *Raid) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	key := registryKey(r.CaptainName(), r.DepartureTime())
	view := reg.view.Load()
	if _, ok := view.byKey[key]; ok {
		return ErrRaidExists
	}
	reg.swapLocked(func(next *registryView) {
		next.byKey[key] = r
	})
	log.Info().Str("raid", key).Msg("Raid registered")
	return nil
}

// Remove unregisters the raid. Idempotent: removing a raid that is not
// registered logs and reports false, it is not an error. The boolean
// lets teardown paths act exactly once when a timer and a manual close
// race each other.
func (reg *Registry) Remove(r *Raid) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	key := registryKey(r.CaptainName(), r.DepartureTime())
	view := reg.view.Load()
	if _, ok := view.byKey[key]; !ok {
		log.Debug().Str("raid", key).Msg("Remove of a raid that is not registered")
		return false
	}
	reg.swapLocked(func(next *registryView) {
		delete(next.byKey, key)
		for id, raid := range next.byMessage {
			if raid == r {
				delete(next.byMessage, id)
			}
		}
	})
	log.Info().Str("raid", key).Msg("Raid unregistered")
	return true
}

// IndexMessage makes the raid findable by one of its Discord message
// ids, so reaction events can be resolved back to it.
func (reg *Registry) IndexMessage(messageID string, r *Raid) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.swapLocked(func(next *registryView) {
		next.byMessage[messageID] = r
	})
}

// FindByCaptainAndTime returns the raid with that exact key, or nil.
func (reg *Registry) FindByCaptainAndTime(captainName string, departureTime time.Time) *Raid {
	view := reg.view.Load()
	return view.byKey[registryKey(captainName, departureTime)]
}

// FindAllByCaptain returns the captain's live raids ordered by departure
// time, for disambiguation when the caller omitted the time.
func (reg *Registry) FindAllByCaptain(captainName string) []*Raid {
	view := reg.view.Load()
	var raids []*Raid
	for _, r := range view.byKey {
		if r.CaptainName() == captainName {
			raids = append(raids, r)
		}
	}
	sort.Slice(raids, func(i, j int) bool {
		return raids[i].DepartureTime().Before(raids[j].DepartureTime())
	})
	return raids
}

// FindByMessageID resolves a reaction's target message back to its raid.
func (reg *Registry) FindByMessageID(messageID string) *Raid {
	view := reg.view.Load()
	return view.byMessage[messageID]
}

// All returns every live raid, in no particular order.
func (reg *Registry) All() []*Raid {
	view := reg.view.Load()
	raids := make([]*Raid, 0, len(view.byKey))
	for _, r := range view.byKey {
		raids = append(raids, r)
	}
	return raids
}

// MemberHasConflict reports whether the nickname already belongs to a
// raid departing at the exact same time under a different captain.
func (reg *Registry) MemberHasConflict(nickname string, departureTime time.Time, exclude *Raid) bool {
	view := reg.view.Load()
	for _, r := range view.byKey {
		if r == exclude {
			continue
		}
		if !r.DepartureTime().Equal(departureTime) {
			continue
		}
		if r.HasMember(nickname) {
			return true
		}
	}
	return false
}

// swapLocked clones the current view, applies the mutation to the clone
// and publishes it. Callers hold reg.mu.
func (reg *Registry) swapLocked(mutate func(next *registryView)) {
	current := reg.view.Load()
	next := &registryView{
		byKey:     make(map[string]*Raid, len(current.byKey)+1),
		byMessage: make(map[string]*Raid, len(current.byMessage)+1),
	}
	for key, r := range current.byKey {
		next.byKey[key] = r
	}
	for id, r := range current.byMessage {
		next.byMessage[id] = r
	}
	mutate(next)
	reg.view.Store(next)
}
