package raid

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Store persists raid entries. Implemented by the storage package; the
// raid only ever hands it a snapshot of its own entry.
type Store interface {
	SaveRaid(ctx context.Context, entry Entry) error
}

// ChangeKind says what a committed mutation did to the roster.
type ChangeKind int

const (
	ChangeJoined ChangeKind = iota
	ChangeLeft
	ChangeReservationOpened
	ChangeReservationClosed
)

// Change describes one committed mutation, for the boundary layer to
// render and log.
type Change struct {
	Kind       ChangeKind
	Member     MemberRef
	Places     int
	PlacesLeft int
}

// Raid is one scheduled raid. It owns its Entry exclusively: every
// mutation takes the raid's own lock, checks, applies and persists as one
// step, so concurrent chat events can never overcommit seats. The
// attached Discord message ids are set once by the creator and only used
// to know where to push renders.
type Raid struct {
	mu     sync.Mutex
	entry  Entry
	window TimeWindow
	store  Store

	ChannelID           string
	CollectionMessageID string
	TableMessageID      string
}

func NewRaid(entry Entry, store Store) *Raid {
	return &Raid{
		entry:  entry,
		window: NewTimeWindow(entry.DepartureTime),
		store:  store,
	}
}

func (r *Raid) CaptainName() string      { return r.entry.CaptainName }
func (r *Raid) CaptainIdentity() string  { return r.entry.CaptainIdentity }
func (r *Raid) DepartureTime() time.Time { return r.entry.DepartureTime }
func (r *Raid) Window() TimeWindow       { return r.window }

// AttachMessages records where the collection and table messages live.
// Called once, right after the creator has posted them.
func (r *Raid) AttachMessages(channelID, collectionID, tableID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ChannelID = channelID
	r.CollectionMessageID = collectionID
	r.TableMessageID = tableID
}

// Messages returns the channel and message ids the renders go to.
func (r *Raid) Messages() (channelID, collectionID, tableID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ChannelID, r.CollectionMessageID, r.TableMessageID
}

// Snapshot returns a deep copy of the entry for rendering or persistence.
func (r *Raid) Snapshot() Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entry.Clone()
}

// HasMember reports whether the nickname has joined this raid.
func (r *Raid) HasMember(nickname string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entry.HasMember(nickname)
}

// PlacesLeft returns the seats still open for new joins.
func (r *Raid) PlacesLeft() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entry.PlacesLeft()
}

// IsExpired reports whether the departure time has passed.
func (r *Raid) IsExpired(now time.Time) bool {
	return r.window.Expired(now)
}

// Join appends the member to the roster, preserving join order.
// Fails with ErrAlreadyInRaid or ErrRaidFull; on success the change has
// already been persisted. If the save fails the in-memory membership
// stands and the save error is returned alongside the change.
func (r *Raid) Join(ctx context.Context, member MemberRef) (Change, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entry.HasMember(member.Nickname) {
		return Change{}, ErrAlreadyInRaid
	}
	if r.entry.PlacesLeft() <= 0 {
		return Change{}, ErrRaidFull
	}
	r.entry.Members = append(r.entry.Members, member)

	change := Change{Kind: ChangeJoined, Member: member, PlacesLeft: r.entry.PlacesLeft()}
	return change, r.persistLocked(ctx)
}

// Leave removes the member by nickname match.
// Fails with ErrMemberNotFound if the nickname never joined.
func (r *Raid) Leave(ctx context.Context, nickname string) (Change, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index := r.entry.memberIndex(nickname)
	if index == -1 {
		return Change{}, ErrMemberNotFound
	}
	member := r.entry.Members[index]
	r.entry.Members = append(r.entry.Members[:index], r.entry.Members[index+1:]...)

	change := Change{Kind: ChangeLeft, Member: member, PlacesLeft: r.entry.PlacesLeft()}
	return change, r.persistLocked(ctx)
}

// OpenReservation frees places previously blocked for the captain's
// allies, making them available for joins. Note the naming: opening a
// reservation subtracts from the reserved count.
func (r *Raid) OpenReservation(ctx context.Context, places int) (Change, error) {
	if places <= 0 {
		return Change{}, ErrInvalidPlaces
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entry.ReservedSlots-places < 0 {
		return Change{}, ErrNoReservedToOpen
	}
	r.entry.ReservedSlots -= places

	change := Change{Kind: ChangeReservationOpened, Places: places, PlacesLeft: r.entry.PlacesLeft()}
	return change, r.persistLocked(ctx)
}

// CloseReservation blocks additional places for the captain's allies.
// Fails with ErrRaidFull if the increase would overcommit the party.
func (r *Raid) CloseReservation(ctx context.Context, places int) (Change, error) {
	if places <= 0 {
		return Change{}, ErrInvalidPlaces
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entry.ReservedSlots+places+len(r.entry.Members) > MaxCapacity {
		return Change{}, ErrRaidFull
	}
	r.entry.ReservedSlots += places

	change := Change{Kind: ChangeReservationClosed, Places: places, PlacesLeft: r.entry.PlacesLeft()}
	return change, r.persistLocked(ctx)
}

// persistLocked saves the current entry. The in-memory state is the
// source of truth: a failed save is reported but never rolled back.
func (r *Raid) persistLocked(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.SaveRaid(ctx, r.entry.Clone()); err != nil {
		log.Error().Str("raid", r.entry.Key()).Err(err).Msg("Could not persist raid")
		return fmt.Errorf("persist raid %s: %w", r.entry.Key(), err)
	}
	return nil
}
