package raid

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxCapacity is the number of seats in one raid party.
const MaxCapacity = 20

// MemberRef identifies one joined member: the game nickname shown in the
// roster table and the Discord identity behind it.
type MemberRef struct {
	Nickname string
	Identity string
}

// Entry holds the flat attributes of one raid. The pair
// (CaptainName, DepartureTime) is the unique key and never changes once
// the raid is created.
type Entry struct {
	ID                   uuid.UUID
	CaptainName          string
	CaptainIdentity      string
	GameServer           string
	DepartureTime        time.Time
	RegistrationOpenTime time.Time // zero value means not set
	ReservedSlots        int
	Members              []MemberRef // insertion order is join order
	CreationTime         time.Time
}

func NewEntry(captainName, captainIdentity, gameServer string, departureTime time.Time, reservedSlots int, now time.Time) Entry {
	return Entry{
		ID:              uuid.New(),
		CaptainName:     captainName,
		CaptainIdentity: captainIdentity,
		GameServer:      gameServer,
		DepartureTime:   departureTime,
		ReservedSlots:   reservedSlots,
		CreationTime:    now,
	}
}

// PlacesLeft returns the number of seats still open for new joins.
func (e *Entry) PlacesLeft() int {
	return MaxCapacity - e.ReservedSlots - len(e.Members)
}

// HasMember reports whether a member with the given nickname has joined.
func (e *Entry) HasMember(nickname string) bool {
	return e.memberIndex(nickname) != -1
}

func (e *Entry) memberIndex(nickname string) int {
	for i, member := range e.Members {
		if member.Nickname == nickname {
			return i
		}
	}
	return -1
}

// Key identifies the raid for logs and storage lookups.
func (e *Entry) Key() string {
	return fmt.Sprintf("%s@%s", e.CaptainName, e.DepartureTime.Format(time.RFC3339))
}

// Clone returns a deep copy, safe to hand out while the raid keeps mutating.
func (e *Entry) Clone() Entry {
	clone := *e
	clone.Members = make([]MemberRef, len(e.Members))
	copy(clone.Members, e.Members)
	return clone
}
