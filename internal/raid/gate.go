package raid

import "time"

// Decision is the outcome of an eligibility check: either an accepted
// raid, a refusal with a typed reason, or a set of candidate raids when
// the caller has to disambiguate (which is an input request, not an
// error).
type Decision struct {
	Raid    *Raid
	Reason  FailureReason
	Choices []*Raid
}

func accept(r *Raid) Decision { return Decision{Raid: r} }

func reject(reason FailureReason) Decision { return Decision{Reason: reason} }

// Accepted reports whether the check passed and a single raid was
// resolved.
func (d Decision) Accepted() bool {
	return d.Reason == ReasonNone && d.Raid != nil
}

// NeedsChoice reports whether the caller has to pick between several
// raids before the operation can proceed.
func (d Decision) NeedsChoice() bool {
	return len(d.Choices) > 0
}

// Gate holds the stateless eligibility policies. Every inbound command
// and reaction passes through it before a raid may be mutated; the gate
// itself never mutates anything.
type Gate struct {
	registry *Registry
}

func NewGate(registry *Registry) *Gate {
	return &Gate{registry: registry}
}

// CanCreate refuses creation when the captain already has a raid at that
// departure time.
func (g *Gate) CanCreate(captainName string, departureTime time.Time) Decision {
	if existing := g.registry.FindByCaptainAndTime(captainName, departureTime); existing != nil {
		return reject(ReasonRaidExists)
	}
	return Decision{}
}

// CanJoin checks membership, cross-raid conflicts and capacity for the
// given target raid.
func (g *Gate) CanJoin(target *Raid, member MemberRef) Decision {
	if target.HasMember(member.Nickname) {
		return reject(ReasonAlreadyInSameRaid)
	}
	if g.registry.MemberHasConflict(member.Nickname, target.DepartureTime(), target) {
		return reject(ReasonAlreadyInRaid)
	}
	if target.PlacesLeft() <= 0 {
		return reject(ReasonRaidIsFull)
	}
	return accept(target)
}

// CanLeave checks that the nickname actually joined the target raid.
func (g *Gate) CanLeave(target *Raid, nickname string) Decision {
	if !target.HasMember(nickname) {
		return reject(ReasonUserNotFoundInRaid)
	}
	return accept(target)
}

// CanAdjustReservation guards both opening and closing of reserved
// places: only the captain (or an override) may adjust, and the place
// count must be positive. The capacity check itself stays with the raid.
func (g *Gate) CanAdjustReservation(target *Raid, callerIdentity string, places int, override bool) Decision {
	if callerIdentity != target.CaptainIdentity() && !override {
		return reject(ReasonNotCaptain)
	}
	if places <= 0 {
		return reject(ReasonValidationError)
	}
	return accept(target)
}

// CanRemoveRaid resolves the captain's raid at an explicit departure
// time.
func (g *Gate) CanRemoveRaid(captainName string, departureTime time.Time) Decision {
	target := g.registry.FindByCaptainAndTime(captainName, departureTime)
	if target == nil {
		return reject(ReasonRaidNotFound)
	}
	return accept(target)
}

// CanRemoveSelfRaid resolves which of the captain's raids to remove when
// the departure time was omitted. With several live raids the choice
// goes back to the caller.
func (g *Gate) CanRemoveSelfRaid(captainName string) Decision {
	raids := g.registry.FindAllByCaptain(captainName)
	switch len(raids) {
	case 0:
		return reject(ReasonNoActiveRaids)
	case 1:
		return accept(raids[0])
	default:
		return Decision{Choices: raids}
	}
}

// ResolveForMember resolves a raid for join/leave/show commands that
// name a captain and optionally a departure time. A zero time means the
// caller did not give one.
func (g *Gate) ResolveForMember(captainName string, departureTime time.Time) Decision {
	if !departureTime.IsZero() {
		target := g.registry.FindByCaptainAndTime(captainName, departureTime)
		if target == nil {
			return reject(ReasonRaidNotFound)
		}
		return accept(target)
	}
	raids := g.registry.FindAllByCaptain(captainName)
	switch len(raids) {
	case 0:
		return reject(ReasonNoAvailableRaids)
	case 1:
		return accept(raids[0])
	default:
		return Decision{Choices: raids}
	}
}
