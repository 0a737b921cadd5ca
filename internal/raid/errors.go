package raid

import "errors"

// FailureReason classifies why an operation on a raid was refused.
// These are expected business conditions, not faults: the bot boundary
// turns each of them into a user-visible message.
type FailureReason int

const (
	ReasonNone FailureReason = iota
	ReasonRaidExists
	ReasonRaidNotFound
	ReasonNoActiveRaids
	ReasonNoAvailableRaids
	ReasonAlreadyInRaid
	ReasonAlreadyInSameRaid
	ReasonUserNotFoundInRaid
	ReasonRaidIsFull
	ReasonNoAvailableToCloseReservation
	ReasonNotCaptain
	ReasonValidationError
)

func (r FailureReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonRaidExists:
		return "raid exists"
	case ReasonRaidNotFound:
		return "raid not found"
	case ReasonNoActiveRaids:
		return "no active raids"
	case ReasonNoAvailableRaids:
		return "no available raids"
	case ReasonAlreadyInRaid:
		return "already in a raid at that time"
	case ReasonAlreadyInSameRaid:
		return "already in this raid"
	case ReasonUserNotFoundInRaid:
		return "user not found in raid"
	case ReasonRaidIsFull:
		return "raid is full"
	case ReasonNoAvailableToCloseReservation:
		return "no reserved places available to open"
	case ReasonNotCaptain:
		return "caller is not the raid captain"
	case ReasonValidationError:
		return "validation error"
	default:
		return "unknown"
	}
}

// Sentinel errors for the raid and registry operations. The gate maps
// them onto FailureReason values when refusing a command.
var (
	ErrRaidExists       = errors.New("a raid with that captain and departure time already exists")
	ErrRaidNotFound     = errors.New("raid not found")
	ErrAlreadyInRaid    = errors.New("member is already in the raid")
	ErrMemberNotFound   = errors.New("member not found in the raid")
	ErrRaidFull         = errors.New("raid has no places left")
	ErrNoReservedToOpen = errors.New("fewer places reserved than requested to open")
	ErrInvalidPlaces    = errors.New("number of places must be positive")
)
