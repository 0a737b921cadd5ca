package raid

import "time"

// Display refresh cadence slows down as departure gets further away,
// so that near raids update their table often and far raids rarely.
const (
	refreshNear   = 30 * time.Second
	refreshMid    = 2 * time.Minute
	refreshFar    = 10 * time.Minute
	nearThreshold = 5 * time.Minute
	midThreshold  = 30 * time.Minute
)

// TimeWindow derives the timing of one raid from its departure time and
// the current wall clock. It holds no state of its own and is recreated
// from entry fields whenever needed.
type TimeWindow struct {
	DepartureTime time.Time
}

func NewTimeWindow(departureTime time.Time) TimeWindow {
	return TimeWindow{DepartureTime: departureTime}
}

// TimeUntilDeparture returns how long until the raid leaves.
// Negative once the departure time has passed.
func (tw TimeWindow) TimeUntilDeparture(now time.Time) time.Duration {
	return tw.DepartureTime.Sub(now)
}

// Expired reports whether the departure time has passed.
func (tw TimeWindow) Expired(now time.Time) bool {
	return now.After(tw.DepartureTime)
}

// NextDisplayRefresh returns the instant at which the roster table should
// be redrawn next. Once the raid has expired there is nothing left to
// refresh and the departure time itself is returned.
func (tw TimeWindow) NextDisplayRefresh(now time.Time) time.Time {
	remaining := tw.TimeUntilDeparture(now)
	if remaining <= 0 {
		return tw.DepartureTime
	}
	interval := refreshFar
	switch {
	case remaining <= nearThreshold:
		interval = refreshNear
	case remaining <= midThreshold:
		interval = refreshMid
	}
	next := now.Add(interval)
	if next.After(tw.DepartureTime) {
		return tw.DepartureTime
	}
	return next
}
