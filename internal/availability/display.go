package availability

import (
	"time"

	"spotshare/internal/clock"
)

const statusOccupied = "occupied"

// DisplayStatus is the status shown to viewers. A scheduled spot is presented
// as occupied while now, in the spot's zone, falls on a blackout date or
// outside every available slot. The stored status is returned otherwise.
func DisplayStatus(stored string, sched Schedule, loc *time.Location, now time.Time) string {
	if !sched.HasSchedule {
		return stored
	}
	if loc == nil {
		loc = time.UTC
	}

	local := now.In(loc)
	if sched.IsBlackout(clock.DateOf(local)) {
		return statusOccupied
	}

	tod := clock.Of(local)
	if !sched.Covers(local.Weekday(), tod, tod+1) {
		return statusOccupied
	}
	return stored
}
