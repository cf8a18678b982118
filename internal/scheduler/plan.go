// Package scheduler moves spots between available and reserved as accepted
// bookings start, and completes bookings once they end.
package scheduler

import (
	"time"

	"github.com/google/uuid"

	"spotshare/internal/clock"
	"spotshare/internal/spot"
)

type Action string

const (
	ActionReserve  Action = "reserve"
	ActionComplete Action = "complete"
)

// Candidate is an accepted booking joined with its spot's stored status.
type Candidate struct {
	BookingID  uuid.UUID       `db:"booking_id"`
	SpotID     uuid.UUID       `db:"spot_id"`
	SpotStatus spot.Status     `db:"spot_status"`
	StartDate  clock.Date      `db:"start_date"`
	EndDate    clock.Date      `db:"end_date"`
	StartTime  clock.TimeOfDay `db:"start_time"`
	EndTime    clock.TimeOfDay `db:"end_time"`
	Timezone   string          `db:"requester_timezone"`
}

// Start is the first instant of the booking. The daily window of the last
// day bounds the end.
func (c Candidate) Start() time.Time {
	return clock.Resolve(c.StartDate, c.StartTime, c.Timezone)
}

func (c Candidate) End() time.Time {
	return clock.Resolve(c.EndDate, c.EndTime, c.Timezone)
}

func (c Candidate) inProgress(now time.Time) bool {
	return !now.Before(c.Start()) && !now.After(c.End())
}

// Transition is one change a pass should apply. From is the spot status the
// update expects to find. To is empty when a completion leaves the spot alone.
type Transition struct {
	Action    Action
	BookingID uuid.UUID
	SpotID    uuid.UUID
	From      spot.Status
	To        spot.Status
}

// Plan decides what a pass does at now. It reserves an available spot once a
// booking has started and completes a booking once now is strictly past its
// end. Completing releases a reserved or occupied spot unless another booking
// on it is still running. A booking that ended while its spot stayed
// available is completed without touching the spot.
func Plan(now time.Time, candidates []Candidate) []Transition {
	status := make(map[uuid.UUID]spot.Status, len(candidates))
	for _, c := range candidates {
		status[c.SpotID] = c.SpotStatus
	}

	var out []Transition

	for _, c := range candidates {
		if status[c.SpotID] != spot.StatusAvailable || !c.inProgress(now) {
			continue
		}
		out = append(out, Transition{
			Action:    ActionReserve,
			BookingID: c.BookingID,
			SpotID:    c.SpotID,
			From:      spot.StatusAvailable,
			To:        spot.StatusReserved,
		})
		status[c.SpotID] = spot.StatusReserved
	}

	for _, c := range candidates {
		if !now.After(c.End()) {
			continue
		}
		t := Transition{Action: ActionComplete, BookingID: c.BookingID, SpotID: c.SpotID}
		current := status[c.SpotID]
		if (current == spot.StatusReserved || current == spot.StatusOccupied) && !othersRunning(now, c, candidates) {
			t.From = current
			t.To = spot.StatusAvailable
			status[c.SpotID] = spot.StatusAvailable
		}
		out = append(out, t)
	}

	return out
}

func othersRunning(now time.Time, done Candidate, candidates []Candidate) bool {
	for _, c := range candidates {
		if c.SpotID == done.SpotID && c.BookingID != done.BookingID && c.inProgress(now) {
			return true
		}
	}
	return false
}
