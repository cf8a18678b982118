package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"spotshare/internal/apperror"
	"spotshare/internal/clock"
)

// Slot is one weekly recurring window on a weekday.
type Slot struct {
	Weekday   time.Weekday
	Start     clock.TimeOfDay
	End       clock.TimeOfDay
	Available bool
}

// Schedule is everything the engine needs to know about a spot besides its
// bookings.
type Schedule struct {
	HasSchedule      bool
	DefaultAvailable bool
	Slots            []Slot
	Blackouts        map[clock.Date]bool
}

func (s Schedule) IsBlackout(d clock.Date) bool {
	return s.Blackouts[d]
}

// Covers reports whether [from, to) on weekday lies inside the union of that
// weekday's available slots.
func (s Schedule) Covers(weekday time.Weekday, from, to clock.TimeOfDay) bool {
	var day []Slot
	for _, sl := range s.Slots {
		if sl.Available && sl.Weekday == weekday && sl.End > sl.Start {
			day = append(day, sl)
		}
	}
	sort.Slice(day, func(i, j int) bool { return day[i].Start < day[j].Start })

	cursor := from
	for _, sl := range day {
		if cursor >= to {
			break
		}
		if sl.Start > cursor {
			return false
		}
		if sl.End > cursor {
			cursor = sl.End
		}
	}
	return cursor >= to
}

type Verdict struct {
	Bookable bool   `json:"bookable"`
	Reason   string `json:"reason,omitempty"`
}

func bookable() Verdict { return Verdict{Bookable: true} }

func refused(reason string) Verdict { return Verdict{Reason: reason} }

// Err converts a refusal into an availability error.
func (v Verdict) Err() error {
	if v.Bookable {
		return nil
	}
	return apperror.Unavailable(v.Reason)
}

// CheckSchedule applies the schedule rules without looking at bookings. A
// spot without a schedule is bookable exactly when it is available by default.
func CheckSchedule(sched Schedule, stay Stay) Verdict {
	if !sched.HasSchedule {
		if sched.DefaultAvailable {
			return bookable()
		}
		return refused(apperror.ReasonNotAvailable)
	}

	for _, d := range stay.Dates() {
		if sched.IsBlackout(d) {
			return refused(apperror.ReasonBlackout)
		}
		if !sched.Covers(d.Weekday(), stay.StartTime, stay.EndTime) {
			return refused(apperror.ReasonOutsideSchedule)
		}
	}
	return bookable()
}

// BookingSource lists the accepted stays on a spot.
type BookingSource interface {
	AcceptedStays(ctx context.Context, spotID uuid.UUID) ([]Stay, error)
}

type Engine struct {
	bookings BookingSource
}

func NewEngine(bookings BookingSource) *Engine {
	return &Engine{bookings: bookings}
}

// IsBookable answers whether stay can be requested on the spot. Spots without
// a schedule are decided by their default availability alone.
func (e *Engine) IsBookable(ctx context.Context, spotID uuid.UUID, sched Schedule, stay Stay) (Verdict, error) {
	v := CheckSchedule(sched, stay)
	if !v.Bookable || !sched.HasSchedule {
		return v, nil
	}

	conflict, err := e.HasConflict(ctx, spotID, stay)
	if err != nil {
		return Verdict{}, err
	}
	if conflict {
		return refused(apperror.ReasonAlreadyBooked), nil
	}
	return v, nil
}

// HasConflict reports whether stay overlaps an accepted booking on the spot.
func (e *Engine) HasConflict(ctx context.Context, spotID uuid.UUID, stay Stay) (bool, error) {
	accepted, err := e.bookings.AcceptedStays(ctx, spotID)
	if err != nil {
		return false, fmt.Errorf("load accepted bookings: %w", err)
	}
	return HasConflict(stay, accepted), nil
}
