// Package availability decides whether a spot can be booked for a stay. It
// knows nothing about storage: callers hand it the spot's schedule and a
// source of accepted bookings.
package availability

import (
	"time"

	"spotshare/internal/apperror"
	"spotshare/internal/clock"
)

// MaxStayDays bounds a single request.
const MaxStayDays = 366

// Stay is a requested occupancy: the daily window [StartTime, EndTime) on
// every date from StartDate through EndDate, read as wall-clock time in
// Timezone.
type Stay struct {
	StartDate clock.Date      `json:"start_date"`
	EndDate   clock.Date      `json:"end_date"`
	StartTime clock.TimeOfDay `json:"start_time"`
	EndTime   clock.TimeOfDay `json:"end_time"`
	Timezone  string          `json:"timezone"`
}

// Window is a half-open interval of instants.
type Window struct {
	Start time.Time
	End   time.Time
}

func (s Stay) Validate() error {
	switch {
	case s.StartDate.IsZero() || s.EndDate.IsZero():
		return apperror.Validation("start_date and end_date are required")
	case s.EndDate.Before(s.StartDate):
		return apperror.Validation("end_date must not be before start_date")
	case !s.StartTime.Valid() || !s.EndTime.Valid():
		return apperror.Validation("start_time and end_time must be valid times of day")
	case s.EndTime <= s.StartTime:
		return apperror.Validation("end_time must be after start_time")
	case s.Days() > MaxStayDays:
		return apperror.Validation("stay is too long")
	}
	return nil
}

// Days is the number of calendar dates the stay covers.
func (s Stay) Days() int {
	return s.StartDate.DaysUntil(s.EndDate) + 1
}

func (s Stay) Dates() []clock.Date {
	n := s.Days()
	if n <= 0 {
		return nil
	}
	out := make([]clock.Date, 0, n)
	for d := s.StartDate; !d.After(s.EndDate); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// DailyMinutes is the length of one daily window by the wall clock.
func (s Stay) DailyMinutes() int64 {
	return int64(s.EndTime-s.StartTime) / 60
}

// TotalMinutes is the billable duration across all days.
func (s Stay) TotalMinutes() int64 {
	return s.DailyMinutes() * int64(s.Days())
}

func (s Stay) TotalHours() float64 {
	return float64(s.TotalMinutes()) / 60
}

func (s Stay) Location() *time.Location {
	loc, _ := clock.LoadLocation(s.Timezone)
	return loc
}

// Start is the instant the first daily window opens.
func (s Stay) Start() time.Time {
	return clock.ResolveIn(s.StartDate, s.StartTime, s.Location())
}

// End is the instant the last daily window closes.
func (s Stay) End() time.Time {
	return clock.ResolveIn(s.EndDate, s.EndTime, s.Location())
}

// Windows returns the daily windows as instants, in order.
func (s Stay) Windows() []Window {
	loc := s.Location()
	dates := s.Dates()
	out := make([]Window, 0, len(dates))
	for _, d := range dates {
		out = append(out, Window{
			Start: clock.ResolveIn(d, s.StartTime, loc),
			End:   clock.ResolveIn(d, s.EndTime, loc),
		})
	}
	return out
}
