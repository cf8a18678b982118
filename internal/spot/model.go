package spot

import (
	"time"

	"github.com/google/uuid"

	"spotshare/internal/apperror"
	"spotshare/internal/availability"
	"spotshare/internal/clock"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusOccupied  Status = "occupied"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusOccupied:
		return true
	}
	return false
}

type Spot struct {
	ID               uuid.UUID `db:"id" json:"id"`
	OwnerID          uuid.UUID `db:"owner_id" json:"owner_id"`
	Name             string    `db:"name" json:"name"`
	Status           Status    `db:"status" json:"status"`
	HasSchedule      bool      `db:"has_schedule" json:"has_schedule"`
	DefaultAvailable bool      `db:"default_available" json:"default_available"`
	PriceCents       *int64    `db:"price_cents" json:"price_cents,omitempty"`
	Latitude         float64   `db:"latitude" json:"latitude"`
	Longitude        float64   `db:"longitude" json:"longitude"`
	Timezone         string    `db:"timezone" json:"timezone"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

func (s *Spot) Priced() bool {
	return s.PriceCents != nil && *s.PriceCents > 0
}

type ScheduleSlot struct {
	ID          int64           `db:"id" json:"id"`
	SpotID      uuid.UUID       `db:"spot_id" json:"spot_id"`
	DayOfWeek   int             `db:"day_of_week" json:"day_of_week"`
	StartTime   clock.TimeOfDay `db:"start_time" json:"start_time"`
	EndTime     clock.TimeOfDay `db:"end_time" json:"end_time"`
	IsAvailable bool            `db:"is_available" json:"is_available"`
}

type BlackoutDate struct {
	SpotID    uuid.UUID  `db:"spot_id" json:"spot_id"`
	Date      clock.Date `db:"date" json:"date"`
	Reason    *string    `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// View is a spot as presented to one viewer.
type View struct {
	Spot
	EffectiveStatus Status         `json:"effective_status"`
	IsMine          bool           `json:"is_mine"`
	Schedule        []ScheduleSlot `json:"schedule,omitempty"`
	Blackouts       []BlackoutDate `json:"blackouts,omitempty"`
}

// BuildSchedule converts stored rows into the engine's schedule.
func BuildSchedule(s *Spot, slots []ScheduleSlot, blackouts []BlackoutDate) availability.Schedule {
	sched := availability.Schedule{
		HasSchedule:      s.HasSchedule,
		DefaultAvailable: s.DefaultAvailable,
		Slots:            make([]availability.Slot, 0, len(slots)),
		Blackouts:        make(map[clock.Date]bool, len(blackouts)),
	}
	for _, sl := range slots {
		sched.Slots = append(sched.Slots, availability.Slot{
			Weekday:   time.Weekday(sl.DayOfWeek),
			Start:     sl.StartTime,
			End:       sl.EndTime,
			Available: sl.IsAvailable,
		})
	}
	for _, b := range blackouts {
		sched.Blackouts[b.Date] = true
	}
	return sched
}

type CreateSpotRequest struct {
	Name             string  `json:"name" binding:"required,max=200"`
	PriceCents       *int64  `json:"price_cents" binding:"omitempty,min=0"`
	Latitude         float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude        float64 `json:"longitude" binding:"min=-180,max=180"`
	Timezone         string  `json:"timezone"`
	DefaultAvailable *bool   `json:"default_available"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required,oneof=available reserved occupied"`
}

type ScheduleSlotInput struct {
	DayOfWeek   int    `json:"day_of_week" binding:"min=0,max=6"`
	StartTime   string `json:"start_time" binding:"required"`
	EndTime     string `json:"end_time" binding:"required"`
	IsAvailable *bool  `json:"is_available"`
}

type ReplaceScheduleRequest struct {
	Slots            []ScheduleSlotInput `json:"slots" binding:"dive"`
	DefaultAvailable *bool               `json:"default_available"`
}

type BlackoutRequest struct {
	Date   string `json:"date" binding:"required"`
	Reason string `json:"reason" binding:"max=500"`
}

type CheckAvailabilityRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
	Timezone  string `json:"timezone"`
}

// Stay parses the request into a stay. A missing end date means a single day.
func (r CheckAvailabilityRequest) Stay() (availability.Stay, error) {
	return ParseStay(r.StartDate, r.EndDate, r.StartTime, r.EndTime, r.Timezone)
}

func ParseStay(startDate, endDate, startTime, endTime, tz string) (availability.Stay, error) {
	var stay availability.Stay
	var err error

	if stay.StartDate, err = clock.ParseDate(startDate); err != nil {
		return stay, apperror.Wrap(apperror.KindValidation, "invalid start_date", err)
	}
	if endDate == "" {
		stay.EndDate = stay.StartDate
	} else if stay.EndDate, err = clock.ParseDate(endDate); err != nil {
		return stay, apperror.Wrap(apperror.KindValidation, "invalid end_date", err)
	}
	if stay.StartTime, err = clock.ParseTimeOfDay(startTime); err != nil {
		return stay, apperror.Wrap(apperror.KindValidation, "invalid start_time", err)
	}
	if stay.EndTime, err = clock.ParseTimeOfDay(endTime); err != nil {
		return stay, apperror.Wrap(apperror.KindValidation, "invalid end_time", err)
	}
	if tz != "" {
		if _, ok := clock.LoadLocation(tz); !ok {
			return stay, apperror.Validation("unknown timezone " + tz)
		}
	}
	stay.Timezone = tz
	return stay, stay.Validate()
}
