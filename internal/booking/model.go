package booking

import (
	"time"

	"github.com/google/uuid"

	"spotshare/internal/availability"
	"spotshare/internal/clock"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusAccepted || next == StatusRejected
	case StatusAccepted:
		return next == StatusCompleted
	}
	return false
}

type BookingRequest struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	RequesterID        uuid.UUID       `db:"requester_id" json:"requester_id"`
	OwnerID            uuid.UUID       `db:"owner_id" json:"owner_id"`
	SpotID             uuid.UUID       `db:"spot_id" json:"spot_id"`
	Status             Status          `db:"status" json:"status"`
	StartDate          clock.Date      `db:"start_date" json:"start_date"`
	EndDate            clock.Date      `db:"end_date" json:"end_date"`
	StartTime          clock.TimeOfDay `db:"start_time" json:"start_time"`
	EndTime            clock.TimeOfDay `db:"end_time" json:"end_time"`
	RequesterTimezone  string          `db:"requester_timezone" json:"requester_timezone"`
	Message            *string         `db:"message" json:"message,omitempty"`
	TotalHours         float64         `db:"total_hours" json:"total_hours"`
	TotalPriceCents    *int64          `db:"total_price_cents" json:"total_price_cents,omitempty"`
	AcceptedAt         *time.Time      `db:"accepted_at" json:"accepted_at,omitempty"`
	CompletedAt        *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	PaymentAmountCents *int64          `db:"payment_amount_cents" json:"payment_amount_cents,omitempty"`
	PaymentProcessed   bool            `db:"payment_processed" json:"payment_processed"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

func (b *BookingRequest) Stay() availability.Stay {
	return availability.Stay{
		StartDate: b.StartDate,
		EndDate:   b.EndDate,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Timezone:  b.RequesterTimezone,
	}
}

// Quote returns the charge for an accepted booking. Unpriced requests have no
// quote.
func (b *BookingRequest) Quote() (Quote, bool) {
	if b.TotalPriceCents == nil || *b.TotalPriceCents <= 0 {
		return Quote{}, false
	}
	return QuoteForAmount(*b.TotalPriceCents), true
}

// View is a booking request as presented to one viewer.
type View struct {
	BookingRequest
	SpotName string `db:"spot_name" json:"spot_name"`
	IsMine   bool   `db:"-" json:"is_mine"`
}

type CreateBookingRequest struct {
	StartDate string `json:"start_date" binding:"required" example:"2026-11-02"`
	EndDate   string `json:"end_date" example:"2026-11-04"`
	StartTime string `json:"start_time" binding:"required" example:"09:00"`
	EndTime   string `json:"end_time" binding:"required" example:"17:00"`
	Timezone  string `json:"timezone" example:"Europe/Bucharest"`
	Message   string `json:"message" binding:"max=1000"`
}

type AcceptResponse struct {
	Booking        *BookingRequest `json:"booking"`
	AlreadySettled bool            `json:"already_settled"`
}
