// Package payment charges users through a hosted checkout and turns confirmed
// payments into wallet credits.
package payment

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Checkout kinds carried in session metadata.
const (
	KindTopUp   = "topup"
	KindBooking = "booking"
)

// Metadata travels with a checkout session and comes back on confirmation.
type Metadata struct {
	Kind        string
	UserID      uuid.UUID
	BookingID   uuid.UUID
	AmountCents int64
}

func (m Metadata) Map() map[string]string {
	out := map[string]string{
		"kind":         m.Kind,
		"user_id":      m.UserID.String(),
		"amount_cents": strconv.FormatInt(m.AmountCents, 10),
	}
	if m.BookingID != uuid.Nil {
		out["booking_id"] = m.BookingID.String()
	}
	return out
}

func ParseMetadata(in map[string]string) (Metadata, error) {
	var m Metadata
	var err error

	m.Kind = in["kind"]
	if m.Kind != KindTopUp && m.Kind != KindBooking {
		return m, errors.New("unknown checkout kind")
	}
	if m.UserID, err = uuid.Parse(in["user_id"]); err != nil {
		return m, errors.New("invalid user_id in metadata")
	}
	if m.AmountCents, err = strconv.ParseInt(in["amount_cents"], 10, 64); err != nil {
		return m, errors.New("invalid amount_cents in metadata")
	}
	if m.Kind == KindBooking {
		if m.BookingID, err = uuid.Parse(in["booking_id"]); err != nil {
			return m, errors.New("invalid booking_id in metadata")
		}
	}
	return m, nil
}

type CheckoutRequest struct {
	Description string
	Metadata    Metadata
}

// Session is the gateway's view of one checkout.
type Session struct {
	ID          string            `json:"session_id"`
	URL         string            `json:"url,omitempty"`
	Paid        bool              `json:"paid"`
	AmountCents int64             `json:"amount_cents"`
	Metadata    map[string]string `json:"-"`
}

type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	// ParseWebhook verifies the payload signature. It returns a nil session for
	// events that do not complete a checkout.
	ParseWebhook(payload []byte, signature string) (*Session, error)
}
