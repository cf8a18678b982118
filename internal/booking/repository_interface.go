package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"spotshare/internal/availability"
)

type Repository interface {
	// Create inserts a pending request. A second pending request for the same
	// requester and spot fails with ErrDuplicatePending.
	Create(ctx context.Context, b *BookingRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*BookingRequest, error)
	// GetForUpdate locks the booking row for the rest of the caller's transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*BookingRequest, error)
	HasPending(ctx context.Context, requesterID, spotID uuid.UUID) (bool, error)
	// AcceptedStays lists the stays of accepted bookings on a spot.
	AcceptedStays(ctx context.Context, spotID uuid.UUID) ([]availability.Stay, error)
	// MarkAccepted and MarkRejected only touch pending rows and report whether
	// the row changed.
	MarkAccepted(ctx context.Context, id uuid.UUID, at time.Time, paymentCents *int64) (bool, error)
	MarkRejected(ctx context.Context, id uuid.UUID) (bool, error)
	ListIncoming(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]View, error)
	ListOutgoing(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]View, error)
}
