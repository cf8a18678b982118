package spot

import (
	"context"

	"github.com/google/uuid"

	"spotshare/internal/clock"
)

type Repository interface {
	Create(ctx context.Context, s *Spot) error
	GetByID(ctx context.Context, id uuid.UUID) (*Spot, error)
	// GetForUpdate locks the spot row for the rest of the caller's transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Spot, error)
	List(ctx context.Context, limit, offset int) ([]Spot, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	SetDefaultAvailable(ctx context.Context, id uuid.UUID, available bool) error
	ReplaceSchedule(ctx context.Context, id uuid.UUID, slots []ScheduleSlot) error
	AddBlackout(ctx context.Context, b *BlackoutDate) error
	RemoveBlackout(ctx context.Context, id uuid.UUID, date clock.Date) (bool, error)
	ScheduleReader
}

type ScheduleReader interface {
	ListSlots(ctx context.Context, id uuid.UUID) ([]ScheduleSlot, error)
	ListBlackouts(ctx context.Context, id uuid.UUID) ([]BlackoutDate, error)
}
