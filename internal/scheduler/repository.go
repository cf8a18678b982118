package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"spotshare/internal/booking"
	"spotshare/internal/db"
	"spotshare/internal/spot"
)

type Repository interface {
	// Candidates returns every accepted booking with its spot's current status.
	Candidates(ctx context.Context) ([]Candidate, error)
	// SetSpotStatus moves a spot to status only while it is in one of from.
	SetSpotStatus(ctx context.Context, id uuid.UUID, from []spot.Status, status spot.Status) (bool, error)
	// CompleteBooking sets status and completed_at once for an accepted booking.
	CompleteBooking(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(conn *sqlx.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) Candidates(ctx context.Context) ([]Candidate, error) {
	candidates := []Candidate{}
	err := sqlx.SelectContext(ctx, db.Ext(ctx, r.db), &candidates, `
		SELECT b.id AS booking_id, b.spot_id, s.status AS spot_status,
			b.start_date, b.end_date, b.start_time, b.end_time, b.requester_timezone
		FROM booking_requests b
		JOIN spots s ON s.id = b.spot_id
		WHERE b.status = $1
		ORDER BY b.spot_id, b.start_date, b.start_time
	`, booking.StatusAccepted)
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

func (r *repository) SetSpotStatus(ctx context.Context, id uuid.UUID, from []spot.Status, status spot.Status) (bool, error) {
	expected := make([]string, len(from))
	for i, s := range from {
		expected[i] = string(s)
	}
	return exec(ctx, db.Ext(ctx, r.db), `
		UPDATE spots SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)
	`, status, id, pq.Array(expected))
}

func (r *repository) CompleteBooking(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return exec(ctx, db.Ext(ctx, r.db), `
		UPDATE booking_requests
		SET status = $1, completed_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4 AND completed_at IS NULL
	`, booking.StatusCompleted, at, id, booking.StatusAccepted)
}

func exec(ctx context.Context, q sqlx.ExecerContext, query string, args ...interface{}) (bool, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
