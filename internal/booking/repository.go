package booking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"spotshare/internal/availability"
	"spotshare/internal/clock"
	"spotshare/internal/db"
)

const bookingColumns = `id, requester_id, owner_id, spot_id, status, start_date, end_date, start_time, end_time,
	requester_timezone, message, total_hours, total_price_cents, accepted_at, completed_at,
	payment_amount_cents, payment_processed, created_at, updated_at`

const uniqueViolation = "23505"

type repository struct {
	db *sqlx.DB
}

func NewRepository(conn *sqlx.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) Create(ctx context.Context, b *BookingRequest) error {
	err := db.Ext(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO booking_requests (
			id, requester_id, owner_id, spot_id, status, start_date, end_date, start_time, end_time,
			requester_timezone, message, total_hours, total_price_cents
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`,
		b.ID, b.RequesterID, b.OwnerID, b.SpotID, b.Status, b.StartDate, b.EndDate, b.StartTime, b.EndTime,
		b.RequesterTimezone, b.Message, b.TotalHours, b.TotalPriceCents,
	).Scan(&b.CreatedAt, &b.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicatePending
	}
	return err
}

func (r *repository) get(ctx context.Context, query string, id uuid.UUID) (*BookingRequest, error) {
	b := &BookingRequest{}
	if err := sqlx.GetContext(ctx, db.Ext(ctx, r.db), b, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*BookingRequest, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM booking_requests WHERE id = $1`, id)
}

func (r *repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*BookingRequest, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM booking_requests WHERE id = $1 FOR UPDATE`, id)
}

func (r *repository) HasPending(ctx context.Context, requesterID, spotID uuid.UUID) (bool, error) {
	return db.Exists(ctx, db.Ext(ctx, r.db),
		`SELECT 1 FROM booking_requests WHERE requester_id = $1 AND spot_id = $2 AND status = $3`,
		requesterID, spotID, StatusPending,
	)
}

type stayRow struct {
	StartDate clock.Date      `db:"start_date"`
	EndDate   clock.Date      `db:"end_date"`
	StartTime clock.TimeOfDay `db:"start_time"`
	EndTime   clock.TimeOfDay `db:"end_time"`
	Timezone  string          `db:"requester_timezone"`
}

func (r *repository) AcceptedStays(ctx context.Context, spotID uuid.UUID) ([]availability.Stay, error) {
	var rows []stayRow
	err := sqlx.SelectContext(ctx, db.Ext(ctx, r.db), &rows, `
		SELECT start_date, end_date, start_time, end_time, requester_timezone
		FROM booking_requests
		WHERE spot_id = $1 AND status = $2
	`, spotID, StatusAccepted)
	if err != nil {
		return nil, err
	}

	stays := make([]availability.Stay, 0, len(rows))
	for _, row := range rows {
		stays = append(stays, availability.Stay{
			StartDate: row.StartDate,
			EndDate:   row.EndDate,
			StartTime: row.StartTime,
			EndTime:   row.EndTime,
			Timezone:  row.Timezone,
		})
	}
	return stays, nil
}

func (r *repository) MarkAccepted(ctx context.Context, id uuid.UUID, at time.Time, paymentCents *int64) (bool, error) {
	return r.transition(ctx, `
		UPDATE booking_requests
		SET status = $1, accepted_at = $2, payment_amount_cents = $3, payment_processed = $4, updated_at = NOW()
		WHERE id = $5 AND status = $6
	`, StatusAccepted, at, paymentCents, paymentCents != nil, id, StatusPending)
}

func (r *repository) MarkRejected(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.transition(ctx, `
		UPDATE booking_requests
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, StatusRejected, id, StatusPending)
}

func (r *repository) transition(ctx context.Context, query string, args ...interface{}) (bool, error) {
	res, err := db.Ext(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *repository) list(ctx context.Context, column string, id uuid.UUID, limit, offset int) ([]View, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var views []View
	err := sqlx.SelectContext(ctx, db.Ext(ctx, r.db), &views, `
		SELECT b.id, b.requester_id, b.owner_id, b.spot_id, b.status, b.start_date, b.end_date,
			b.start_time, b.end_time, b.requester_timezone, b.message, b.total_hours, b.total_price_cents,
			b.accepted_at, b.completed_at, b.payment_amount_cents, b.payment_processed,
			b.created_at, b.updated_at, s.name AS spot_name
		FROM booking_requests b
		JOIN spots s ON s.id = b.spot_id
		WHERE b.`+column+` = $1
		ORDER BY b.created_at DESC
		LIMIT $2 OFFSET $3
	`, id, limit, offset)
	if err != nil {
		return nil, err
	}
	if views == nil {
		views = []View{}
	}
	return views, nil
}

func (r *repository) ListIncoming(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]View, error) {
	return r.list(ctx, "owner_id", ownerID, limit, offset)
}

func (r *repository) ListOutgoing(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]View, error) {
	return r.list(ctx, "requester_id", requesterID, limit, offset)
}
