package spot

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"spotshare/internal/clock"
	"spotshare/internal/db"
)

const spotColumns = `id, owner_id, name, status, has_schedule, default_available, price_cents,
	latitude, longitude, timezone, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(conn *sqlx.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) Create(ctx context.Context, s *Spot) error {
	query := `
		INSERT INTO spots (id, owner_id, name, status, has_schedule, default_available,
			price_cents, latitude, longitude, timezone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	return db.Ext(ctx, r.db).QueryRowxContext(ctx, query,
		s.ID, s.OwnerID, s.Name, s.Status, s.HasSchedule, s.DefaultAvailable,
		s.PriceCents, s.Latitude, s.Longitude, s.Timezone,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *repository) get(ctx context.Context, query string, id uuid.UUID) (*Spot, error) {
	var s Spot
	if err := sqlx.GetContext(ctx, db.Ext(ctx, r.db), &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSpotNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Spot, error) {
	return r.get(ctx, `SELECT `+spotColumns+` FROM spots WHERE id = $1`, id)
}

func (r *repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Spot, error) {
	return r.get(ctx, `SELECT `+spotColumns+` FROM spots WHERE id = $1 FOR UPDATE`, id)
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]Spot, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + spotColumns + ` FROM spots ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	spots := []Spot{}
	if err := sqlx.SelectContext(ctx, db.Ext(ctx, r.db), &spots, query, limit, offset); err != nil {
		return nil, err
	}
	return spots, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	res, err := db.Ext(ctx, r.db).ExecContext(ctx,
		`UPDATE spots SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *repository) SetDefaultAvailable(ctx context.Context, id uuid.UUID, available bool) error {
	res, err := db.Ext(ctx, r.db).ExecContext(ctx,
		`UPDATE spots SET default_available = $1, updated_at = NOW() WHERE id = $2`, available, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ReplaceSchedule swaps the weekly slots and keeps has_schedule in step with
// whether any slot remains. Callers run it inside a transaction.
func (r *repository) ReplaceSchedule(ctx context.Context, id uuid.UUID, slots []ScheduleSlot) error {
	ext := db.Ext(ctx, r.db)

	if _, err := ext.ExecContext(ctx, `DELETE FROM weekly_schedule_slots WHERE spot_id = $1`, id); err != nil {
		return err
	}

	for i := range slots {
		err := ext.QueryRowxContext(ctx, `
			INSERT INTO weekly_schedule_slots (spot_id, day_of_week, start_time, end_time, is_available)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			id, slots[i].DayOfWeek, slots[i].StartTime, slots[i].EndTime, slots[i].IsAvailable,
		).Scan(&slots[i].ID)
		if err != nil {
			return err
		}
		slots[i].SpotID = id
	}

	res, err := ext.ExecContext(ctx,
		`UPDATE spots SET has_schedule = $1, updated_at = NOW() WHERE id = $2`, len(slots) > 0, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *repository) ListSlots(ctx context.Context, id uuid.UUID) ([]ScheduleSlot, error) {
	slots := []ScheduleSlot{}
	err := sqlx.SelectContext(ctx, db.Ext(ctx, r.db), &slots, `
		SELECT id, spot_id, day_of_week, start_time, end_time, is_available
		FROM weekly_schedule_slots
		WHERE spot_id = $1
		ORDER BY day_of_week, start_time`, id)
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *repository) AddBlackout(ctx context.Context, b *BlackoutDate) error {
	err := db.Ext(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO blackout_dates (spot_id, date, reason)
		VALUES ($1, $2, $3)
		ON CONFLICT (spot_id, date) DO UPDATE SET reason = EXCLUDED.reason
		RETURNING created_at`,
		b.SpotID, b.Date, b.Reason,
	).Scan(&b.CreatedAt)
	return err
}

func (r *repository) RemoveBlackout(ctx context.Context, id uuid.UUID, date clock.Date) (bool, error) {
	res, err := db.Ext(ctx, r.db).ExecContext(ctx,
		`DELETE FROM blackout_dates WHERE spot_id = $1 AND date = $2`, id, date)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *repository) ListBlackouts(ctx context.Context, id uuid.UUID) ([]BlackoutDate, error) {
	out := []BlackoutDate{}
	err := sqlx.SelectContext(ctx, db.Ext(ctx, r.db), &out, `
		SELECT spot_id, date, reason, created_at
		FROM blackout_dates
		WHERE spot_id = $1
		ORDER BY date`, id)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSpotNotFound
	}
	return nil
}
