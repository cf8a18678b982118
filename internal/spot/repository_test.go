package spot

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotshare/internal/clock"
)

var spotRowColumns = []string{
	"id", "owner_id", "name", "status", "has_schedule", "default_available", "price_cents",
	"latitude", "longitude", "timezone", "created_at", "updated_at",
}

func setupSpotMock(t *testing.T) (Repository, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dbx := sqlx.NewDb(sqlDB, "sqlmock")
	t.Cleanup(func() { dbx.Close() })
	return NewRepository(dbx), mock
}

func TestRepository_Create(t *testing.T) {
	repo, mock := setupSpotMock(t)
	price := int64(1000)
	sp := &Spot{
		ID:               uuid.New(),
		OwnerID:          uuid.New(),
		Name:             "Driveway on Elm St",
		Status:           StatusAvailable,
		DefaultAvailable: true,
		PriceCents:       &price,
		Timezone:         "UTC",
	}
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO spots`).
		WithArgs(sp.ID, sp.OwnerID, sp.Name, sp.Status, false, true, price, 0.0, 0.0, "UTC").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	require.NoError(t, repo.Create(context.Background(), sp))
	assert.Equal(t, now, sp.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByID(t *testing.T) {
	repo, mock := setupSpotMock(t)
	id, owner := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT .* FROM spots WHERE id = \$1$`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(spotRowColumns).
			AddRow(id.String(), owner.String(), "Garage", "occupied", true, false, nil, 44.4, 26.1, "Europe/Bucharest", time.Now(), time.Now()))

	sp, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, sp.ID)
	assert.Equal(t, owner, sp.OwnerID)
	assert.Equal(t, StatusOccupied, sp.Status)
	assert.Nil(t, sp.PriceCents)
	assert.False(t, sp.Priced())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := setupSpotMock(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM spots`).WithArgs(id).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrSpotNotFound)
}

func TestRepository_GetForUpdateLocks(t *testing.T) {
	repo, mock := setupSpotMock(t)
	id := uuid.New()

	mock.ExpectQuery(`FROM spots WHERE id = \$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(spotRowColumns).
			AddRow(id.String(), uuid.NewString(), "Garage", "available", false, true, int64(500), 0.0, 0.0, "UTC", time.Now(), time.Now()))

	sp, err := repo.GetForUpdate(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, sp.PriceCents)
	assert.Equal(t, int64(500), *sp.PriceCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateStatus_Missing(t *testing.T) {
	repo, mock := setupSpotMock(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE spots SET status = $1, updated_at = NOW() WHERE id = $2`)).
		WithArgs(StatusReserved, id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), id, StatusReserved)
	assert.ErrorIs(t, err, ErrSpotNotFound)
}

func TestRepository_ReplaceSchedule(t *testing.T) {
	repo, mock := setupSpotMock(t)
	id := uuid.New()
	slots := []ScheduleSlot{
		{DayOfWeek: 1, StartTime: clock.NewTimeOfDay(9, 0), EndTime: clock.NewTimeOfDay(17, 0), IsAvailable: true},
	}

	mock.ExpectExec(`DELETE FROM weekly_schedule_slots WHERE spot_id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectQuery(`INSERT INTO weekly_schedule_slots`).
		WithArgs(id, 1, "09:00:00", "17:00:00", true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectExec(`UPDATE spots SET has_schedule = \$1`).
		WithArgs(true, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ReplaceSchedule(context.Background(), id, slots))
	assert.Equal(t, int64(11), slots[0].ID)
	assert.Equal(t, id, slots[0].SpotID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListSlotsScansTime(t *testing.T) {
	repo, mock := setupSpotMock(t)
	id := uuid.New()

	mock.ExpectQuery(`FROM weekly_schedule_slots`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "spot_id", "day_of_week", "start_time", "end_time", "is_available"}).
			AddRow(int64(1), id.String(), 2, "08:30:00", "12:00:00", true))

	slots, err := repo.ListSlots(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, clock.NewTimeOfDay(8, 30), slots[0].StartTime)
	assert.Equal(t, 2, slots[0].DayOfWeek)
}

func TestRepository_Blackouts(t *testing.T) {
	repo, mock := setupSpotMock(t)
	id := uuid.New()
	day := clock.NewDate(2026, time.December, 25)
	reason := "holiday"

	mock.ExpectQuery(`INSERT INTO blackout_dates`).
		WithArgs(id, "2026-12-25", &reason).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec(`DELETE FROM blackout_dates`).
		WithArgs(id, "2026-12-25").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AddBlackout(context.Background(), &BlackoutDate{SpotID: id, Date: day, Reason: &reason}))

	removed, err := repo.RemoveBlackout(context.Background(), id, day)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
