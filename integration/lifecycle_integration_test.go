package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotshare/internal/booking"
	"spotshare/internal/spot"
	"spotshare/internal/wallet"
)

var monday = time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC)

func pricedSpot(t *testing.T, s *stack, owner uuid.UUID) *spot.Spot {
	price := int64(1000)
	sp, err := s.spots.Create(context.Background(), owner, spot.CreateSpotRequest{
		Name:       "Riverside bay 4",
		PriceCents: &price,
		Timezone:   "UTC",
	})
	require.NoError(t, err)
	return sp
}

func tuesdayMorning() booking.CreateBookingRequest {
	return booking.CreateBookingRequest{StartDate: "2026-03-10", StartTime: "09:00", EndTime: "11:00"}
}

func balance(t *testing.T, s *stack, user uuid.UUID) int64 {
	w, err := s.wallets.GetOrCreateWallet(context.Background(), user)
	require.NoError(t, err)
	return w.BalanceCents
}

func TestBookingLifecycle_Integration(t *testing.T) {
	conn := setupTestDB(t)
	s := newStack(conn, monday)
	ctx := context.Background()

	owner, requester := uuid.New(), uuid.New()
	sp := pricedSpot(t, s, owner)

	_, err := s.ledger.Credit(ctx, "cs_test_topup", requester, 5000, wallet.TxTopUp)
	require.NoError(t, err)

	b, err := s.bookings.Create(ctx, requester, sp.ID, tuesdayMorning())
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, b.Status)
	require.NotNil(t, b.TotalPriceCents)
	assert.Equal(t, int64(2000), *b.TotalPriceCents)

	resp, err := s.bookings.Accept(ctx, owner, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusAccepted, resp.Booking.Status)
	assert.Equal(t, int64(2800), balance(t, s, requester))
	assert.Equal(t, int64(2000), balance(t, s, owner))

	// a repeated accept is rejected and moves no money
	_, err = s.bookings.Accept(ctx, owner, b.ID)
	assert.ErrorIs(t, err, booking.ErrNotPending)
	assert.Equal(t, int64(2800), balance(t, s, requester))

	s.clock.now = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	report, err := s.runner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Reserved)

	got, err := s.spots.Get(ctx, owner, sp.ID)
	require.NoError(t, err)
	assert.Equal(t, spot.StatusReserved, got.Status)

	s.clock.now = time.Date(2026, time.March, 10, 11, 0, 1, 0, time.UTC)
	report, err = s.runner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Completed)

	final, err := s.bookings.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCompleted, final.Status)
	require.NotNil(t, final.CompletedAt)
	firstCompletion := *final.CompletedAt

	s.clock.now = s.clock.now.Add(time.Hour)
	report, err = s.runner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Completed)

	again, err := s.bookings.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, firstCompletion.Equal(*again.CompletedAt))
}

func TestOverlappingAccepts_Integration(t *testing.T) {
	conn := setupTestDB(t)
	s := newStack(conn, monday)
	ctx := context.Background()

	owner := uuid.New()
	sp := pricedSpot(t, s, owner)

	var ids []uuid.UUID
	for i := 0; i < 4; i++ {
		requester := uuid.New()
		_, err := s.ledger.Credit(ctx, "cs_overlap_"+requester.String(), requester, 5000, wallet.TxTopUp)
		require.NoError(t, err)
		b, err := s.bookings.Create(ctx, requester, sp.ID, tuesdayMorning())
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			if _, err := s.bookings.Accept(ctx, owner, id); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, booking.ErrConflict)
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, int64(2000), balance(t, s, owner))
}

func TestOwnerAndGatewaySettleOnce_Integration(t *testing.T) {
	conn := setupTestDB(t)
	s := newStack(conn, monday)
	ctx := context.Background()

	owner, requester := uuid.New(), uuid.New()
	sp := pricedSpot(t, s, owner)
	_, err := s.ledger.Credit(ctx, "cs_race", requester, 2200, wallet.TxGatewayPayment)
	require.NoError(t, err)

	b, err := s.bookings.Create(ctx, requester, sp.ID, tuesdayMorning())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, actor := range []uuid.UUID{owner, booking.SystemActor, owner, booking.SystemActor} {
		wg.Add(1)
		go func(actor uuid.UUID) {
			defer wg.Done()
			_, _ = s.bookings.Accept(ctx, actor, b.ID)
		}(actor)
	}
	wg.Wait()

	assert.Zero(t, balance(t, s, requester))
	assert.Equal(t, int64(2000), balance(t, s, owner))

	var settlements int
	require.NoError(t, conn.Get(&settlements, `SELECT COUNT(*) FROM settlements WHERE idempotency_key = $1`, wallet.BookingKey(b.ID)))
	assert.Equal(t, 1, settlements)
}

func TestInsufficientFundsLeavesPending_Integration(t *testing.T) {
	conn := setupTestDB(t)
	s := newStack(conn, monday)
	ctx := context.Background()

	owner, requester := uuid.New(), uuid.New()
	sp := pricedSpot(t, s, owner)
	_, err := s.ledger.Credit(ctx, "cs_short", requester, 1500, wallet.TxTopUp)
	require.NoError(t, err)

	b, err := s.bookings.Create(ctx, requester, sp.ID, tuesdayMorning())
	require.NoError(t, err)

	_, err = s.bookings.Accept(ctx, owner, b.ID)
	require.ErrorIs(t, err, wallet.ErrInsufficientFunds)

	still, err := s.bookings.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, still.Status)
	assert.Equal(t, int64(1500), balance(t, s, requester))

	var settlements int
	require.NoError(t, conn.Get(&settlements, `SELECT COUNT(*) FROM settlements WHERE kind = 'booking'`))
	assert.Zero(t, settlements)
}
