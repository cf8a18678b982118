package spot

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spotshare/internal/apperror"
	"spotshare/internal/availability"
	"spotshare/internal/clock"
	"spotshare/internal/events"
	"spotshare/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, s *Spot) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Spot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Spot), args.Error(1)
}

func (m *MockRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Spot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Spot), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, limit, offset int) ([]Spot, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Spot), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockRepository) SetDefaultAvailable(ctx context.Context, id uuid.UUID, available bool) error {
	return m.Called(ctx, id, available).Error(0)
}

func (m *MockRepository) ReplaceSchedule(ctx context.Context, id uuid.UUID, slots []ScheduleSlot) error {
	return m.Called(ctx, id, slots).Error(0)
}

func (m *MockRepository) ListSlots(ctx context.Context, id uuid.UUID) ([]ScheduleSlot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ScheduleSlot), args.Error(1)
}

func (m *MockRepository) AddBlackout(ctx context.Context, b *BlackoutDate) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockRepository) RemoveBlackout(ctx context.Context, id uuid.UUID, date clock.Date) (bool, error) {
	args := m.Called(ctx, id, date)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) ListBlackouts(ctx context.Context, id uuid.UUID) ([]BlackoutDate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]BlackoutDate), args.Error(1)
}

type inlineTx struct{}

func (inlineTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}
func (p *recordingPublisher) Close() error { return nil }

type noBookings struct{}

func (noBookings) AcceptedStays(context.Context, uuid.UUID) ([]availability.Stay, error) {
	return nil, nil
}

// Monday 2026-03-09 10:00 UTC
var testNow = time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

func newTestService(repo Repository, pub events.Publisher) Service {
	return NewService(repo, inlineTx{}, availability.NewEngine(noBookings{}), pub, clock.Fixed(testNow), "UTC")
}

func TestService_Create(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, events.Noop{})
	owner := uuid.New()

	repo.On("Create", mock.Anything, mock.MatchedBy(func(s *Spot) bool {
		return s.OwnerID == owner && s.Status == StatusAvailable && s.DefaultAvailable && s.Timezone == "Europe/Bucharest"
	})).Return(nil)

	sp, err := svc.Create(context.Background(), owner, CreateSpotRequest{Name: "  Lot 4 ", Timezone: "Europe/Bucharest"})
	require.NoError(t, err)
	assert.Equal(t, "Lot 4", sp.Name)
	assert.NotEqual(t, uuid.Nil, sp.ID)
	repo.AssertExpectations(t)
}

func TestService_CreateRejectsUnknownZone(t *testing.T) {
	svc := newTestService(new(MockRepository), events.Noop{})

	_, err := svc.Create(context.Background(), uuid.New(), CreateSpotRequest{Name: "x", Timezone: "Nowhere/Land"})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestService_GetComputesEffectiveStatus(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, events.Noop{})
	owner := uuid.New()
	sp := &Spot{ID: uuid.New(), OwnerID: owner, Status: StatusAvailable, HasSchedule: true, Timezone: "UTC"}

	repo.On("GetByID", mock.Anything, sp.ID).Return(sp, nil)
	// schedule covers Tuesdays only, so Monday 10:00 is presented as occupied
	repo.On("ListSlots", mock.Anything, sp.ID).Return([]ScheduleSlot{
		{DayOfWeek: 2, StartTime: clock.NewTimeOfDay(8, 0), EndTime: clock.NewTimeOfDay(18, 0), IsAvailable: true},
	}, nil)
	repo.On("ListBlackouts", mock.Anything, sp.ID).Return([]BlackoutDate{}, nil)

	v, err := svc.Get(context.Background(), owner, sp.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOccupied, v.EffectiveStatus)
	assert.Equal(t, StatusAvailable, v.Status)
	assert.True(t, v.IsMine)
	assert.Len(t, v.Schedule, 1)

	other, err := svc.Get(context.Background(), uuid.New(), sp.ID)
	require.NoError(t, err)
	assert.False(t, other.IsMine)
}

func TestService_ListWithoutScheduleSkipsQueries(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, events.Noop{})
	viewer := uuid.New()

	repo.On("List", mock.Anything, 50, 0).Return([]Spot{
		{ID: uuid.New(), OwnerID: viewer, Status: StatusReserved},
		{ID: uuid.New(), OwnerID: uuid.New(), Status: StatusAvailable},
	}, nil)

	views, err := svc.List(context.Background(), viewer, 50, 0)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.True(t, views[0].IsMine)
	assert.Equal(t, StatusReserved, views[0].EffectiveStatus)
	assert.False(t, views[1].IsMine)
	repo.AssertNotCalled(t, "ListSlots", mock.Anything, mock.Anything)
}

func TestService_SetStatus(t *testing.T) {
	repo := new(MockRepository)
	pub := &recordingPublisher{}
	svc := newTestService(repo, pub)
	owner := uuid.New()
	sp := &Spot{ID: uuid.New(), OwnerID: owner, Status: StatusAvailable}

	repo.On("GetForUpdate", mock.Anything, sp.ID).Return(sp, nil)
	repo.On("UpdateStatus", mock.Anything, sp.ID, StatusOccupied).Return(nil)

	got, err := svc.SetStatus(context.Background(), owner, sp.ID, StatusOccupied)
	require.NoError(t, err)
	assert.Equal(t, StatusOccupied, got.Status)

	require.Len(t, pub.events, 1)
	payload := pub.events[0].Payload.(events.SpotStatusChanged)
	assert.Equal(t, "available", payload.OldStatus)
	assert.Equal(t, "occupied", payload.NewStatus)
	assert.Equal(t, events.SourceOwner, payload.Source)
}

func TestService_SetStatusRequiresOwner(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, events.Noop{})
	sp := &Spot{ID: uuid.New(), OwnerID: uuid.New(), Status: StatusAvailable}

	repo.On("GetForUpdate", mock.Anything, sp.ID).Return(sp, nil)

	_, err := svc.SetStatus(context.Background(), uuid.New(), sp.ID, StatusOccupied)
	assert.ErrorIs(t, err, ErrNotOwner)
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_SetStatusUnchangedIsQuiet(t *testing.T) {
	repo := new(MockRepository)
	pub := &recordingPublisher{}
	svc := newTestService(repo, pub)
	owner := uuid.New()
	sp := &Spot{ID: uuid.New(), OwnerID: owner, Status: StatusOccupied}

	repo.On("GetForUpdate", mock.Anything, sp.ID).Return(sp, nil)

	_, err := svc.SetStatus(context.Background(), owner, sp.ID, StatusOccupied)
	require.NoError(t, err)
	assert.Empty(t, pub.events)
}

func TestService_ReplaceSchedule(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, events.Noop{})
	owner := uuid.New()
	sp := &Spot{ID: uuid.New(), OwnerID: owner}
	off := false

	repo.On("GetForUpdate", mock.Anything, sp.ID).Return(sp, nil)
	repo.On("ReplaceSchedule", mock.Anything, sp.ID, mock.MatchedBy(func(s []ScheduleSlot) bool { return len(s) == 3 })).Return(nil)
	repo.On("SetDefaultAvailable", mock.Anything, sp.ID, false).Return(nil)

	slots, err := svc.ReplaceSchedule(context.Background(), owner, sp.ID, ReplaceScheduleRequest{
		Slots: []ScheduleSlotInput{
			{DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00"},
			{DayOfWeek: 1, StartTime: "12:00", EndTime: "17:00"},
			{DayOfWeek: 1, StartTime: "10:00", EndTime: "11:00", IsAvailable: &off},
		},
		DefaultAvailable: &off,
	})
	require.NoError(t, err)
	assert.Len(t, slots, 3)
	repo.AssertExpectations(t)
}

func TestParseSlots(t *testing.T) {
	tests := []struct {
		name string
		in   []ScheduleSlotInput
		ok   bool
	}{
		{"adjacent slots", []ScheduleSlotInput{{1, "09:00", "12:00", nil}, {1, "12:00", "13:00", nil}}, true},
		{"same time different days", []ScheduleSlotInput{{1, "09:00", "12:00", nil}, {2, "09:00", "12:00", nil}}, true},
		{"overlapping available", []ScheduleSlotInput{{3, "09:00", "12:00", nil}, {3, "11:00", "13:00", nil}}, false},
		{"end before start", []ScheduleSlotInput{{1, "12:00", "09:00", nil}}, false},
		{"bad day", []ScheduleSlotInput{{7, "09:00", "10:00", nil}}, false},
		{"bad time", []ScheduleSlotInput{{1, "9am", "10:00", nil}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSlots(tt.in)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperror.IsKind(err, apperror.KindValidation), "got %v", err)
			}
		})
	}
}

func TestService_RemoveBlackout(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, events.Noop{})
	owner := uuid.New()
	sp := &Spot{ID: uuid.New(), OwnerID: owner}
	day := clock.NewDate(2026, time.December, 25)

	repo.On("GetByID", mock.Anything, sp.ID).Return(sp, nil)
	repo.On("RemoveBlackout", mock.Anything, sp.ID, day).Return(false, nil).Once()

	err := svc.RemoveBlackout(context.Background(), owner, sp.ID, "2026-12-25")
	assert.ErrorIs(t, err, ErrBlackoutNotFound)

	err = svc.RemoveBlackout(context.Background(), owner, sp.ID, "25/12/2026")
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestService_CheckAvailability(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, events.Noop{})
	sp := &Spot{ID: uuid.New(), DefaultAvailable: false}

	repo.On("GetByID", mock.Anything, sp.ID).Return(sp, nil)

	stay, err := ParseStay("2026-03-10", "", "09:00", "10:00", "UTC")
	require.NoError(t, err)

	v, err := svc.CheckAvailability(context.Background(), sp.ID, stay)
	require.NoError(t, err)
	assert.False(t, v.Bookable)
	assert.Equal(t, apperror.ReasonNotAvailable, v.Reason)
}

func TestParseStay(t *testing.T) {
	stay, err := ParseStay("2026-03-09", "2026-03-11", "09:00", "17:30", "Europe/Bucharest")
	require.NoError(t, err)
	assert.Equal(t, 3, stay.Days())
	assert.Equal(t, clock.NewTimeOfDay(17, 30), stay.EndTime)

	_, err = ParseStay("2026-03-09", "", "09:00", "17:30", "Mars/Base")
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	_, err = ParseStay("2026-03-09", "", "18:00", "17:30", "")
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}
