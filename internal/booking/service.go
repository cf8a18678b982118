package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"spotshare/internal/apperror"
	"spotshare/internal/availability"
	"spotshare/internal/clock"
	"spotshare/internal/db"
	"spotshare/internal/events"
	"spotshare/internal/logger"
	"spotshare/internal/metrics"
	"spotshare/internal/spot"
	"spotshare/internal/wallet"
)

var (
	ErrBookingNotFound  = apperror.NotFound("booking request")
	ErrNotOwner         = apperror.New(apperror.KindForbidden, "only the spot owner can decide on this request")
	ErrNotPending       = apperror.New(apperror.KindInvalidState, "booking request is no longer pending")
	ErrConflict         = apperror.New(apperror.KindConflict, "the requested interval overlaps an accepted booking")
	ErrDuplicatePending = apperror.New(apperror.KindConflict, "a pending request for this spot already exists")
	ErrSelfBooking      = apperror.Validation("you cannot book your own spot")
	ErrStartInPast      = apperror.Validation("the stay must start in the future")
)

// SystemActor accepts bookings on behalf of the payment gateway.
var SystemActor = uuid.MustParse("ffffffff-ffff-ffff-ffff-ffffffffffff")

// Trigger labels for transition metrics.
const (
	TriggerRequest = "request"
	TriggerOwner   = "owner"
	TriggerGateway = "gateway"
)

// SpotStore is the part of the spot repository bookings need.
type SpotStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*spot.Spot, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*spot.Spot, error)
	spot.ScheduleReader
}

// Settler moves money for an accepted booking exactly once per key.
type Settler interface {
	Settle(ctx context.Context, req wallet.SettlementRequest) (wallet.Outcome, error)
}

type Service interface {
	Create(ctx context.Context, requester, spotID uuid.UUID, req CreateBookingRequest) (*BookingRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*BookingRequest, error)
	Accept(ctx context.Context, actor, id uuid.UUID) (*AcceptResponse, error)
	Reject(ctx context.Context, actor, id uuid.UUID) (*BookingRequest, error)
	ListIncoming(ctx context.Context, owner uuid.UUID, limit, offset int) ([]View, error)
	ListOutgoing(ctx context.Context, requester uuid.UUID, limit, offset int) ([]View, error)
}

type service struct {
	repo      Repository
	spots     SpotStore
	engine    *availability.Engine
	ledger    Settler
	tx        db.Transactor
	publisher events.Publisher
	clock     clock.Clock
	defaultTZ string
}

func NewService(
	repo Repository,
	spots SpotStore,
	engine *availability.Engine,
	ledger Settler,
	tx db.Transactor,
	publisher events.Publisher,
	clk clock.Clock,
	defaultTZ string,
) Service {
	if defaultTZ == "" {
		defaultTZ = "UTC"
	}
	return &service{
		repo:      repo,
		spots:     spots,
		engine:    engine,
		ledger:    ledger,
		tx:        tx,
		publisher: publisher,
		clock:     clk,
		defaultTZ: defaultTZ,
	}
}

func (s *service) Create(ctx context.Context, requester, spotID uuid.UUID, req CreateBookingRequest) (*BookingRequest, error) {
	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = s.defaultTZ
	}
	stay, err := spot.ParseStay(req.StartDate, req.EndDate, req.StartTime, req.EndTime, tz)
	if err != nil {
		return nil, err
	}
	if !stay.Start().After(s.clock.Now()) {
		return nil, ErrStartInPast
	}

	sp, err := s.spots.GetByID(ctx, spotID)
	if err != nil {
		return nil, err
	}
	if sp.OwnerID == requester {
		return nil, ErrSelfBooking
	}

	pending, err := s.repo.HasPending(ctx, requester, spotID)
	if err != nil {
		return nil, fmt.Errorf("check pending requests: %w", err)
	}
	if pending {
		return nil, ErrDuplicatePending
	}

	sched, err := spot.LoadSchedule(ctx, s.spots, sp)
	if err != nil {
		return nil, err
	}
	verdict, err := s.engine.IsBookable(ctx, spotID, sched, stay)
	if err != nil {
		return nil, err
	}
	if !verdict.Bookable {
		metrics.RecordAvailabilityRejection(verdict.Reason)
		return nil, verdict.Err()
	}
	// IsBookable leaves conflicts alone for spots without a schedule.
	if !sched.HasSchedule {
		conflict, err := s.engine.HasConflict(ctx, spotID, stay)
		if err != nil {
			return nil, err
		}
		if conflict {
			metrics.RecordAvailabilityRejection(apperror.ReasonAlreadyBooked)
			return nil, apperror.Unavailable(apperror.ReasonAlreadyBooked)
		}
	}

	b := &BookingRequest{
		ID:                uuid.New(),
		RequesterID:       requester,
		OwnerID:           sp.OwnerID,
		SpotID:            spotID,
		Status:            StatusPending,
		StartDate:         stay.StartDate,
		EndDate:           stay.EndDate,
		StartTime:         stay.StartTime,
		EndTime:           stay.EndTime,
		RequesterTimezone: tz,
		TotalHours:        stay.TotalHours(),
	}
	if msg := strings.TrimSpace(req.Message); msg != "" {
		b.Message = &msg
	}
	if sp.Priced() {
		amount := QuoteFor(*sp.PriceCents, stay.TotalMinutes()).AmountCents
		b.TotalPriceCents = &amount
	}

	if err := s.repo.Create(ctx, b); err != nil {
		if errors.Is(err, ErrDuplicatePending) {
			return nil, err
		}
		return nil, fmt.Errorf("create booking request: %w", err)
	}

	metrics.RecordBookingTransition(string(StatusPending), TriggerRequest)
	logger.Info("booking requested", "booking_id", b.ID, "spot_id", spotID, "requester_id", requester)
	s.emit(ctx, b, "", requester)
	return b, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*BookingRequest, error) {
	return s.repo.GetByID(ctx, id)
}

// Accept moves a pending request to accepted and settles its payment. The
// booking and spot rows stay locked until the settlement commits, so two
// overlapping requests cannot both be accepted and a request is never paid
// twice.
func (s *service) Accept(ctx context.Context, actor, id uuid.UUID) (*AcceptResponse, error) {
	var b *BookingRequest
	var alreadySettled bool

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if actor != SystemActor && actor != b.OwnerID {
			return ErrNotOwner
		}
		if !b.Status.CanTransition(StatusAccepted) {
			return ErrNotPending
		}

		sp, err := s.spots.GetForUpdate(ctx, b.SpotID)
		if err != nil {
			return err
		}
		conflict, err := s.engine.HasConflict(ctx, b.SpotID, b.Stay())
		if err != nil {
			return err
		}
		if conflict {
			return ErrConflict
		}

		var paid *int64
		if q, ok := quoteAt(b, sp); ok {
			outcome, err := s.ledger.Settle(ctx, wallet.SettlementRequest{
				Key:       wallet.BookingKey(b.ID),
				BookingID: b.ID,
				From:      b.RequesterID,
				To:        b.OwnerID,
				Amount:    q.AmountCents,
				Fee:       q.FeeCents,
			})
			if err != nil {
				return err
			}
			if outcome == wallet.OutcomeAlreadySettled {
				alreadySettled = true
				logger.Info("booking already settled", "booking_id", b.ID)
			}
			total := q.TotalCents()
			paid = &total
		}

		now := s.clock.Now()
		ok, err := s.repo.MarkAccepted(ctx, b.ID, now, paid)
		if err != nil {
			return fmt.Errorf("mark booking accepted: %w", err)
		}
		if !ok {
			return ErrNotPending
		}
		b.Status = StatusAccepted
		b.AcceptedAt = &now
		b.PaymentAmountCents = paid
		b.PaymentProcessed = paid != nil
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotPending) {
			logger.Info("accept skipped", "booking_id", id, "actor", actor, "reason", err)
		}
		return nil, err
	}

	trigger := TriggerOwner
	if actor == SystemActor {
		trigger = TriggerGateway
	}
	metrics.RecordBookingTransition(string(StatusAccepted), trigger)
	logger.Info("booking accepted", "booking_id", b.ID, "spot_id", b.SpotID, "trigger", trigger)
	s.emit(ctx, b, StatusPending, actor)
	return &AcceptResponse{Booking: b, AlreadySettled: alreadySettled}, nil
}

// quoteAt prices b from the total stored at request time. Requests made while
// the spot was unpriced fall back to the spot's current rate.
func quoteAt(b *BookingRequest, sp *spot.Spot) (Quote, bool) {
	if q, ok := b.Quote(); ok {
		return q, true
	}
	if sp.Priced() {
		return QuoteFor(*sp.PriceCents, b.Stay().TotalMinutes()), true
	}
	return Quote{}, false
}

func (s *service) Reject(ctx context.Context, actor, id uuid.UUID) (*BookingRequest, error) {
	var b *BookingRequest
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if actor != b.OwnerID {
			return ErrNotOwner
		}
		if !b.Status.CanTransition(StatusRejected) {
			return ErrNotPending
		}
		ok, err := s.repo.MarkRejected(ctx, id)
		if err != nil {
			return fmt.Errorf("mark booking rejected: %w", err)
		}
		if !ok {
			return ErrNotPending
		}
		b.Status = StatusRejected
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordBookingTransition(string(StatusRejected), TriggerOwner)
	logger.Info("booking rejected", "booking_id", id, "spot_id", b.SpotID)
	s.emit(ctx, b, StatusPending, actor)
	return b, nil
}

func (s *service) ListIncoming(ctx context.Context, owner uuid.UUID, limit, offset int) ([]View, error) {
	views, err := s.repo.ListIncoming(ctx, owner, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list incoming bookings: %w", err)
	}
	return markMine(views, owner), nil
}

func (s *service) ListOutgoing(ctx context.Context, requester uuid.UUID, limit, offset int) ([]View, error) {
	views, err := s.repo.ListOutgoing(ctx, requester, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list outgoing bookings: %w", err)
	}
	return markMine(views, requester), nil
}

// markMine flags the requests the viewer made.
func markMine(views []View, viewer uuid.UUID) []View {
	for i := range views {
		views[i].IsMine = views[i].RequesterID == viewer
	}
	return views
}

func (s *service) emit(ctx context.Context, b *BookingRequest, old Status, actor uuid.UUID) {
	who := actor.String()
	if actor == SystemActor {
		who = "system"
	}
	events.Emit(ctx, s.publisher, events.New(events.TypeBookingStatusChanged, events.BookingStatusChanged{
		BookingID: b.ID,
		SpotID:    b.SpotID,
		OldStatus: string(old),
		NewStatus: string(b.Status),
		Actor:     who,
	}, s.clock.Now()))
}
