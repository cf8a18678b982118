package spot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"spotshare/internal/apperror"
	"spotshare/internal/availability"
	"spotshare/internal/clock"
	"spotshare/internal/db"
	"spotshare/internal/events"
	"spotshare/internal/logger"
)

var (
	ErrSpotNotFound     = apperror.NotFound("spot")
	ErrBlackoutNotFound = apperror.NotFound("blackout date")
	ErrNotOwner         = apperror.New(apperror.KindForbidden, "only the spot owner can manage this spot")
)

type Service interface {
	Create(ctx context.Context, owner uuid.UUID, req CreateSpotRequest) (*Spot, error)
	Get(ctx context.Context, viewer, id uuid.UUID) (*View, error)
	List(ctx context.Context, viewer uuid.UUID, limit, offset int) ([]View, error)
	SetStatus(ctx context.Context, actor, id uuid.UUID, status Status) (*Spot, error)
	ReplaceSchedule(ctx context.Context, actor, id uuid.UUID, req ReplaceScheduleRequest) ([]ScheduleSlot, error)
	AddBlackout(ctx context.Context, actor, id uuid.UUID, req BlackoutRequest) (*BlackoutDate, error)
	RemoveBlackout(ctx context.Context, actor, id uuid.UUID, date string) error
	Schedule(ctx context.Context, s *Spot) (availability.Schedule, error)
	CheckAvailability(ctx context.Context, id uuid.UUID, stay availability.Stay) (availability.Verdict, error)
}

type service struct {
	repo      Repository
	tx        db.Transactor
	engine    *availability.Engine
	publisher events.Publisher
	clock     clock.Clock
	defaultTZ string
}

func NewService(repo Repository, tx db.Transactor, engine *availability.Engine, publisher events.Publisher, clk clock.Clock, defaultTZ string) Service {
	if defaultTZ == "" {
		defaultTZ = "UTC"
	}
	return &service{
		repo:      repo,
		tx:        tx,
		engine:    engine,
		publisher: publisher,
		clock:     clk,
		defaultTZ: defaultTZ,
	}
}

func (s *service) Create(ctx context.Context, owner uuid.UUID, req CreateSpotRequest) (*Spot, error) {
	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = s.defaultTZ
	}
	if _, ok := clock.LoadLocation(tz); !ok {
		return nil, apperror.Validation("unknown timezone " + tz)
	}

	sp := &Spot{
		ID:               uuid.New(),
		OwnerID:          owner,
		Name:             strings.TrimSpace(req.Name),
		Status:           StatusAvailable,
		DefaultAvailable: true,
		PriceCents:       req.PriceCents,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		Timezone:         tz,
	}
	if req.DefaultAvailable != nil {
		sp.DefaultAvailable = *req.DefaultAvailable
	}
	if sp.Name == "" {
		return nil, apperror.Validation("name is required")
	}

	if err := s.repo.Create(ctx, sp); err != nil {
		return nil, fmt.Errorf("create spot: %w", err)
	}

	logger.Info("spot created", "spot_id", sp.ID, "owner_id", owner)
	return sp, nil
}

func (s *service) Get(ctx context.Context, viewer, id uuid.UUID) (*View, error) {
	sp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, viewer, sp, true)
}

func (s *service) List(ctx context.Context, viewer uuid.UUID, limit, offset int) ([]View, error) {
	spots, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list spots: %w", err)
	}

	views := make([]View, 0, len(spots))
	for i := range spots {
		v, err := s.view(ctx, viewer, &spots[i], false)
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

func (s *service) view(ctx context.Context, viewer uuid.UUID, sp *Spot, detailed bool) (*View, error) {
	v := &View{
		Spot:            *sp,
		EffectiveStatus: sp.Status,
		IsMine:          viewer != uuid.Nil && viewer == sp.OwnerID,
	}
	if !sp.HasSchedule {
		return v, nil
	}

	slots, blackouts, err := s.load(ctx, sp.ID)
	if err != nil {
		return nil, err
	}
	loc, _ := clock.LoadLocation(sp.Timezone)
	sched := BuildSchedule(sp, slots, blackouts)
	v.EffectiveStatus = Status(availability.DisplayStatus(string(sp.Status), sched, loc, s.clock.Now()))

	if detailed {
		v.Schedule = slots
		v.Blackouts = blackouts
	}
	return v, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) ([]ScheduleSlot, []BlackoutDate, error) {
	return loadRows(ctx, s.repo, id)
}

func loadRows(ctx context.Context, r ScheduleReader, id uuid.UUID) ([]ScheduleSlot, []BlackoutDate, error) {
	slots, err := r.ListSlots(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load schedule: %w", err)
	}
	blackouts, err := r.ListBlackouts(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load blackouts: %w", err)
	}
	return slots, blackouts, nil
}

// LoadSchedule assembles the availability inputs for a spot. Spots without a
// schedule skip the slot and blackout queries.
func LoadSchedule(ctx context.Context, r ScheduleReader, sp *Spot) (availability.Schedule, error) {
	if !sp.HasSchedule {
		return BuildSchedule(sp, nil, nil), nil
	}
	slots, blackouts, err := loadRows(ctx, r, sp.ID)
	if err != nil {
		return availability.Schedule{}, err
	}
	return BuildSchedule(sp, slots, blackouts), nil
}

func (s *service) Schedule(ctx context.Context, sp *Spot) (availability.Schedule, error) {
	return LoadSchedule(ctx, s.repo, sp)
}

func (s *service) CheckAvailability(ctx context.Context, id uuid.UUID, stay availability.Stay) (availability.Verdict, error) {
	sp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return availability.Verdict{}, err
	}
	sched, err := s.Schedule(ctx, sp)
	if err != nil {
		return availability.Verdict{}, err
	}
	return s.engine.IsBookable(ctx, id, sched, stay)
}

func (s *service) SetStatus(ctx context.Context, actor, id uuid.UUID, status Status) (*Spot, error) {
	if !status.Valid() {
		return nil, apperror.Validation("status must be available, reserved or occupied")
	}

	var sp *Spot
	var old Status
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		sp, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if sp.OwnerID != actor {
			return ErrNotOwner
		}
		old = sp.Status
		if old == status {
			return nil
		}
		if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
			return fmt.Errorf("update spot status: %w", err)
		}
		sp.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	if old != status {
		logger.Info("spot status set by owner", "spot_id", id, "from", old, "to", status)
		events.Emit(ctx, s.publisher, events.New(events.TypeSpotStatusChanged, events.SpotStatusChanged{
			SpotID:    id,
			OldStatus: string(old),
			NewStatus: string(status),
			Source:    events.SourceOwner,
		}, s.clock.Now()))
	}
	return sp, nil
}

func (s *service) ReplaceSchedule(ctx context.Context, actor, id uuid.UUID, req ReplaceScheduleRequest) ([]ScheduleSlot, error) {
	slots, err := parseSlots(req.Slots)
	if err != nil {
		return nil, err
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		sp, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if sp.OwnerID != actor {
			return ErrNotOwner
		}
		if err := s.repo.ReplaceSchedule(ctx, id, slots); err != nil {
			return fmt.Errorf("replace schedule: %w", err)
		}
		if req.DefaultAvailable != nil {
			if err := s.repo.SetDefaultAvailable(ctx, id, *req.DefaultAvailable); err != nil {
				return fmt.Errorf("set default availability: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("spot schedule replaced", "spot_id", id, "slots", len(slots))
	return slots, nil
}

// parseSlots validates the weekly slots. Available slots on the same weekday
// must not overlap.
func parseSlots(in []ScheduleSlotInput) ([]ScheduleSlot, error) {
	slots := make([]ScheduleSlot, 0, len(in))
	for i, raw := range in {
		if raw.DayOfWeek < 0 || raw.DayOfWeek > 6 {
			return nil, apperror.Validation(fmt.Sprintf("slot %d: day_of_week must be between 0 and 6", i))
		}
		start, err := clock.ParseTimeOfDay(raw.StartTime)
		if err != nil {
			return nil, apperror.Wrap(apperror.KindValidation, fmt.Sprintf("slot %d: invalid start_time", i), err)
		}
		end, err := clock.ParseTimeOfDay(raw.EndTime)
		if err != nil {
			return nil, apperror.Wrap(apperror.KindValidation, fmt.Sprintf("slot %d: invalid end_time", i), err)
		}
		if end <= start {
			return nil, apperror.Validation(fmt.Sprintf("slot %d: end_time must be after start_time", i))
		}
		available := true
		if raw.IsAvailable != nil {
			available = *raw.IsAvailable
		}
		slots = append(slots, ScheduleSlot{
			DayOfWeek:   raw.DayOfWeek,
			StartTime:   start,
			EndTime:     end,
			IsAvailable: available,
		})
	}

	sorted := make([]ScheduleSlot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].DayOfWeek != sorted[j].DayOfWeek {
			return sorted[i].DayOfWeek < sorted[j].DayOfWeek
		}
		return sorted[i].StartTime < sorted[j].StartTime
	})
	var prev *ScheduleSlot
	for i := range sorted {
		cur := &sorted[i]
		if !cur.IsAvailable {
			continue
		}
		if prev != nil && prev.DayOfWeek == cur.DayOfWeek && cur.StartTime < prev.EndTime {
			return nil, apperror.Validation(fmt.Sprintf("available slots overlap on day %d", cur.DayOfWeek))
		}
		prev = cur
	}
	return slots, nil
}

func (s *service) AddBlackout(ctx context.Context, actor, id uuid.UUID, req BlackoutRequest) (*BlackoutDate, error) {
	date, err := clock.ParseDate(req.Date)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, "invalid date", err)
	}

	sp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sp.OwnerID != actor {
		return nil, ErrNotOwner
	}

	b := &BlackoutDate{SpotID: id, Date: date}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		b.Reason = &reason
	}
	if err := s.repo.AddBlackout(ctx, b); err != nil {
		return nil, fmt.Errorf("add blackout: %w", err)
	}
	return b, nil
}

func (s *service) RemoveBlackout(ctx context.Context, actor, id uuid.UUID, date string) error {
	d, err := clock.ParseDate(date)
	if err != nil {
		return apperror.Wrap(apperror.KindValidation, "invalid date", err)
	}

	sp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sp.OwnerID != actor {
		return ErrNotOwner
	}

	removed, err := s.repo.RemoveBlackout(ctx, id, d)
	if err != nil {
		return fmt.Errorf("remove blackout: %w", err)
	}
	if !removed {
		return ErrBlackoutNotFound
	}
	return nil
}
