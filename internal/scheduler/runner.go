package scheduler

import (
	"context"
	"sync"
	"time"

	"spotshare/internal/booking"
	"spotshare/internal/clock"
	"spotshare/internal/db"
	"spotshare/internal/events"
	"spotshare/internal/logger"
	"spotshare/internal/metrics"
	"spotshare/internal/spot"
)

// Report summarises one pass.
type Report struct {
	Candidates int `json:"candidates"`
	Reserved   int `json:"reserved"`
	Completed  int `json:"completed"`
	Released   int `json:"released"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

type Runner struct {
	repo      Repository
	tx        db.Transactor
	publisher events.Publisher
	clock     clock.Clock

	// passes from the ticker and the admin endpoint never overlap
	mu sync.Mutex
}

func NewRunner(repo Repository, tx db.Transactor, publisher events.Publisher, clk clock.Clock) *Runner {
	return &Runner{
		repo:      repo,
		tx:        tx,
		publisher: publisher,
		clock:     clk,
	}
}

// RunOnce performs a single pass. Only a failure to load candidates is
// returned; per-booking failures are logged and counted.
func (r *Runner) RunOnce(ctx context.Context) (Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := time.Now()
	now := r.clock.Now()

	var report Report
	candidates, err := r.repo.Candidates(ctx)
	if err != nil {
		metrics.RecordSchedulerRun("error", time.Since(started).Seconds())
		logger.Error("scheduler failed to load bookings", "error", err)
		return report, err
	}
	report.Candidates = len(candidates)

	for _, t := range Plan(now, candidates) {
		var err error
		switch t.Action {
		case ActionReserve:
			err = r.reserve(ctx, t, now, &report)
		case ActionComplete:
			err = r.complete(ctx, t, now, &report)
		}
		if err != nil {
			report.Failed++
			logger.Error("scheduler transition failed",
				"action", t.Action, "booking_id", t.BookingID, "spot_id", t.SpotID, "error", err)
		}
	}

	result := "ok"
	if report.Failed > 0 {
		result = "partial"
	}
	metrics.RecordSchedulerRun(result, time.Since(started).Seconds())

	if report.Reserved+report.Completed+report.Failed > 0 {
		logger.Info("scheduler pass finished",
			"candidates", report.Candidates,
			"reserved", report.Reserved,
			"completed", report.Completed,
			"released", report.Released,
			"skipped", report.Skipped,
			"failed", report.Failed,
		)
	}
	return report, nil
}

func (r *Runner) reserve(ctx context.Context, t Transition, now time.Time, report *Report) error {
	ok, err := r.repo.SetSpotStatus(ctx, t.SpotID, []spot.Status{spot.StatusAvailable}, spot.StatusReserved)
	if err != nil {
		return err
	}
	if !ok {
		report.Skipped++
		return nil
	}

	report.Reserved++
	metrics.RecordSchedulerTransition(string(ActionReserve))
	r.emitSpot(ctx, t, spot.StatusAvailable, spot.StatusReserved, now)
	return nil
}

func (r *Runner) complete(ctx context.Context, t Transition, now time.Time, report *Report) error {
	var completed, released bool
	err := r.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		completed, err = r.repo.CompleteBooking(ctx, t.BookingID, now)
		if err != nil || !completed {
			return err
		}
		if t.To == "" {
			return nil
		}
		released, err = r.repo.SetSpotStatus(ctx, t.SpotID,
			[]spot.Status{spot.StatusReserved, spot.StatusOccupied}, spot.StatusAvailable)
		return err
	})
	if err != nil {
		return err
	}
	if !completed {
		report.Skipped++
		return nil
	}

	report.Completed++
	metrics.RecordSchedulerTransition(string(ActionComplete))
	metrics.RecordBookingTransition(string(booking.StatusCompleted), "scheduler")
	events.Emit(ctx, r.publisher, events.New(events.TypeBookingStatusChanged, events.BookingStatusChanged{
		BookingID: t.BookingID,
		SpotID:    t.SpotID,
		OldStatus: string(booking.StatusAccepted),
		NewStatus: string(booking.StatusCompleted),
		Actor:     events.SourceScheduler,
	}, now))

	if released {
		report.Released++
		metrics.RecordSchedulerTransition("release")
		r.emitSpot(ctx, t, t.From, spot.StatusAvailable, now)
	}
	return nil
}

func (r *Runner) emitSpot(ctx context.Context, t Transition, from, to spot.Status, now time.Time) {
	events.Emit(ctx, r.publisher, events.New(events.TypeSpotStatusChanged, events.SpotStatusChanged{
		SpotID:    t.SpotID,
		OldStatus: string(from),
		NewStatus: string(to),
		Source:    events.SourceScheduler,
	}, now))
}

// Start runs a pass immediately and then every interval until ctx is done.
func (r *Runner) Start(ctx context.Context, interval time.Duration) {
	logger.Info("scheduler started", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}
