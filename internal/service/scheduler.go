package service

import (
	"context"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

const sweepLockName = "dispatch:sweep"

// SchedulerConfig tunes the timeout scheduler.
type SchedulerConfig struct {
	Windows       domain.DecisionWindows
	SweepInterval time.Duration
	SweepLockTTL  time.Duration
}

// SweepReport summarises one batch sweep.
type SweepReport struct {
	Examined       int           `json:"examined"`
	Expired        int           `json:"expired"`
	Assigned       int           `json:"assigned"`
	NoCandidates   int           `json:"no_candidates"`
	AlreadyHandled int           `json:"already_handled"`
	Failed         int           `json:"failed"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration_ns"`
}

// RideTimeoutScheduler assigns pending rides once their decision window
// has closed, either in batch sweeps or on demand for a single ride.
type RideTimeoutScheduler struct {
	rideRepo      repository.RideRepository
	executor      *AssignmentExecutor
	notifications *NotificationService
	lockStore     redis.LockStoreInterface // optional
	nrApp         *newrelic.Application    // optional
	cfg           SchedulerConfig
	log           *zap.Logger
	now           func() time.Time
}

// NewRideTimeoutScheduler creates a new RideTimeoutScheduler.
func NewRideTimeoutScheduler(
	rideRepo repository.RideRepository,
	executor *AssignmentExecutor,
	notifications *NotificationService,
	lockStore redis.LockStoreInterface,
	nrApp *newrelic.Application,
	cfg SchedulerConfig,
	log *zap.Logger,
) *RideTimeoutScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Windows.Immediate <= 0 || cfg.Windows.Scheduled <= 0 {
		cfg.Windows = domain.DefaultDecisionWindows()
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 15 * time.Second
	}
	if cfg.SweepLockTTL <= 0 {
		cfg.SweepLockTTL = 10 * time.Second
	}
	return &RideTimeoutScheduler{
		rideRepo:      rideRepo,
		executor:      executor,
		notifications: notifications,
		lockStore:     lockStore,
		nrApp:         nrApp,
		cfg:           cfg,
		log:           log,
		now:           time.Now,
	}
}

// Windows returns the decision windows in effect.
func (s *RideTimeoutScheduler) Windows() domain.DecisionWindows {
	return s.cfg.Windows
}

// Sweep attempts assignment for every expired pending ride. A failure on
// one ride is logged and counted; the sweep moves on to the next.
func (s *RideTimeoutScheduler) Sweep(ctx context.Context) (*SweepReport, error) {
	report := &SweepReport{StartedAt: s.now()}

	rides, err := s.rideRepo.ListByStatus(ctx, domain.RideStatusPending)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, ride := range rides {
		if err := ctx.Err(); err != nil {
			report.Duration = s.now().Sub(report.StartedAt)
			return report, err
		}
		report.Examined++
		if !s.cfg.Windows.Expired(ride, now) {
			continue
		}
		report.Expired++

		outcome, err := s.executor.Assign(ctx, ride.ID)
		if err != nil {
			report.Failed++
			s.log.Error("sweep assignment failed", zap.Int64("ride_id", ride.ID), zap.Error(err))
			continue
		}

		switch outcome.Kind {
		case OutcomeAssigned:
			report.Assigned++
			s.notifications.RideAssigned(outcome.Ride, outcome.Record)
		case OutcomeNoCandidates:
			report.NoCandidates++
		default:
			report.AlreadyHandled++
		}
	}

	report.Duration = s.now().Sub(report.StartedAt)
	if report.Expired > 0 {
		s.log.Info("sweep finished",
			zap.Int("examined", report.Examined),
			zap.Int("expired", report.Expired),
			zap.Int("assigned", report.Assigned),
			zap.Int("no_candidates", report.NoCandidates),
			zap.Int("already_handled", report.AlreadyHandled),
			zap.Int("failed", report.Failed),
		)
	}
	return report, nil
}

// TriggerRide attempts assignment for one ride if its window has closed.
// The deadline is always recomputed here from the ride's creation time.
func (s *RideTimeoutScheduler) TriggerRide(ctx context.Context, rideID int64) (*AssignmentOutcome, error) {
	if rideID <= 0 {
		return nil, ErrInvalidRideID
	}

	ride, err := getRide(ctx, s.rideRepo, rideID)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusPending {
		return &AssignmentOutcome{Kind: OutcomeRideNotPending, RideID: rideID, Status: ride.Status}, nil
	}
	if !s.cfg.Windows.Expired(ride, s.now()) {
		return &AssignmentOutcome{
			Kind:     OutcomeNotExpired,
			RideID:   rideID,
			Status:   ride.Status,
			Deadline: s.cfg.Windows.Deadline(ride),
		}, nil
	}

	outcome, err := s.executor.Assign(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if outcome.Kind == OutcomeAssigned {
		s.notifications.RideAssigned(outcome.Ride, outcome.Record)
	}
	return outcome, nil
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *RideTimeoutScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	s.log.Info("timeout scheduler started", zap.Duration("interval", s.cfg.SweepInterval))
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("timeout scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one sweep if this replica wins the sweep lock. The lock is left
// to expire so other replicas skip the same tick.
func (s *RideTimeoutScheduler) tick(ctx context.Context) {
	if s.lockStore != nil {
		acquired, err := s.lockStore.AcquireLock(ctx, sweepLockName, s.cfg.SweepLockTTL)
		if err != nil {
			s.log.Warn("sweep lock unavailable, sweeping anyway", zap.Error(err))
		} else if !acquired {
			s.log.Debug("sweep lock held by another replica")
			return
		}
	}

	// Transaction methods are safe on a nil txn.
	var txn *newrelic.Transaction
	if s.nrApp != nil {
		txn = s.nrApp.StartTransaction("dispatch.sweep")
		defer txn.End()
		ctx = newrelic.NewContext(ctx, txn)
	}

	report, err := s.Sweep(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// shutting down
			return
		}
		txn.NoticeError(err)
		s.log.Error("sweep failed", zap.Error(err))
		return
	}
	txn.AddAttribute("expired", report.Expired)
	txn.AddAttribute("assigned", report.Assigned)
	txn.AddAttribute("failed", report.Failed)
}
