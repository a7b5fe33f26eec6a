package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"go.uber.org/zap"
)

// Scheduler fires each user's pipeline at their preferred weekday and hour.
// Users are independent, so eligible pipelines run concurrently through a
// bounded worker pool; one user's failure never touches another's run.
type Scheduler struct {
	pipeline *core.PipelineService
	store    core.Store
	logger   *zap.Logger
	cron     *cron.Cron
	maxUsers int
	now      func() time.Time
}

// New creates a new scheduler
func New(pipeline *core.PipelineService, store core.Store, logger *zap.Logger, maxConcurrentUsers int) *Scheduler {
	if maxConcurrentUsers <= 0 {
		maxConcurrentUsers = 1
	}
	return &Scheduler{
		pipeline: pipeline,
		store:    store,
		logger:   logger,
		cron:     cron.New(),
		maxUsers: maxConcurrentUsers,
		now:      time.Now,
	}
}

// Start begins the hourly eligibility sweep
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 * * * *", func() {
		s.Tick(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("max_concurrent_users", s.maxUsers))
	return nil
}

// Stop stops the cron loop and waits for any in-flight sweep to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Tick runs the pipelines of every user whose preferred slot matches the
// current UTC hour
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now().UTC()

	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		s.logger.Error("Failed to list profiles for sweep", zap.Error(err))
		return
	}

	var eligible []string
	for _, p := range profiles {
		if Eligible(p, now) {
			eligible = append(eligible, p.ID)
		}
	}
	if len(eligible) == 0 {
		return
	}

	s.logger.Info("Sweep found eligible users",
		zap.Int("eligible", len(eligible)),
		zap.String("slot", now.Format("Monday 15:00")))

	sem := make(chan struct{}, s.maxUsers)
	var wg sync.WaitGroup
	for _, userID := range eligible {
		wg.Add(1)
		sem <- struct{}{}
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome, err := s.pipeline.Run(ctx, id)
			if err != nil {
				s.logger.Error("Pipeline run failed", zap.String("user_id", id), zap.Error(err))
				return
			}
			s.logger.Info("Pipeline run finished",
				zap.String("user_id", id),
				zap.String("status", string(outcome.Status)),
				zap.Int("emails_summarized", outcome.EmailsSummarized),
				zap.Bool("delivered", outcome.Delivered))
		}(userID)
	}
	wg.Wait()
}

// Eligible reports whether the profile's preferred slot matches the given
// time. Days are weekday names and times are "HH:00" on the hour, matching
// what the settings surface stores.
func Eligible(profile *core.UserProfile, now time.Time) bool {
	if profile.DigestDay == "" || profile.DigestTime == "" {
		return false
	}
	return profile.DigestDay == now.Weekday().String() &&
		profile.DigestTime == now.Format("15")+":00"
}

// SetClock overrides the scheduler's time source, for tests
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}
