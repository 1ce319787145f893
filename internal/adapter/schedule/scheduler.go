package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/solisagility/internal/config"
	"github.com/berfenger/solisagility/internal/core/domain"
	"github.com/berfenger/solisagility/internal/core/port"

	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

// Dispatch hands a request to the agility actor.
type Dispatch func(req domain.ActorRequest)

// Scheduler fires the periodic agility requests from cron triggers evaluated
// in the installation's time zone.
type Scheduler struct {
	sched    quartz.Scheduler
	cfg      config.ScheduleConfig
	plan     map[string]string
	clock    port.Clock
	loc      *time.Location
	dispatch Dispatch
	logger   *zap.Logger
}

func NewScheduler(cfg config.ScheduleConfig, plan map[string]string, clock port.Clock, loc *time.Location, dispatch Dispatch, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sched:    quartz.NewStdScheduler(),
		cfg:      cfg,
		plan:     plan,
		clock:    clock,
		loc:      loc,
		dispatch: dispatch,
		logger:   logger.With(zap.String("component", "schedule")),
	}
}

// Start registers every configured cron job and starts the scheduler. An
// empty cron expression disables its job.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		name     string
		cron     string
		requests func(domain.Moment) []domain.ActorRequest
	}{
		{"slot", s.cfg.SlotCron, s.slotRequests},
		{"telemetry", s.cfg.TelemetryCron, s.telemetryRequests},
		{"trim", s.cfg.TrimCron, func(domain.Moment) []domain.ActorRequest {
			return []domain.ActorRequest{domain.TrimHistoryRequest{}}
		}},
		{"clock_sync", s.cfg.ClockSyncCron, func(domain.Moment) []domain.ActorRequest {
			return []domain.ActorRequest{domain.SyncClockRequest{}}
		}},
	}
	for _, j := range jobs {
		if j.cron == "" {
			s.logger.Info("schedule@start: job disabled", zap.String("job", j.name))
			continue
		}
		if err := s.schedule(j.name, j.cron, j.requests); err != nil {
			return err
		}
	}
	s.sched.Start(ctx)
	return nil
}

func (s *Scheduler) Stop() {
	s.sched.Stop()
}

func (s *Scheduler) schedule(name, cron string, requests func(domain.Moment) []domain.ActorRequest) error {
	trigger, err := quartz.NewCronTriggerWithLoc(cron, s.loc)
	if err != nil {
		return fmt.Errorf("invalid %s cron %q: %w", name, cron, err)
	}
	fn := job.NewFunctionJob(func(_ context.Context) (int, error) {
		reqs := requests(s.clock.Now())
		for _, req := range reqs {
			s.logger.Debug("schedule@"+name, zap.String("request", fmt.Sprintf("%T", req)))
			s.dispatch(req)
		}
		return len(reqs), nil
	})
	if err := s.sched.ScheduleJob(quartz.NewJobDetail(fn, quartz.NewJobKey(name)), trigger); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.logger.Sugar().Infof("schedule@start: %s scheduled with %q", name, cron)
	return nil
}

// slotRequests resets the previous window, a no-op except on the hour, then
// applies the planned action of the slot that starts now.
func (s *Scheduler) slotRequests(now domain.Moment) []domain.ActorRequest {
	reqs := []domain.ActorRequest{domain.ResetSlotRequest{}}
	switch s.plan[s.clock.At(now.SlotTimeIndex).TimeText] {
	case config.PlanCharge:
		reqs = append(reqs, domain.ChargeSlotRequest{})
	case config.PlanDischarge:
		reqs = append(reqs, domain.DischargeSlotRequest{})
	case config.PlanGridOnly:
		reqs = append(reqs, domain.GridOnlySlotRequest{})
	}
	return reqs
}

// telemetryRequests refreshes today and, during the first slot of the day,
// completes yesterday.
func (s *Scheduler) telemetryRequests(now domain.Moment) []domain.ActorRequest {
	reqs := []domain.ActorRequest{}
	if now.SlotTimeIndex == now.DateIndex {
		reqs = append(reqs, domain.RefreshTelemetryRequest{DayOffset: -1})
	}
	return append(reqs, domain.RefreshTelemetryRequest{DayOffset: 0})
}
