package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/berfenger/solisagility/internal/config"
	"github.com/berfenger/solisagility/internal/core/domain"
	"github.com/berfenger/solisagility/internal/util"
	"github.com/berfenger/solisagility/internal/util/clock"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestScheduler(now time.Time, cfg config.ScheduleConfig, plan map[string]string) *Scheduler {
	c := clock.NewFixed(time.UTC, now)
	return NewScheduler(cfg, plan, c, time.UTC, func(domain.ActorRequest) {}, zap.NewNop())
}

func at(h, m int) time.Time {
	return time.Date(2024, 1, 1, h, m, 0, 0, time.UTC)
}

func TestSlotRequestsFollowPlan(t *testing.T) {

	assert := assert.New(t)

	plan := map[string]string{
		"02:00": config.PlanCharge,
		"17:30": config.PlanDischarge,
		"20:00": config.PlanGridOnly,
	}

	s := newTestScheduler(at(2, 0), config.ScheduleConfig{}, plan)
	assert.Equal([]domain.ActorRequest{domain.ResetSlotRequest{}, domain.ChargeSlotRequest{}}, s.slotRequests(s.clock.Now()))

	s = newTestScheduler(at(17, 30), config.ScheduleConfig{}, plan)
	assert.Equal([]domain.ActorRequest{domain.ResetSlotRequest{}, domain.DischargeSlotRequest{}}, s.slotRequests(s.clock.Now()))

	// a trigger firing a few seconds late still maps to its slot
	s = newTestScheduler(at(20, 0).Add(3*time.Second), config.ScheduleConfig{}, plan)
	assert.Equal([]domain.ActorRequest{domain.ResetSlotRequest{}, domain.GridOnlySlotRequest{}}, s.slotRequests(s.clock.Now()))

	s = newTestScheduler(at(9, 30), config.ScheduleConfig{}, plan)
	assert.Equal([]domain.ActorRequest{domain.ResetSlotRequest{}}, s.slotRequests(s.clock.Now()))
}

func TestTelemetryRequests(t *testing.T) {

	assert := assert.New(t)

	s := newTestScheduler(at(0, 5), config.ScheduleConfig{}, nil)
	assert.Equal([]domain.ActorRequest{
		domain.RefreshTelemetryRequest{DayOffset: -1},
		domain.RefreshTelemetryRequest{DayOffset: 0},
	}, s.telemetryRequests(s.clock.Now()))

	s = newTestScheduler(at(13, 35), config.ScheduleConfig{}, nil)
	assert.Equal([]domain.ActorRequest{domain.RefreshTelemetryRequest{DayOffset: 0}}, s.telemetryRequests(s.clock.Now()))
}

func TestStartRejectsInvalidCron(t *testing.T) {

	s := newTestScheduler(at(0, 0), config.ScheduleConfig{SlotCron: "every half hour"}, nil)
	err := s.Start(context.Background())
	assert.ErrorContains(t, err, "slot")
}

func TestStartAndStop(t *testing.T) {

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := util.LoadTestConfig()
	s := newTestScheduler(at(0, 0), cfg.Schedule, cfg.Agility.SlotPlan)
	assert.NoError(t, s.Start(ctx))
	s.Stop()
}
