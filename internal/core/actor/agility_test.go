package actor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/berfenger/solisagility/internal/adapter/store"
	"github.com/berfenger/solisagility/internal/core/domain"
	"github.com/berfenger/solisagility/internal/core/port"
	"github.com/berfenger/solisagility/internal/core/service"
	"github.com/berfenger/solisagility/internal/util/clock"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type slowInverter struct {
	delay   time.Duration
	panics  bool
	running atomic.Int32
	maxSeen atomic.Int32
	calls   atomic.Int32
}

func (f *slowInverter) op(name string) domain.ActionResult {
	if f.panics {
		panic("vendor exploded")
	}
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	f.calls.Add(1)
	time.Sleep(f.delay)
	return domain.OK("%s done", name)
}

func (f *slowInverter) ChargeNow(ctx context.Context, d time.Duration) domain.ActionResult {
	return f.op("chargeNow")
}
func (f *slowInverter) ChargeBetween(ctx context.Context, from, to string) domain.ActionResult {
	return f.op("charge")
}
func (f *slowInverter) DischargeNow(ctx context.Context) domain.ActionResult {
	return f.op("dischargeNow")
}
func (f *slowInverter) DischargeBetween(ctx context.Context, from, to string) domain.ActionResult {
	return f.op("discharge")
}
func (f *slowInverter) GridOnlyNow(ctx context.Context) domain.ActionResult {
	return f.op("gridOnlyNow")
}
func (f *slowInverter) GridOnlyBetween(ctx context.Context, from, to string) domain.ActionResult {
	return f.op("gridOnly")
}
func (f *slowInverter) ResetNow(ctx context.Context) domain.ActionResult {
	return f.op("reset")
}
func (f *slowInverter) ResetScheduled(ctx context.Context) domain.ActionResult {
	return f.op("resetScheduled")
}
func (f *slowInverter) SyncClock(ctx context.Context) domain.ActionResult {
	return f.op("syncClock")
}

type noFlags struct{}

func (noFlags) ChargingEnabled() bool              { return false }
func (noFlags) DischargingEnabled() bool           { return false }
func (noFlags) MovingAveragePeriod() int           { return 7 }
func (noFlags) KeepInverterTimeSynchronised() bool { return false }

type recordingPublisher struct {
	mu       sync.Mutex
	commands []string
}

func (p *recordingPublisher) PublishResult(command string, result domain.ActionResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands = append(p.commands, command)
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.commands...)
}

type panickingPublisher struct {
	calls atomic.Int32
}

func (p *panickingPublisher) PublishResult(command string, result domain.ActionResult) error {
	p.calls.Add(1)
	panic("broker gone")
}

// spawnAgility starts the actor; a nil publisher means results are not
// published.
func spawnAgility(t *testing.T, inv *slowInverter, publisher port.ResultPublisher) (*actor.ActorSystem, *actor.PID) {
	logger := zap.Must(zap.NewDevelopment())
	mem := store.NewMemory()
	c := clock.NewFixed(time.UTC, time.Date(2024, 1, 1, 10, 10, 0, 0, time.UTC))
	ag := &service.Agility{
		Inverter: inv,
		Series:   service.NewTimeSeries(mem, logger),
		History:  mem,
		Clock:    c,
		Flags:    noFlags{},
		Logger:   logger,
	}

	as := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewAgilityActor(ag, publisher, logger)
	})
	pid, err := as.Root.SpawnNamed(props, domain.ACTOR_ID_AGILITY)
	require.NoError(t, err)
	return as, pid
}

func TestAgilityActorHealth(t *testing.T) {

	as, pid := spawnAgility(t, &slowInverter{}, nil)
	defer as.Shutdown()

	res, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)
	health, ok := res.(domain.ActorHealthResponse)
	require.True(t, ok)
	assert.True(t, health.Healthy)
	assert.Equal(t, "idle", health.State)
}

func TestAgilityActorRespondsAndPublishes(t *testing.T) {

	publisher := &recordingPublisher{}
	as, pid := spawnAgility(t, &slowInverter{}, publisher)
	defer as.Shutdown()

	res, err := as.Root.RequestFuture(pid, domain.ChargeBetweenRequest{
		Window: domain.Window{From: "02:00", To: "04:00"},
	}, 2*time.Second).Result()
	require.NoError(t, err)

	resp, ok := res.(domain.AgilityResponse)
	require.True(t, ok)
	assert.Equal(t, "chargeBetween", resp.Command)
	assert.NotEmpty(t, resp.Id)
	assert.Equal(t, domain.ResultOK, resp.Result.Kind)

	assert.Eventually(t, func() bool {
		return len(publisher.published()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"chargeBetween"}, publisher.published())
}

func TestAgilityActorGatedRequest(t *testing.T) {

	inv := &slowInverter{}
	as, pid := spawnAgility(t, inv, nil)
	defer as.Shutdown()

	res, err := as.Root.RequestFuture(pid, domain.ChargeSlotRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	resp := res.(domain.AgilityResponse)
	assert.Equal(t, domain.ResultNoop, resp.Result.Kind)
	assert.Zero(t, inv.calls.Load())
}

func TestAgilityActorRecoversPanics(t *testing.T) {

	as, pid := spawnAgility(t, &slowInverter{panics: true}, nil)
	defer as.Shutdown()

	res, err := as.Root.RequestFuture(pid, domain.ResetNowRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	resp := res.(domain.AgilityResponse)
	assert.True(t, resp.Result.HasResponseError())
	assert.Contains(t, resp.Result.ResponseError.Error(), "vendor exploded")

	// the actor keeps serving
	res, err = as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)
	assert.Equal(t, "idle", res.(domain.ActorHealthResponse).State)
}

func TestAgilityActorSerialisesOperations(t *testing.T) {

	inv := &slowInverter{delay: 50 * time.Millisecond}
	as, pid := spawnAgility(t, inv, nil)
	defer as.Shutdown()

	futures := []*actor.Future{}
	for i := 0; i < 5; i++ {
		futures = append(futures, as.Root.RequestFuture(pid, domain.DischargeBetweenRequest{
			Window: domain.Window{From: "16:00", To: "19:00"},
		}, 5*time.Second))
	}
	for _, f := range futures {
		res, err := f.Result()
		require.NoError(t, err)
		assert.Equal(t, domain.ResultOK, res.(domain.AgilityResponse).Result.Kind)
	}

	assert.Equal(t, int32(5), inv.calls.Load())
	assert.Equal(t, int32(1), inv.maxSeen.Load())
}

func TestAgilityActorSurvivesPublisherPanic(t *testing.T) {

	inv := &slowInverter{delay: 20 * time.Millisecond}
	publisher := &panickingPublisher{}
	as, pid := spawnAgility(t, inv, publisher)
	defer as.Shutdown()

	// the later requests are stashed while the first one runs
	futures := []*actor.Future{}
	for i := 0; i < 3; i++ {
		futures = append(futures, as.Root.RequestFuture(pid, domain.ResetNowRequest{}, 5*time.Second))
	}
	for _, f := range futures {
		res, err := f.Result()
		require.NoError(t, err)
		assert.Equal(t, domain.ResultOK, res.(domain.AgilityResponse).Result.Kind)
	}

	assert.Equal(t, int32(3), inv.calls.Load())
	assert.Eventually(t, func() bool {
		return publisher.calls.Load() == 3
	}, time.Second, 10*time.Millisecond)

	res, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)
	assert.Equal(t, "idle", res.(domain.ActorHealthResponse).State)
}
