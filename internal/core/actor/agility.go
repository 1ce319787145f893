package actor

import (
	"context"
	"fmt"

	"github.com/berfenger/solisagility/internal/core/domain"
	"github.com/berfenger/solisagility/internal/core/port"
	"github.com/berfenger/solisagility/internal/core/service"
	. "github.com/berfenger/solisagility/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AgilityActor runs scheduling operations one at a time. Requests arriving
// while an operation is in flight are stashed and replayed in order.
type AgilityActor struct {
	ActorWithStates
	agility   *service.Agility
	publisher port.ResultPublisher
	stash     *Stash
	logger    *zap.Logger
}

// agilityDone carries the outcome of a background operation back into the
// actor.
type agilityDone struct {
	id      string
	command string
	result  domain.ActionResult
	replyTo *actor.PID
}

// NewAgilityActor builds the actor. publisher may be nil. Operations are not
// timed out here; the vendor HTTP client bounds every call.
func NewAgilityActor(agility *service.Agility, publisher port.ResultPublisher, logger *zap.Logger) *AgilityActor {
	act := &AgilityActor{
		agility:   agility,
		publisher: publisher,
		stash:     &Stash{},
		logger:    ActorLogger(domain.ACTOR_ID_AGILITY, logger),
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(AgilityIdleState{actor: act})
	return act
}

func (a *AgilityActor) Receive(ctx actor.Context) {
	a.Behavior.Receive(ctx)
}

func (a *AgilityActor) health(ctx actor.Context) {
	ctx.Respond(domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_AGILITY,
		Healthy: true,
		State:   a.StateName(),
	})
}

// Idle state

type AgilityIdleState struct {
	actor *AgilityActor
}

func (state AgilityIdleState) Name() string {
	return "idle"
}

func (state AgilityIdleState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("agility@idle started")
	case domain.ActorHealthRequest:
		state.actor.health(ctx)
	case domain.ActorRequest:
		command, op := state.actor.operation(msg)
		if op == nil {
			state.actor.logger.Warn("agility@idle: unsupported request", zap.String("type", fmt.Sprintf("%T", msg)))
			return
		}
		state.actor.run(ctx, command, op)
		state.actor.Become(AgilityBusyState{actor: state.actor})
	}
}

// Busy state

type AgilityBusyState struct {
	actor *AgilityActor
}

func (state AgilityBusyState) Name() string {
	return "busy"
}

func (state AgilityBusyState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.actor.health(ctx)
	case agilityDone:
		state.actor.finish(ctx, msg)
		state.actor.Become(AgilityIdleState{actor: state.actor})
		state.actor.stash.UnstashAll(ctx)
	case domain.ActorRequest:
		state.actor.logger.Debug("agility@busy: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (a *AgilityActor) run(ctx actor.Context, command string, op func(context.Context) domain.ActionResult) {
	replyTo := ctx.Sender()
	id := uuid.NewString()
	a.logger.Debug("agility@idle: running", zap.String("command", command), zap.String("id", id))
	NewBackgroundTask(ctx, func() (agilityDone, error) {
		return agilityDone{id: id, command: command, result: op(context.Background()), replyTo: replyTo}, nil
	}).Recover(func(err error) agilityDone {
		return agilityDone{id: id, command: command, result: domain.Failure(err), replyTo: replyTo}
	}).PipeTo(ctx.Self())
}

// finish reports the outcome. A panicking publisher must not restart the
// actor, which would drop the stash.
func (a *AgilityActor) finish(ctx actor.Context, done agilityDone) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("agility@busy: reporting "+done.command+" panicked", zap.String("id", done.id), zap.Any("panic", r))
		}
	}()
	if err := done.result.GetResponseError(); err != nil {
		a.logger.Error("agility@busy: "+done.command+" failed", zap.String("id", done.id), zap.Error(err))
	} else {
		a.logger.Info("agility@busy: "+done.command, zap.String("id", done.id), zap.String("kind", string(done.result.Kind)), zap.String("status", done.result.Status))
	}
	if done.replyTo != nil {
		ctx.Send(done.replyTo, domain.AgilityResponse{Id: done.id, Command: done.command, Result: done.result})
	}
	if a.publisher != nil {
		if err := a.publisher.PublishResult(done.command, done.result); err != nil {
			a.logger.Warn("agility@busy: could not publish result", zap.Error(err))
		}
	}
}

// operation maps a request onto the scheduling operation that serves it.
func (a *AgilityActor) operation(req domain.ActorRequest) (string, func(context.Context) domain.ActionResult) {
	ag := a.agility
	switch r := req.(type) {
	case domain.ChargeSlotRequest:
		return "chargeSlot", func(ctx context.Context) domain.ActionResult { return ag.ChargeSlot(ctx, r.Override) }
	case domain.DischargeSlotRequest:
		return "dischargeSlot", func(ctx context.Context) domain.ActionResult { return ag.DischargeSlot(ctx, r.Override) }
	case domain.GridOnlySlotRequest:
		return "gridOnlySlot", func(ctx context.Context) domain.ActionResult { return ag.GridOnlySlot(ctx, r.Override) }
	case domain.ChargeBetweenRequest:
		return "chargeBetween", func(ctx context.Context) domain.ActionResult { return ag.ChargeBetween(ctx, r.Window) }
	case domain.DischargeBetweenRequest:
		return "dischargeBetween", func(ctx context.Context) domain.ActionResult { return ag.DischargeBetween(ctx, r.Window) }
	case domain.GridOnlyBetweenRequest:
		return "gridOnlyBetween", func(ctx context.Context) domain.ActionResult { return ag.GridOnlyBetween(ctx, r.Window) }
	case domain.ResetSlotRequest:
		return "resetSlot", ag.ResetSlot
	case domain.ResetNowRequest:
		return "resetNow", ag.ResetNow
	case domain.SyncClockRequest:
		return "syncClock", ag.SyncClock
	case domain.RefreshTelemetryRequest:
		return "refreshTelemetry", func(ctx context.Context) domain.ActionResult { return ag.RefreshTelemetry(ctx, r.DayOffset) }
	case domain.RebuildHistoryRequest:
		return "rebuildHistory", ag.RebuildHistory
	case domain.TrimHistoryRequest:
		return "trimHistory", ag.TrimHistory
	}
	return "", nil
}
