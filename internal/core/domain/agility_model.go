package domain

const (
	ACTOR_ID_AGILITY = "agility"
)

// Actor request/response plumbing, shared by every message the agility actor
// understands.

type ActorRequest interface {
	agilityRequest()
}

type ActorRequestMixIn struct{}

func (ActorRequestMixIn) agilityRequest() {}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	Id      string
	Healthy bool
	State   string
}

// AgilityResponse wraps the result of any scheduling request.
type AgilityResponse struct {
	Id      string
	Command string
	Result  ActionResult
}

type ChargeSlotRequest struct {
	ActorRequestMixIn
	Override bool
}

type DischargeSlotRequest struct {
	ActorRequestMixIn
	Override bool
}

type GridOnlySlotRequest struct {
	ActorRequestMixIn
	Override bool
}

// Window is a manual time-of-day window, HH:MM on both ends.
type Window struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type ChargeBetweenRequest struct {
	ActorRequestMixIn
	Window
}

type DischargeBetweenRequest struct {
	ActorRequestMixIn
	Window
}

type GridOnlyBetweenRequest struct {
	ActorRequestMixIn
	Window
}

type ResetSlotRequest struct {
	ActorRequestMixIn
}

type ResetNowRequest struct {
	ActorRequestMixIn
}

type SyncClockRequest struct {
	ActorRequestMixIn
}

type RefreshTelemetryRequest struct {
	ActorRequestMixIn
	DayOffset int
}

type RebuildHistoryRequest struct {
	ActorRequestMixIn
}

type TrimHistoryRequest struct {
	ActorRequestMixIn
}
