package port

import (
	"context"
	"time"

	"github.com/berfenger/solisagility/internal/core/domain"
)

// InverterControl translates charge/discharge intents into vendor calls.
// Expected failures are reported inside the returned result.
type InverterControl interface {
	ChargeNow(ctx context.Context, duration time.Duration) domain.ActionResult
	ChargeBetween(ctx context.Context, from, to string) domain.ActionResult
	DischargeNow(ctx context.Context) domain.ActionResult
	DischargeBetween(ctx context.Context, from, to string) domain.ActionResult
	GridOnlyNow(ctx context.Context) domain.ActionResult
	GridOnlyBetween(ctx context.Context, from, to string) domain.ActionResult
	ResetNow(ctx context.Context) domain.ActionResult
	ResetScheduled(ctx context.Context) domain.ActionResult
	SyncClock(ctx context.Context) domain.ActionResult
}

// TelemetrySource pulls one day of snapshots from the vendor.
type TelemetrySource interface {
	InverterDay(ctx context.Context, day domain.Moment) ([]domain.StoredSnapshot, error)
}
