package soliscloud

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/berfenger/solisagility/internal/core/domain"
	"github.com/berfenger/solisagility/internal/core/port"

	"github.com/primetalk/goio/io"
	"go.uber.org/zap"
)

// Command ids of the control API.
const (
	cidSettingsRead  = 4643
	cidSettingsWrite = 103
	cidClock         = 56

	cidChargeSOC        = 5928
	cidChargeWindow     = 5946
	cidChargeCurrent    = 5948
	cidDischargeWindow  = 5964
	cidDischargeSOC     = 5965
	cidDischargeCurrent = 5967
)

// Positions in the 11 field legacy settings string.
const (
	fieldChargeCurrent = iota
	fieldDischargeCurrent
	fieldChargeStart
	fieldChargeEnd
	fieldDischargeStart
	fieldDischargeEnd
	fieldCharge2Start
	fieldCharge2End
	fieldDischarge2Start
	fieldDischarge2End
	fieldMode
	settingsFields
)

const zeroTime = "00:00"

type direction int

const (
	directionCharge direction = iota
	directionDischarge
	directionReset
)

// FirmwareCache keeps the inverter software version between runs.
type FirmwareCache interface {
	FirmwareVersion() string
	SetFirmwareVersion(version string) error
}

type ControlConfig struct {
	ChargeCurrent    int
	DischargeCurrent int
	ChargeSOC        int
	DischargeSOC     int
}

// Control drives charge and discharge windows on the inverter through the
// SolisCloud control API, in whichever dialect its firmware understands.
type Control struct {
	client *Client
	cache  FirmwareCache
	clock  port.Clock
	cfg    ControlConfig
	logger *zap.Logger
}

func NewControl(client *Client, cache FirmwareCache, clock port.Clock, cfg ControlConfig, logger *zap.Logger) *Control {
	return &Control{
		client: client,
		cache:  cache,
		clock:  clock,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "control")),
	}
}

// Dialect returns the cached firmware dialect, resolving and caching the
// firmware version on first use.
func (c *Control) Dialect(ctx context.Context) (Dialect, error) {
	version := c.cache.FirmwareVersion()
	if version == "" {
		v, err := c.client.FirmwareVersion(ctx)
		if err != nil {
			return "", err
		}
		if err := c.cache.SetFirmwareVersion(v); err != nil {
			c.logger.Warn("control@dialect: could not persist firmware version", zap.Error(err))
		}
		c.logger.Sugar().Infof("control@dialect: inverter firmware %s", v)
		version = v
	}
	return ClassifyFirmware(version), nil
}

func (c *Control) ChargeNow(ctx context.Context, duration time.Duration) domain.ActionResult {
	now := c.clock.Now()
	return c.ChargeBetween(ctx, now.TimeText, c.clock.At(now.TimeIndex+duration.Milliseconds()).TimeText)
}

func (c *Control) ChargeBetween(ctx context.Context, from, to string) domain.ActionResult {
	return c.guard("charge", func() (domain.ActionResult, error) {
		return c.apply(ctx, directionCharge, c.cfg.ChargeCurrent, from, to)
	})
}

func (c *Control) DischargeNow(ctx context.Context) domain.ActionResult {
	from, to := c.restOfSlot()
	return c.DischargeBetween(ctx, from, to)
}

func (c *Control) DischargeBetween(ctx context.Context, from, to string) domain.ActionResult {
	return c.guard("discharge", func() (domain.ActionResult, error) {
		return c.apply(ctx, directionDischarge, c.cfg.DischargeCurrent, from, to)
	})
}

func (c *Control) GridOnlyNow(ctx context.Context) domain.ActionResult {
	from, to := c.restOfSlot()
	return c.GridOnlyBetween(ctx, from, to)
}

// GridOnlyBetween programs a discharge window with zero current, so the
// battery neither charges nor discharges.
func (c *Control) GridOnlyBetween(ctx context.Context, from, to string) domain.ActionResult {
	return c.guard("gridonly", func() (domain.ActionResult, error) {
		return c.apply(ctx, directionDischarge, 0, from, to)
	})
}

func (c *Control) ResetNow(ctx context.Context) domain.ActionResult {
	return c.guard("reset", func() (domain.ActionResult, error) {
		return c.apply(ctx, directionReset, 0, zeroTime, zeroTime)
	})
}

// ResetScheduled resets only when called on the hour; anywhere else in the
// hour it reports a no-op.
func (c *Control) ResetScheduled(ctx context.Context) domain.ActionResult {
	now := c.clock.Now()
	if !now.TopOfHour() {
		return domain.Noop("reset skipped at %s: not on the hour", now.TimeText)
	}
	return c.ResetNow(ctx)
}

func (c *Control) SyncClock(ctx context.Context) domain.ActionResult {
	return c.guard("clock", func() (domain.ActionResult, error) {
		now := time.UnixMilli(c.clock.Now().TimeIndex).In(c.client.location())
		value := now.Format(time.DateTime)
		if err := c.client.Control(ctx, cidClock, value); err != nil {
			return domain.ActionResult{}, err
		}
		return domain.OK("inverter clock set to %s", value), nil
	})
}

// Settings reads the legacy settings string, for display.
func (c *Control) Settings(ctx context.Context) (string, error) {
	return c.client.ReadSettings(ctx)
}

func (c *Control) apply(ctx context.Context, dir direction, current int, from, to string) (domain.ActionResult, error) {
	dialect, err := c.Dialect(ctx)
	if err != nil {
		return domain.ActionResult{}, err
	}
	if dialect == DialectPost4B00 {
		err = c.applyParameters(ctx, dir, current, from, to)
	} else {
		err = c.applySettingsString(ctx, dir, current, from, to)
	}
	if err != nil {
		return domain.ActionResult{}, err
	}
	switch dir {
	case directionCharge:
		return domain.OK("charging %s-%s at %dA (%s)", from, to, current, dialect), nil
	case directionDischarge:
		return domain.OK("discharging %s-%s at %dA (%s)", from, to, current, dialect), nil
	default:
		return domain.OK("charge and discharge windows reset (%s)", dialect), nil
	}
}

func (c *Control) applySettingsString(ctx context.Context, dir direction, current int, from, to string) error {
	settings, err := c.client.ReadSettings(ctx)
	if err != nil {
		return err
	}
	updated, err := rewriteSettings(settings, dir, current, from, to)
	if err != nil {
		return err
	}
	c.logger.Debug("control@legacy: settings", zap.String("from", settings), zap.String("to", updated))
	return c.client.Control(ctx, cidSettingsWrite, updated)
}

func (c *Control) applyParameters(ctx context.Context, dir direction, current int, from, to string) error {
	type write struct {
		cid   int
		value string
	}
	var writes []write
	switch dir {
	case directionCharge:
		writes = []write{
			{cidChargeCurrent, strconv.Itoa(current)},
			{cidChargeSOC, strconv.Itoa(c.cfg.ChargeSOC)},
			{cidChargeWindow, from + "-" + to},
		}
	case directionDischarge:
		writes = []write{
			{cidDischargeCurrent, strconv.Itoa(current)},
			{cidDischargeSOC, strconv.Itoa(c.cfg.DischargeSOC)},
			{cidDischargeWindow, from + "-" + to},
		}
	case directionReset:
		writes = []write{
			{cidChargeWindow, zeroTime + "-" + zeroTime},
			{cidDischargeWindow, zeroTime + "-" + zeroTime},
		}
	}
	for _, w := range writes {
		if err := c.client.Control(ctx, w.cid, w.value); err != nil {
			return err
		}
	}
	return nil
}

// rewriteSettings sets the current and window of the requested direction and
// zeroes every other window of the legacy settings string.
func rewriteSettings(settings string, dir direction, current int, from, to string) (string, error) {
	fields := strings.Split(strings.TrimSpace(settings), ",")
	if len(fields) != settingsFields {
		return "", fmt.Errorf("%w: settings string has %d fields, expected %d", domain.ErrVendor, len(fields), settingsFields)
	}
	for i := fieldChargeStart; i <= fieldDischarge2End; i++ {
		fields[i] = zeroTime
	}
	switch dir {
	case directionCharge:
		fields[fieldChargeCurrent] = strconv.Itoa(current)
		fields[fieldChargeStart] = from
		fields[fieldChargeEnd] = to
	case directionDischarge:
		fields[fieldDischargeCurrent] = strconv.Itoa(current)
		fields[fieldDischargeStart] = from
		fields[fieldDischargeEnd] = to
	}
	return strings.Join(fields, ","), nil
}

func (c *Control) restOfSlot() (string, string) {
	now := c.clock.Now()
	return now.TimeText, c.clock.At(now.SlotEndTimeIndex).TimeText
}

// guard runs a control operation, turning returned errors and panics alike
// into an error result.
func (c *Control) guard(op string, fn func() (domain.ActionResult, error)) (result domain.ActionResult) {
	if !c.client.Configured() {
		return domain.Failure(domain.ErrMissingCredentials)
	}
	defer func() {
		if r := recover(); r != nil {
			result = domain.Failure(fmt.Errorf("%w: %s: %v", domain.ErrTransport, op, r))
		}
	}()
	res := io.RunSync(io.Eval(fn))
	if res.Error != nil {
		c.logger.Error("control@"+op+": failed", zap.Error(res.Error))
		return domain.Failure(res.Error)
	}
	c.logger.Info("control@" + op + ": " + res.Value.Status)
	return res.Value
}

// ensure interface compliance
var _ port.InverterControl = (*Control)(nil)
