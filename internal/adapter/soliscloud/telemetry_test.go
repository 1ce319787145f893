package soliscloud

import (
	"context"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/berfenger/solisagility/internal/core/domain"
	"github.com/berfenger/solisagility/internal/util/clock"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInverterDayMapsRecordsToSlots(t *testing.T) {

	require := require.New(t)

	day := clock.NewFixed(london, time.Date(2024, 1, 10, 12, 0, 0, 0, london)).AtMidnight(0)
	t0 := day.DateIndex + 20*domain.SlotMillis // 10:00
	fake := &fakeSolisCloud{responses: map[string]string{
		pathInverterDay: `{"data":[` +
			`{"dataTimestamp":"` + itoa(t0) + `","pac":500,"eToday":2.0,"familyLoadPower":300,"homeLoadTodayEnergy":1.5,"psum":-1200,"gridPurchasedTodayEnergy":3.2,"gridSellTodayEnergy":0.4,"batteryCapacitySoc":64,"batteryPower":1.1},` +
			`{"dataTimestamp":"` + itoa(t0+300_000) + `","pac":520,"eToday":2.1,"familyLoadPower":310,"homeLoadTodayEnergy":1.6},` +
			`{"dataTimestamp":"` + itoa(day.DateIndex-60_000) + `","pac":1,"eToday":9,"homeLoadTodayEnergy":9}` +
			`]}`,
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client := NewClient(srv.URL, "1031", Signer{KeyID: "key", Secret: "secret"}, zap.NewNop(), WithLocation(london))
	telemetry := &Telemetry{Client: client, Currency: "GBP"}

	snapshots, err := telemetry.InverterDay(context.Background(), day)
	require.NoError(err)
	require.Len(snapshots, 2, "samples from another day are dropped")

	first := snapshots[0]
	require.Equal(day.DateIndex, first.DateIndex)
	require.Equal(t0, first.TimeIndex)
	require.InDelta(0.5, first.PVOutputNow, 1e-9)
	require.InDelta(2.0, first.PVOutputTotal, 1e-9)
	require.InDelta(0.3, first.HouseLoadNow, 1e-9)
	require.InDelta(1.5, first.HouseLoadTotal, 1e-9)
	require.InDelta(1.2, first.GridImportNow, 1e-9)
	require.InDelta(3.2, first.GridImportTotal, 1e-9)
	require.InDelta(0.4, first.GridExportTotal, 1e-9)
	require.InDelta(64, first.BatteryLevel, 1e-9)

	require.Equal(t0, snapshots[1].TimeIndex, "five minute samples fall into their half-hour slot")

	require.Len(fake.calls, 1)
	require.Equal("2024-01-10", fake.calls[0].Body["time"])
	require.Equal("GBP", fake.calls[0].Body["money"])
	require.EqualValues(0, fake.calls[0].Body["timeZone"])
}

func TestInverterDaySortsRecordsAndSendsFractionalZone(t *testing.T) {

	require := require.New(t)

	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(err)

	day := clock.NewFixed(kolkata, time.Date(2024, 1, 10, 12, 0, 0, 0, kolkata)).AtMidnight(0)
	t0 := day.DateIndex + 20*domain.SlotMillis
	fake := &fakeSolisCloud{responses: map[string]string{
		pathInverterDay: `{"data":[` +
			`{"dataTimestamp":"` + itoa(t0+600_000) + `","homeLoadTodayEnergy":1.7},` +
			`{"dataTimestamp":"` + itoa(t0+domain.SlotMillis) + `","homeLoadTodayEnergy":2.0},` +
			`{"dataTimestamp":"` + itoa(t0+60_000) + `","homeLoadTodayEnergy":1.5}` +
			`]}`,
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client := NewClient(srv.URL, "1031", Signer{KeyID: "key", Secret: "secret"}, zap.NewNop(), WithLocation(kolkata))
	telemetry := &Telemetry{Client: client, Currency: "INR"}

	snapshots, err := telemetry.InverterDay(context.Background(), day)
	require.NoError(err)
	require.Len(snapshots, 3)

	require.Equal(t0, snapshots[0].TimeIndex)
	require.InDelta(1.5, snapshots[0].HouseLoadTotal, 1e-9, "earliest sample of the slot comes first")
	require.InDelta(1.7, snapshots[1].HouseLoadTotal, 1e-9)
	require.Equal(t0+domain.SlotMillis, snapshots[2].TimeIndex)

	require.Len(fake.calls, 1)
	require.InDelta(5.5, fake.calls[0].Body["timeZone"], 1e-9)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
