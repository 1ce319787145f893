package util

import (
	"github.com/berfenger/solisagility/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		SolisCloud: config.SolisCloudConfig{
			InverterSn:       "1031000000000000",
			Key:              "1300000000000000000",
			Secret:           "secret",
			Endpoint:         "https://www.soliscloud.com:13333",
			ChargeCurrent:    50,
			DischargeCurrent: 50,
			ChargeSOC:        100,
			DischargeSOC:     20,
			Currency:         "GBP",
			TimeoutMillis:    10000,
		},
		Agility: config.AgilityConfig{
			ChargingEnabled:     true,
			DischargingEnabled:  true,
			MovingAveragePeriod: 7,
			SlotPlan: map[string]string{
				"02:00": config.PlanCharge,
				"02:30": config.PlanCharge,
				"17:00": config.PlanDischarge,
			},
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "solisagility",
		},
		Schedule: config.ScheduleConfig{
			SlotCron:      "0 0,30 * * * *",
			TelemetryCron: "0 5,35 * * * *",
			TrimCron:      "0 15 0 * * *",
			ClockSyncCron: "0 45 3 * * *",
		},
		Timezone: "Europe/London",
		Port:     8080,
	}
}
