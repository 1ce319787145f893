package config

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel   zapcore.Level
	SolisCloud SolisCloudConfig `mapstructure:"solis_cloud"`
	Agility    AgilityConfig    `mapstructure:"agility"`
	Store      StoreConfig      `mapstructure:"store"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Timezone   string           `mapstructure:"timezone"`
	Port       uint             `mapstructure:"port"`
	HttpLog    bool             `mapstructure:"http_log"`
}

type SolisCloudConfig struct {
	InverterSn                   string `mapstructure:"inverter_sn"`
	Key                          string
	Secret                       string
	Endpoint                     string
	FirmwareVersion              string `mapstructure:"firmware_version"`
	KeepInverterTimeSynchronised bool   `mapstructure:"keep_inverter_time_synchronised"`
	ChargeCurrent                int    `mapstructure:"charge_current"`
	DischargeCurrent             int    `mapstructure:"discharge_current"`
	ChargeSOC                    int    `mapstructure:"charge_soc"`
	DischargeSOC                 int    `mapstructure:"discharge_soc"`
	Currency                     string
	TimeoutMillis                uint32 `mapstructure:"timeout_millis"`
}

type AgilityConfig struct {
	ChargingEnabled     bool `mapstructure:"charging_enabled"`
	DischargingEnabled  bool `mapstructure:"discharging_enabled"`
	MovingAveragePeriod int  `mapstructure:"moving_average_period"`
	// SlotPlan maps a slot start "HH:MM" to charge, discharge or gridonly.
	SlotPlan map[string]string `mapstructure:"slot_plan"`
}

type StoreConfig struct {
	Path string
}

type ScheduleConfig struct {
	SlotCron      string `mapstructure:"slot_cron"`
	TelemetryCron string `mapstructure:"telemetry_cron"`
	TrimCron      string `mapstructure:"trim_cron"`
	ClockSyncCron string `mapstructure:"clock_sync_cron"`
}

type MQTTConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	BaseTopic string `mapstructure:"base_topic"`
}

// Enabled reports whether a broker is configured.
func (c MQTTConfig) Enabled() bool {
	return c.Host != ""
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

// Validate checks the bounds of the agility and control settings.
func (c *Config) Validate() error {
	if c.Agility.MovingAveragePeriod < 1 {
		return errors.New("config param agility.moving_average_period should be >= 1")
	}
	if c.SolisCloud.ChargeCurrent < 0 || c.SolisCloud.ChargeCurrent > 100 {
		return errors.New("config param solis_cloud.charge_current should be within 0..100")
	}
	if c.SolisCloud.DischargeCurrent < 0 || c.SolisCloud.DischargeCurrent > 100 {
		return errors.New("config param solis_cloud.discharge_current should be within 0..100")
	}
	if c.SolisCloud.ChargeSOC < 0 || c.SolisCloud.ChargeSOC > 100 {
		return errors.New("config param solis_cloud.charge_soc should be within 0..100")
	}
	if c.SolisCloud.DischargeSOC < 0 || c.SolisCloud.DischargeSOC > 100 {
		return errors.New("config param solis_cloud.discharge_soc should be within 0..100")
	}
	for slot, action := range c.Agility.SlotPlan {
		if !slotTextRegexp.MatchString(slot) {
			return errors.New("config param agility.slot_plan: invalid slot " + slot)
		}
		switch action {
		case PlanCharge, PlanDischarge, PlanGridOnly:
		default:
			return errors.New("config param agility.slot_plan: invalid action " + action)
		}
	}
	return nil
}

const (
	PlanCharge    = "charge"
	PlanDischarge = "discharge"
	PlanGridOnly  = "gridonly"
)

var slotTextRegexp = regexp.MustCompile("^([01][0-9]|2[0-3]):(00|30)$")
