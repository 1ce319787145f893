package config

import (
	"sync"

	"github.com/spf13/viper"
)

const (
	keyChargingEnabled      = "agility.charging_enabled"
	keyDischargingEnabled   = "agility.discharging_enabled"
	keyMovingAveragePeriod  = "agility.moving_average_period"
	keyKeepInverterTimeSync = "solis_cloud.keep_inverter_time_synchronised"
	keyFirmwareVersion      = "solis_cloud.firmware_version"
)

// Live guards a viper instance that is read and written after startup. Viper
// is not safe for concurrent use, so every runtime access goes through mu.
type Live struct {
	mu sync.RWMutex
	v  *viper.Viper
}

func NewLive(v *viper.Viper) *Live {
	return &Live{v: v}
}

func (l *Live) getBool(key string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v.GetBool(key)
}

func (l *Live) set(key string, value any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.v.Set(key, value)
}

// Flags reads the agility enable flags live from viper, so values changed at
// runtime are picked up by the next operation.
type Flags struct {
	live *Live
}

func NewFlags(live *Live) *Flags {
	return &Flags{live: live}
}

func (f *Flags) ChargingEnabled() bool {
	return f.live.getBool(keyChargingEnabled)
}

func (f *Flags) DischargingEnabled() bool {
	return f.live.getBool(keyDischargingEnabled)
}

func (f *Flags) MovingAveragePeriod() int {
	f.live.mu.RLock()
	defer f.live.mu.RUnlock()
	return f.live.v.GetInt(keyMovingAveragePeriod)
}

func (f *Flags) KeepInverterTimeSynchronised() bool {
	return f.live.getBool(keyKeepInverterTimeSync)
}

func (f *Flags) SetChargingEnabled(enabled bool) {
	f.live.set(keyChargingEnabled, enabled)
}

func (f *Flags) SetDischargingEnabled(enabled bool) {
	f.live.set(keyDischargingEnabled, enabled)
}

// FirmwareCache keeps the inverter firmware version in the configuration and
// writes it back to the config file when one is in use.
type FirmwareCache struct {
	live *Live
}

func NewFirmwareCache(live *Live) *FirmwareCache {
	return &FirmwareCache{live: live}
}

func (c *FirmwareCache) FirmwareVersion() string {
	c.live.mu.RLock()
	defer c.live.mu.RUnlock()
	return c.live.v.GetString(keyFirmwareVersion)
}

func (c *FirmwareCache) SetFirmwareVersion(version string) error {
	c.live.mu.Lock()
	defer c.live.mu.Unlock()
	c.live.v.Set(keyFirmwareVersion, version)
	if c.live.v.ConfigFileUsed() == "" {
		return nil
	}
	return c.live.v.WriteConfig()
}

// Invalidate forgets the cached version, e.g. after a firmware upgrade. The
// next control operation queries the vendor again.
func (c *FirmwareCache) Invalidate() error {
	return c.SetFirmwareVersion("")
}
