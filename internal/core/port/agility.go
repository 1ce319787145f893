package port

import "github.com/berfenger/solisagility/internal/core/domain"

// AgilityFlags are the externally owned enable flags and retention settings.
type AgilityFlags interface {
	ChargingEnabled() bool
	DischargingEnabled() bool
	MovingAveragePeriod() int
	KeepInverterTimeSynchronised() bool
}

// Battery is the separate battery-state collaborator.
type Battery interface {
	UnsetDischargeControlFlag() error
}

// ResultPublisher receives every scheduling outcome, e.g. to expose it to an
// operator.
type ResultPublisher interface {
	PublishResult(command string, result domain.ActionResult) error
}
