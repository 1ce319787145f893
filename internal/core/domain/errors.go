package domain

import "errors"

var (
	// ErrMissingCredentials is returned before any network call when the
	// inverter serial or the API key/secret are not configured.
	ErrMissingCredentials = errors.New("missing solis cloud credentials")
	// ErrTransport wraps non-200 responses and network failures.
	ErrTransport = errors.New("transport error")
	// ErrVendor wraps well-formed responses lacking expected fields or
	// signalling failure by content.
	ErrVendor = errors.New("vendor error")
	// ErrNoHistoricalData is returned when no complete day is available to
	// average over.
	ErrNoHistoricalData = errors.New("no historical data available")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
