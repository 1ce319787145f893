package soliscloud

import "strings"

type Dialect string

const (
	DialectPre4B00  Dialect = "pre-4B00"
	DialectPost4B00 Dialect = "post-4B00"
)

// ClassifyFirmware maps an inverter software version to its control dialect.
// Versions 4B.. and later speak the per-parameter dialect.
func ClassifyFirmware(version string) Dialect {
	if strings.HasPrefix(version, "4") && len(version) > 1 && version[1] >= 'B' {
		return DialectPost4B00
	}
	return DialectPre4B00
}
