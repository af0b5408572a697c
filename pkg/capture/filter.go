// Package capture drives a receive radio and keeps only readings whose
// signal strength looks like a real external transmission.
package capture

import "github.com/herlein/rollcat/pkg/radio"

// Filter decides whether a reading at rssi dBm is kept
type Filter func(rssi int, settings radio.Settings) bool

// IsGenuine reports whether rssi lies strictly inside the settings' RSSI
// window. Noise floor readings fall below it; saturated readings such as
// leakage from our own jammer fall above it.
func IsGenuine(rssi int, settings radio.Settings) bool {
	return settings.RSSILower < rssi && rssi < settings.RSSIUpper
}
