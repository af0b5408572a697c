// Package scanner tunes a receive radio across frequencies and logs every
// transmission it hears.
package scanner

import "time"

// Default scanning parameters
const (
	// DefaultStart is where a sweep begins when no frequency is configured
	DefaultStart uint32 = 300000000

	// DefaultInterval is the sweep step (Hz)
	DefaultInterval uint32 = 50000

	// DefaultTimeout is how long each step listens
	DefaultTimeout = 3 * time.Second
)

// Log file naming
const (
	// LogTimeFormat names per-session scan logs
	LogTimeFormat = "2006_01_02_150405"

	// LogExt is the scan log extension
	LogExt = ".log"

	// ClickerLogName is the fixed log the clicker workflow appends to
	ClickerLogName = "capturedClicks.log"
)

// CommonFrequencies are the frequencies keyless entry, garage doors and
// ISM devices most often use
var CommonFrequencies = []uint32{
	// 300-348 MHz band
	300000000,
	303875000, // Garage doors
	304250000,
	310000000, // US keyless entry
	315000000, // US keyless entry
	318000000,

	// 387-464 MHz band
	390000000,
	418000000,
	433075000, // LPD433 first channel
	433420000,
	433920000, // LPD433 center (most common)
	434420000,
	434775000, // LPD433 last channel
	438900000,

	// 779-928 MHz band
	868350000, // EU SRD
	915000000, // US ISM
	925000000,
}

// IsValidFrequency checks if a frequency is within CC1111 supported bands
func IsValidFrequency(freq uint32) bool {
	return FrequencyBand(freq) != "Unknown"
}

// FrequencyBand returns the band name for a given frequency
func FrequencyBand(freq uint32) string {
	switch {
	case freq >= 300000000 && freq <= 348000000:
		return "300MHz"
	case freq >= 387000000 && freq <= 464000000:
		return "400MHz"
	case freq >= 779000000 && freq <= 928000000:
		return "800MHz"
	}
	return "Unknown"
}
