// Package radio defines the transceiver abstraction shared by the capture,
// jam, attack and scan packages, plus the settings a radio is tuned with.
package radio

import (
	"encoding/hex"
	"time"
)

// Port is one physical transceiver. A Port is owned by exactly one
// operation at a time and is never driven from two goroutines at once.
type Port interface {
	// Configure applies modulation, data rate, bandwidth and power.
	Configure(settings Settings) error

	// SetFrequency retunes the carrier.
	SetFrequency(hz uint32) error

	// Transmit sends data, repeated repeat additional times.
	Transmit(data []byte, repeat int) error

	// Receive waits up to timeout for one packet. It returns ErrTimeout
	// when nothing arrived; any other error is a hardware failure.
	Receive(timeout time.Duration) (Reading, error)

	// Idle returns the radio to the IDLE state.
	Idle() error
}

// Reading is a raw receive result
type Reading struct {
	Payload []byte
	RSSI    int // dBm
}

// Capture is a reading that was kept by a capture session
type Capture struct {
	Payload   []byte
	RSSI      int
	Frequency uint32
	Timestamp time.Time
}

// Hex returns the payload as lower-case hex text
func (c Capture) Hex() string {
	return hex.EncodeToString(c.Payload)
}
