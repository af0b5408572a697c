package yardstick

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/herlein/rollcat/pkg/radio"
)

// Port adapts a Device to radio.Port
type Port struct {
	dev *Device
	rx  bool
}

// NewPort wraps dev. The Port takes ownership of dev.
func NewPort(dev *Device) *Port {
	return &Port{dev: dev}
}

// Device returns the underlying device
func (p *Port) Device() *Device {
	return p.dev
}

// Configure writes the register set for settings and enables the
// amplifiers
func (p *Port) Configure(settings radio.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := p.Idle(); err != nil {
		return err
	}

	reg, err := p.dev.ReadRegisters()
	if err != nil {
		return err
	}
	Tune(reg, settings)
	if err := p.dev.WriteRegisters(reg); err != nil {
		return err
	}

	if err := p.dev.SetAmpMode(AmpModeOn); err != nil {
		log.Warn().Err(err).Str("serial", p.dev.Serial).Msg("failed to enable amplifiers")
	}

	log.Debug().
		Str("serial", p.dev.Serial).
		Uint32("freq", settings.Frequency).
		Uint32("baud", settings.BaudRate).
		Stringer("modulation", settings.Modulation).
		Msg("radio configured")
	return nil
}

// SetFrequency retunes the carrier. The radio is idled first so the
// synthesizer recalibrates on the next receive or transmit.
func (p *Port) SetFrequency(hz uint32) error {
	if err := p.Idle(); err != nil {
		return err
	}
	return p.dev.SetFrequency(hz)
}

// Transmit sends data and then repeat more copies
func (p *Port) Transmit(data []byte, repeat int) error {
	if len(data) == 0 {
		return errors.New("empty transmit payload")
	}
	if repeat < 0 || repeat >= math.MaxUint16 {
		return errors.Errorf("repeat %d out of range", repeat)
	}
	// the firmware returns to IDLE after TX
	p.rx = false

	if len(data) <= RFMaxTXBlock {
		return p.dev.RFXmit(data, uint16(repeat), 0)
	}
	for i := 0; i <= repeat; i++ {
		if err := p.dev.RFXmitLong(data); err != nil {
			return err
		}
	}
	return nil
}

// Receive waits for one packet and reads the RSSI it arrived at
func (p *Port) Receive(timeout time.Duration) (radio.Reading, error) {
	if !p.rx {
		if err := p.dev.SetModeRX(); err != nil {
			return radio.Reading{}, err
		}
		p.rx = true
	}

	data, err := p.dev.RFRecv(timeout)
	if err != nil {
		if errors.Is(err, ErrRecvTimeout) {
			return radio.Reading{}, radio.ErrTimeout
		}
		return radio.Reading{}, err
	}

	raw, err := p.dev.GetRSSI()
	if err != nil {
		return radio.Reading{}, errors.Wrap(err, "failed to read RSSI")
	}
	return radio.Reading{Payload: data, RSSI: RSSIToDBm(raw)}, nil
}

// Idle returns the radio to IDLE
func (p *Port) Idle() error {
	p.rx = false
	return p.dev.SetModeIDLE()
}

// Close idles the radio and releases the device
func (p *Port) Close() error {
	return p.dev.Close()
}
