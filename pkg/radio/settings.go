package radio

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Modulation selects the modem keying scheme
type Modulation int

const (
	ModASKOOK Modulation = iota
	ModFSK2
)

// String returns the template/CLI spelling of the modulation
func (m Modulation) String() string {
	switch m {
	case ModASKOOK:
		return "MOD_ASK_OOK"
	case ModFSK2:
		return "MOD_2FSK"
	default:
		return fmt.Sprintf("Modulation(%d)", int(m))
	}
}

// ParseModulation accepts MOD_ASK_OOK / MOD_2FSK and the short forms
// ASK_OOK, OOK, 2FSK and FSK2 (case-insensitive).
func ParseModulation(s string) (Modulation, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MOD_ASK_OOK", "ASK_OOK", "OOK", "ASK":
		return ModASKOOK, nil
	case "MOD_2FSK", "2FSK", "FSK2", "FSK":
		return ModFSK2, nil
	}
	return 0, errors.Wrapf(ErrInvalidSettings, "unknown modulation %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (m Modulation) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *Modulation) UnmarshalText(text []byte) error {
	parsed, err := ParseModulation(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Settings is the radio configuration for one run
type Settings struct {
	Frequency        uint32     `yaml:"frequency"`
	BaudRate         uint32     `yaml:"baud_rate"`
	ChannelBandwidth uint32     `yaml:"channel_bandwidth"`
	ChannelSpacing   uint32     `yaml:"channel_spacing"`
	Modulation       Modulation `yaml:"modulation_type"`
	Deviation        uint32     `yaml:"deviation"`  // FSK2 only
	RSSILower        int        `yaml:"lower_rssi"` // dBm, exclusive
	RSSIUpper        int        `yaml:"upper_rssi"` // dBm, exclusive
}

// Default radio settings, tuned for 315 MHz OOK garage remotes
const (
	DefaultFrequency        = 315000000
	DefaultBaudRate         = 4800
	DefaultChannelBandwidth = 60000
	DefaultChannelSpacing   = 24000
	DefaultRSSILower        = -100
	DefaultRSSIUpper        = -20
)

// DefaultSettings returns the settings used when nothing overrides them
func DefaultSettings() Settings {
	return Settings{
		Frequency:        DefaultFrequency,
		BaudRate:         DefaultBaudRate,
		ChannelBandwidth: DefaultChannelBandwidth,
		ChannelSpacing:   DefaultChannelSpacing,
		Modulation:       ModASKOOK,
		RSSILower:        DefaultRSSILower,
		RSSIUpper:        DefaultRSSIUpper,
	}
}

// Validate checks the settings before any radio is touched
func (s Settings) Validate() error {
	if s.Frequency == 0 {
		return errors.Wrap(ErrInvalidSettings, "frequency must be positive")
	}
	if s.BaudRate == 0 {
		return errors.Wrap(ErrInvalidSettings, "baud rate must be positive")
	}
	if s.RSSILower >= s.RSSIUpper {
		return errors.Wrapf(ErrInvalidSettings, "lower rssi %d must be below upper rssi %d", s.RSSILower, s.RSSIUpper)
	}
	if s.Modulation != ModASKOOK && s.Modulation != ModFSK2 {
		return errors.Wrapf(ErrInvalidSettings, "unsupported modulation %v", s.Modulation)
	}
	return nil
}
