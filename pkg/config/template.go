package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/herlein/rollcat/pkg/radio"
)

// ErrInvalidTemplate marks a template line with a known key and a bad value
var ErrInvalidTemplate = errors.New("invalid settings template")

// TemplateExt is the extension of saved settings templates
const TemplateExt = ".config"

// Template keys, in the order they are written
const (
	KeyFrequency        = "frequency"
	KeyBaudRate         = "baud_rate"
	KeyChannelBandwidth = "channel_bandwidth"
	KeyModulation       = "modulation_type"
	KeyUpperRSSI        = "upper_rssi"
	KeyLowerRSSI        = "lower_rssi"
	KeyChannelSpacing   = "channel_spacing"
	KeyDeviation        = "deviation"
)

// ReadTemplate applies "key: value" lines from r on top of settings.
// Unknown keys and lines without a colon are ignored.
func ReadTemplate(r io.Reader, settings radio.Settings) (radio.Settings, error) {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if err := applyTemplateValue(&settings, key, value); err != nil {
			return settings, errors.Wrapf(ErrInvalidTemplate, "line %d %q: %v", lineNo, line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return settings, errors.Wrap(err, "failed to read template")
	}
	return settings, nil
}

func applyTemplateValue(s *radio.Settings, key, value string) error {
	var err error
	switch key {
	case KeyFrequency:
		s.Frequency, err = parseUint32(value)
	case KeyBaudRate:
		s.BaudRate, err = parseUint32(value)
	case KeyChannelBandwidth:
		s.ChannelBandwidth, err = parseUint32(value)
	case KeyChannelSpacing:
		s.ChannelSpacing, err = parseUint32(value)
	case KeyDeviation:
		s.Deviation, err = parseUint32(value)
	case KeyModulation:
		s.Modulation, err = radio.ParseModulation(value)
	case KeyUpperRSSI:
		s.RSSIUpper, err = strconv.Atoi(value)
	case KeyLowerRSSI:
		s.RSSILower, err = strconv.Atoi(value)
	}
	return err
}

func parseUint32(value string) (uint32, error) {
	v, err := strconv.ParseUint(value, 10, 32)
	return uint32(v), err
}

// WriteTemplate writes settings as "key: value" lines
func WriteTemplate(w io.Writer, s radio.Settings) error {
	lines := []struct {
		key   string
		value interface{}
	}{
		{KeyFrequency, s.Frequency},
		{KeyBaudRate, s.BaudRate},
		{KeyChannelBandwidth, s.ChannelBandwidth},
		{KeyModulation, s.Modulation},
		{KeyUpperRSSI, s.RSSIUpper},
		{KeyLowerRSSI, s.RSSILower},
		{KeyChannelSpacing, s.ChannelSpacing},
		{KeyDeviation, s.Deviation},
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%s: %v\n", l.key, l.value); err != nil {
			return err
		}
	}
	return nil
}

// TemplatePath returns the file a template named name is stored in
func TemplatePath(dir, name string) string {
	return filepath.Join(dir, name+TemplateExt)
}

// SaveTemplate writes settings to <dir>/<name>.config, creating dir
func SaveTemplate(dir, name string, s radio.Settings) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", errors.Wrapf(ErrInvalidTemplate, "bad template name %q", name)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create template directory")
	}

	path := TemplatePath(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to create template")
	}
	defer f.Close()

	if err := WriteTemplate(f, s); err != nil {
		return "", errors.Wrap(err, "failed to write template")
	}
	return path, f.Close()
}

// LoadTemplate reads the template at path on top of settings
func LoadTemplate(path string, settings radio.Settings) (radio.Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return settings, errors.Wrapf(err, "failed to open template %s", path)
	}
	defer f.Close()
	return ReadTemplate(f, settings)
}
