package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herlein/rollcat/pkg/radio"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, radio.DefaultSettings(), cfg.Radio)
	assert.Equal(t, []uint32{315000000, 433000000}, cfg.Scan.Frequencies)
	assert.Equal(t, uint32(80000), cfg.Jam.Variance)
	assert.Equal(t, "./captures", cfg.Paths.Captures)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "rollcat.yaml", `
radio:
  frequency: 433920000
  modulation_type: MOD_2FSK
  deviation: 20000
devices:
  capture: "#0"
  jam: "1:10"
scan:
  frequencies: [303875000, 390000000]
  timeout: 500ms
nats:
  url: nats://localhost:4222
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(433920000), cfg.Radio.Frequency)
	assert.Equal(t, radio.ModFSK2, cfg.Radio.Modulation)
	assert.Equal(t, uint32(20000), cfg.Radio.Deviation)
	assert.Equal(t, uint32(4800), cfg.Radio.BaudRate, "unset keys keep defaults")
	assert.Equal(t, "#0", cfg.Devices.Capture)
	assert.Equal(t, "1:10", cfg.Devices.Jam)
	assert.Equal(t, []uint32{303875000, 390000000}, cfg.Scan.Frequencies)
	assert.Equal(t, 500*time.Millisecond, cfg.Scan.Timeout)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
}

func TestLoadRejectsInvertedRSSI(t *testing.T) {
	path := writeFile(t, "bad.yaml", "radio:\n  lower_rssi: -20\n  upper_rssi: -100\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, radio.ErrInvalidSettings))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ROLLCAT_FREQUENCY", "390000000")
	t.Setenv("ROLLCAT_JAM_DEVICE", "#1")
	t.Setenv("ROLLCAT_LOG_LEVEL", "DEBUG")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, uint32(390000000), cfg.Radio.Frequency)
	assert.Equal(t, "#1", cfg.Devices.Jam)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestEnvOverrideBadFrequency(t *testing.T) {
	t.Setenv("ROLLCAT_FREQUENCY", "fast")
	_, err := Load("")
	assert.True(t, errors.Is(err, radio.ErrInvalidSettings))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestTemplateRoundTrip(t *testing.T) {
	want := radio.Settings{
		Frequency:        433920000,
		BaudRate:         2500,
		ChannelBandwidth: 100000,
		ChannelSpacing:   50000,
		Modulation:       radio.ModFSK2,
		Deviation:        12000,
		RSSILower:        -90,
		RSSIUpper:        -30,
	}

	dir := t.TempDir()
	path, err := SaveTemplate(dir, "garage", want)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "garage.config"), path)

	got, err := LoadTemplate(path, radio.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWriteTemplateFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf, radio.DefaultSettings()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"frequency: 315000000",
		"baud_rate: 4800",
		"channel_bandwidth: 60000",
		"modulation_type: MOD_ASK_OOK",
		"upper_rssi: -20",
		"lower_rssi: -100",
		"channel_spacing: 24000",
		"deviation: 0",
	}, lines)
}

func TestReadTemplateIgnoresUnknown(t *testing.T) {
	in := "# saved from the bench\nfrequency: 303875000\ncolor: blue\nnot a setting\n"
	got, err := ReadTemplate(strings.NewReader(in), radio.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, uint32(303875000), got.Frequency)
	assert.Equal(t, uint32(4800), got.BaudRate)
}

func TestReadTemplateRejectsBadValue(t *testing.T) {
	in := "frequency: 315000000\nbaud_rate: fast\n"
	_, err := ReadTemplate(strings.NewReader(in), radio.DefaultSettings())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTemplate))
	assert.Contains(t, err.Error(), "baud_rate: fast")
	assert.Contains(t, err.Error(), "line 2")
}

func TestSaveTemplateRejectsPathName(t *testing.T) {
	_, err := SaveTemplate(t.TempDir(), "../escape", radio.DefaultSettings())
	assert.True(t, errors.Is(err, ErrInvalidTemplate))
}
