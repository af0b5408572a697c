package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/herlein/rollcat/pkg/config"
	"github.com/herlein/rollcat/pkg/radio"
	"github.com/herlein/rollcat/pkg/telemetry"
)

var (
	configPath   string
	logLevel     string
	templatePath string
	metricsAddr  string
	natsURL      string
	captureSel   string
	jamSel       string

	frequency  uint32
	baudRate   uint32
	chanBW     uint32
	chanSpc    uint32
	modulation string
	deviation  uint32
	upperRSSI  int
	lowerRSSI  int
)

// env is built once per invocation by the root pre-run hook
var env struct {
	cfg  *config.Config
	sink telemetry.Sink
	nc   *nats.Conn
}

var rootCmd = &cobra.Command{
	Use:   "rollcat",
	Short: "Sub-GHz capture, jam and replay toolkit for the YardStick One",
	Long: `rollcat captures fixed and rolling-code remote transmissions, replays
them, jams a receiver while capturing, scans for active frequencies and
correlates captured payloads against logged button presses.

Radio settings come from the config file, then a settings template, then
the radio flags below, each overriding the last.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if env.nc != nil {
			env.nc.Close()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML configuration file")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&templatePath, "template", "", "load radio settings from a device template")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	pf.StringVar(&natsURL, "nats-url", "", "publish events to this NATS server")
	pf.StringVarP(&captureSel, "device", "d", "", "capture radio selector")
	pf.StringVar(&jamSel, "jam-device", "", "jamming radio selector")

	pf.Uint32VarP(&frequency, "frequency", "F", radio.DefaultFrequency, "carrier frequency in Hz")
	pf.Uint32VarP(&baudRate, "baud", "B", radio.DefaultBaudRate, "baud rate")
	pf.Uint32VarP(&chanBW, "chanbw", "C", radio.DefaultChannelBandwidth, "channel bandwidth in Hz")
	pf.Uint32VarP(&chanSpc, "chanspc", "S", radio.DefaultChannelSpacing, "channel spacing in Hz")
	pf.StringVarP(&modulation, "modulation", "M", radio.ModASKOOK.String(), "MOD_ASK_OOK or MOD_2FSK")
	pf.Uint32VarP(&deviation, "deviation", "V", 0, "FSK deviation in Hz")
	pf.IntVarP(&upperRSSI, "upper-rssi", "U", radio.DefaultRSSIUpper, "upper RSSI bound in dBm (exclusive)")
	pf.IntVarP(&lowerRSSI, "lower-rssi", "L", radio.DefaultRSSILower, "lower RSSI bound in dBm (exclusive)")

	rootCmd.AddCommand(rollingCmd, replayCmd, sendCmd, jamCmd, scanCmd,
		compareCmd, debruijnCmd, pwmCmd, templateCmd, devicesCmd, regsCmd, resetCmd)
}

// setup loads configuration, applies overrides and wires telemetry
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if templatePath != "" {
		if cfg.Radio, err = config.LoadTemplate(templatePath, cfg.Radio); err != nil {
			return err
		}
	}
	if err := applyRadioFlags(cmd, &cfg.Radio); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("device") {
		cfg.Devices.Capture = captureSel
	}
	if flags.Changed("jam-device") {
		cfg.Devices.Jam = jamSel
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = metricsAddr
	}
	if flags.Changed("nats-url") {
		cfg.NATS.URL = natsURL
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := telemetry.SetupLogging(cfg.Log.Level, os.Stderr); err != nil {
		return err
	}

	sinks := []telemetry.Sink{telemetry.NewLogSink(log.Logger)}
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		sinks = append(sinks, telemetry.NewMetrics(reg))
		go func(ctx context.Context) {
			if err := telemetry.Serve(ctx, cfg.Metrics.Addr, reg); err != nil {
				log.Error().Err(err).Msg("metrics endpoint failed")
			}
		}(cmd.Context())
	}
	if cfg.NATS.URL != "" {
		natsSink, nc, err := telemetry.DialNATS(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return err
		}
		env.nc = nc
		sinks = append(sinks, natsSink)
	}

	env.cfg = cfg
	env.sink = telemetry.Multi(sinks...)
	return nil
}

// applyRadioFlags copies explicitly set radio flags over settings
func applyRadioFlags(cmd *cobra.Command, s *radio.Settings) error {
	flags := cmd.Flags()
	if flags.Changed("frequency") {
		s.Frequency = frequency
	}
	if flags.Changed("baud") {
		s.BaudRate = baudRate
	}
	if flags.Changed("chanbw") {
		s.ChannelBandwidth = chanBW
	}
	if flags.Changed("chanspc") {
		s.ChannelSpacing = chanSpc
	}
	if flags.Changed("modulation") {
		m, err := radio.ParseModulation(modulation)
		if err != nil {
			return err
		}
		s.Modulation = m
	}
	if flags.Changed("deviation") {
		s.Deviation = deviation
	}
	if flags.Changed("upper-rssi") {
		s.RSSIUpper = upperRSSI
	}
	if flags.Changed("lower-rssi") {
		s.RSSILower = lowerRSSI
	}
	return errors.WithMessage(s.Validate(), "radio flags")
}

// printSettings shows the active radio settings
func printSettings(s radio.Settings) {
	fmt.Printf("Frequency:  %.6f MHz\n", float64(s.Frequency)/1e6)
	fmt.Printf("Modulation: %s\n", s.Modulation)
	fmt.Printf("Baud rate:  %d\n", s.BaudRate)
	fmt.Printf("Bandwidth:  %d Hz, spacing %d Hz\n", s.ChannelBandwidth, s.ChannelSpacing)
	if s.Deviation > 0 {
		fmt.Printf("Deviation:  %d Hz\n", s.Deviation)
	}
	fmt.Printf("RSSI:       %d < rssi < %d dBm\n", s.RSSILower, s.RSSIUpper)
	fmt.Println()
}
