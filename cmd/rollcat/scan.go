package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/herlein/rollcat/pkg/capture"
	"github.com/herlein/rollcat/pkg/scanner"
)

var (
	sweepStart    uint32
	sweepInterval uint32
	knownFreqs    []uint
	clickerMode   bool
	commonFreqs   bool
	gateRSSI      bool
	validateBand  bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Listen across frequencies and log every transmission heard",
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Step upward from a start frequency by a fixed interval",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("interval") {
			sweepInterval = env.cfg.Scan.Interval
		}
		if !cmd.Flags().Changed("start") {
			sweepStart = sweepStartFrequency(env.cfg.Radio.Frequency)
		}
		sess := scanner.NewSession(env.cfg.Paths.ScanLogs, time.Now())
		return runScan(cmd.Context(), sess, func(ctx context.Context, s *scanner.Scanner) error {
			return s.Sweep(ctx, sess, sweepStart, sweepInterval)
		})
	},
}

var knownCmd = &cobra.Command{
	Use:   "known",
	Short: "Cycle a list of known frequencies",
	Long: `known cycles the given frequencies, or the configured list. With
--clicker only the first frequency is used and hits are appended to the
clicker log that compare reads.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		freqs := env.cfg.Scan.Frequencies
		switch {
		case cmd.Flags().Changed("freq"):
			freqs = make([]uint32, len(knownFreqs))
			for i, f := range knownFreqs {
				freqs[i] = uint32(f)
			}
		case commonFreqs:
			freqs = scanner.CommonFrequencies
		}

		sess := scanner.NewSession(env.cfg.Paths.ScanLogs, time.Now())
		if clickerMode {
			sess = scanner.NewClickerSession(env.cfg.Paths.Captures)
			if len(freqs) > 1 {
				freqs = freqs[:1]
			}
		}
		return runScan(cmd.Context(), sess, func(ctx context.Context, s *scanner.Scanner) error {
			return s.Known(ctx, sess, freqs)
		})
	},
}

func init() {
	sweepCmd.Flags().Uint32Var(&sweepStart, "start", 0, "first frequency in Hz (default the radio frequency)")
	sweepCmd.Flags().Uint32VarP(&sweepInterval, "interval", "v", scanner.DefaultInterval, "step in Hz (default from config)")

	knownCmd.Flags().UintSliceVarP(&knownFreqs, "freq", "f", nil, "frequencies in Hz (default from config)")
	knownCmd.Flags().BoolVar(&clickerMode, "clicker", false, "log hits on the first frequency for compare")
	knownCmd.Flags().BoolVar(&commonFreqs, "common", false, "cycle the common remote frequencies")

	for _, c := range []*cobra.Command{sweepCmd, knownCmd} {
		c.Flags().BoolVar(&gateRSSI, "gate-rssi", false, "only log readings inside the RSSI bounds")
		c.Flags().BoolVar(&validateBand, "validate-band", false, "skip frequencies the radio cannot tune")
	}
	scanCmd.AddCommand(sweepCmd, knownCmd)
}

// sweepStartFrequency is where a sweep begins when --start is not given:
// the configured radio frequency, or DefaultStart when none is set
func sweepStartFrequency(radioHz uint32) uint32 {
	if radioHz == 0 {
		return scanner.DefaultStart
	}
	return radioHz
}

// runScan opens the capture radio, builds the scanner and runs fn until
// the operator stops it
func runScan(parent context.Context, sess *scanner.Session, fn func(context.Context, *scanner.Scanner) error) error {
	r, err := openCapture()
	if err != nil {
		return err
	}
	defer r.Close()
	printSettings(env.cfg.Radio)

	c := capture.NewSession(r.capture, env.cfg.Radio, env.sink)
	c.Timeout = env.cfg.Scan.Timeout
	s := scanner.New(c, env.sink)
	s.GateRSSI = gateRSSI
	s.ValidateBand = validateBand

	ctx, stop := stopOnKey(parent)
	defer stop()
	fmt.Printf("Logging to %s, press Enter or q to stop\n", sess.Path)

	err = fn(ctx, s)
	if ctx.Err() != nil {
		log.Info().Int("hits", sess.Records()).Str("log", sess.Path).Msg("scan stopped")
		return nil
	}
	return err
}
