package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/herlein/rollcat/pkg/attack"
	"github.com/herlein/rollcat/pkg/correlate"
	"github.com/herlein/rollcat/pkg/jam"
	"github.com/herlein/rollcat/pkg/yardstick"
)

var (
	variance    uint32
	capFile     string
	sendForever bool
	pwmKey      string
	pwmPrefix   string
)

var rollingCmd = &cobra.Command{
	Use:   "rolling",
	Short: "Jam and capture two rolling codes, then replay them",
	Long: `rolling uses two YardStick Ones. The jam radio transmits noise next
to the carrier while the capture radio records two consecutive presses.
Once both are captured the jammer stops, the first code is replayed and
the second is either sent on confirmation or saved for later.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openPair()
		if err != nil {
			return err
		}
		defer r.Close()
		printSettings(env.cfg.Radio)

		if !cmd.Flags().Changed("variance") {
			variance = env.cfg.Jam.Variance
		}
		jammer := newJammer(r.jam, variance)

		res, err := newOrchestrator(r.capture).RollingCode(cmd.Context(), jammer)
		if err != nil {
			return err
		}
		log.Info().Int("sent", res.Sent).Str("saved", res.SavedPath).Msg("rolling code attack finished")
		return nil
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Capture one transmission and replay it",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openCapture()
		if err != nil {
			return err
		}
		defer r.Close()
		printSettings(env.cfg.Radio)

		res, err := newOrchestrator(r.capture).LiveReplay(cmd.Context())
		if err != nil {
			return err
		}
		if res.SavedPath != "" {
			fmt.Printf("Saved to %s\n", res.SavedPath)
		}
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Transmit the payloads of a saved capture file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if capFile == "" {
			return errors.New("a capture file is required (-u)")
		}
		r, err := openCapture()
		if err != nil {
			return err
		}
		defer r.Close()

		ctx := cmd.Context()
		if sendForever {
			var stop func()
			ctx, stop = stopOnKey(ctx)
			defer stop()
			fmt.Println("Sending until Enter or q is pressed")
		}

		res, err := newOrchestrator(r.capture).ReplaySaved(ctx, capFile, sendForever)
		if err != nil && !(sendForever && ctx.Err() != nil) {
			return err
		}
		log.Info().Int("sent", res.Sent).Msg("replay finished")
		return nil
	},
}

var jamCmd = &cobra.Command{
	Use:   "jam",
	Short: "Jam the configured frequency until stopped",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openJam()
		if err != nil {
			return err
		}
		defer r.Close()
		printSettings(env.cfg.Radio)

		if !cmd.Flags().Changed("variance") {
			variance = env.cfg.Jam.Variance
		}
		jammer := newJammer(r.jam, variance)

		ctx, stop := stopOnKey(cmd.Context())
		defer stop()
		if err := jammer.Start(ctx); err != nil {
			return err
		}
		fmt.Println("Jamming, press Enter or q to stop")
		<-ctx.Done()
		return jammer.Stop()
	},
}

var debruijnCmd = &cobra.Command{
	Use:   "debruijn",
	Short: "Transmit a binary de Bruijn sequence",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openCapture()
		if err != nil {
			return err
		}
		defer r.Close()

		_, err = newOrchestrator(r.capture).DeBruijn(cmd.Context())
		return err
	},
}

var pwmCmd = &cobra.Command{
	Use:   "pwm",
	Short: "PWM-encode a static key and transmit it",
	RunE: func(cmd *cobra.Command, args []string) error {
		bits, err := correlate.PWM(pwmPrefix, pwmKey)
		if err != nil {
			return err
		}
		r, err := openCapture()
		if err != nil {
			return err
		}
		defer r.Close()

		log.Info().Str("bits", bits).Msg("sending PWM key")
		return newOrchestrator(r.capture).SendBits(cmd.Context(), bits)
	},
}

func init() {
	rollingCmd.Flags().Uint32VarP(&variance, "variance", "a", 0, "jam frequency jitter in Hz (default from config)")
	jamCmd.Flags().Uint32VarP(&variance, "variance", "a", 0, "jam frequency jitter in Hz (default from config)")

	sendCmd.Flags().StringVarP(&capFile, "file", "u", "", "capture file to transmit")
	sendCmd.Flags().BoolVar(&sendForever, "forever", false, "repeat the file until stopped")

	pwmCmd.Flags().StringVar(&pwmKey, "key", "", "key bits to encode")
	pwmCmd.Flags().StringVar(&pwmPrefix, "prefix", "", "preamble bits sent before the key")
	_ = pwmCmd.MarkFlagRequired("key")
}

func newJammer(port *yardstick.Port, jitter uint32) *jam.Coordinator {
	burst := bytes.Repeat([]byte{0xFF}, env.cfg.Jam.BurstSize)
	return jam.New(port, env.cfg.Radio, jitter,
		jam.WithSink(env.sink),
		jam.WithBurst(burst, env.cfg.Jam.Repeat))
}

func newOrchestrator(port *yardstick.Port) *attack.Orchestrator {
	store := attack.NewStore(env.cfg.Paths.Captures)
	prompt := newTerminalPrompter(os.Stdin, os.Stdout)
	return attack.New(port, env.cfg.Radio, store, prompt, env.sink)
}
