package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/gousb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/herlein/rollcat/pkg/attack"
	"github.com/herlein/rollcat/pkg/config"
	"github.com/herlein/rollcat/pkg/correlate"
	"github.com/herlein/rollcat/pkg/scanner"
	"github.com/herlein/rollcat/pkg/yardstick"
)

var (
	compareCap  string
	compareLog  string
	fixedWidth  bool
	compareTop  int
	listVerbose bool
	regsOut     string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Rank logged clicker presses against a captured payload",
	RunE: func(cmd *cobra.Command, args []string) error {
		if compareCap == "" {
			return errors.New("a capture file is required (-u)")
		}
		if compareLog == "" {
			compareLog = filepath.Join(env.cfg.Paths.Captures, scanner.ClickerLogName)
		}

		captured, err := attack.Load(compareCap)
		if err != nil {
			return err
		}
		f, err := os.Open(compareLog)
		if err != nil {
			return errors.Wrap(err, "failed to open clicker log")
		}
		defer f.Close()
		presses, err := correlate.ParseLog(f)
		if err != nil {
			return err
		}
		candidates := correlate.Flatten(presses)
		log.Debug().Int("presses", len(presses)).Int("candidates", len(candidates)).Msg("clicker log loaded")

		opts := correlate.Options{FixedWidth: fixedWidth}
		for _, payload := range captured {
			ranked, err := opts.Rank(payload, candidates)
			if err != nil {
				return errors.Wrapf(err, "payload %s", payload)
			}
			fmt.Printf("Capture %s\n", payload)
			if len(ranked) == 0 {
				fmt.Println("  no comparable presses")
				continue
			}
			for i, m := range ranked {
				if i == compareTop {
					break
				}
				fmt.Printf("  %5.1f%%  %s\n", m.Score*100, m.Payload)
			}
		}
		return nil
	},
}

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Save or show radio settings templates",
}

var templateSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the active radio settings as a named template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.SaveTemplate(env.cfg.Paths.Templates, args[0], env.cfg.Radio)
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", path)
		return nil
	},
}

var templateShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print the settings a template would apply",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.LoadTemplate(args[0], env.cfg.Radio)
		if err != nil {
			return err
		}
		return config.WriteTemplate(os.Stdout, s)
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List attached YardStick One devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := gousb.NewContext()
		defer ctx.Close()

		infos, err := yardstick.List(ctx)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("No YardStick One devices found")
			return nil
		}
		for i, info := range infos {
			fmt.Printf("#%d  %03d:%03d  serial %s  %s %s\n",
				i, info.Bus, info.Address, info.Serial, info.Manufacturer, info.Product)
			if listVerbose {
				printDeviceDetails(ctx, i)
			}
		}
		return nil
	},
}

var regsCmd = &cobra.Command{
	Use:   "regs",
	Short: "Dump the capture radio's registers as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := yardstick.ParseSelector(env.cfg.Devices.Capture)
		if err != nil {
			return err
		}
		ctx := gousb.NewContext()
		defer ctx.Close()
		dev, err := yardstick.Open(ctx, sel)
		if err != nil {
			return err
		}
		defer dev.Close()

		if err := dev.Ping([]byte("PING")); err != nil {
			return errors.Wrap(err, "ping failed")
		}
		reg, err := dev.ReadRegisters()
		if err != nil {
			return err
		}

		out := os.Stdout
		if regsOut != "" {
			if out, err = os.Create(regsOut); err != nil {
				return errors.Wrap(err, "failed to create register dump")
			}
			defer out.Close()
		}
		fmt.Fprintf(out, "# %s\n", dev)
		fmt.Fprintf(out, "# frequency %d Hz\n", yardstick.FreqFromRegs(reg.FREQ2, reg.FREQ1, reg.FREQ0))
		for _, f := range reg.Fields() {
			fmt.Fprintf(out, "%s: 0x%02X\n", f.Name, f.Value)
		}
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "USB-reset every attached YardStick One",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := gousb.NewContext()
		defer ctx.Close()

		n, err := yardstick.ResetAll(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Reset %d device(s)\n", n)
		return nil
	},
}

func init() {
	compareCmd.Flags().StringVarP(&compareCap, "file", "u", "", "capture file holding the payload to match")
	compareCmd.Flags().StringVar(&compareLog, "log", "", "clicker log (default <captures>/capturedClicks.log)")
	compareCmd.Flags().BoolVar(&fixedWidth, "fixed-width", false, "keep leading zero bits when comparing")
	compareCmd.Flags().IntVar(&compareTop, "top", 5, "number of matches to show per payload")

	templateCmd.AddCommand(templateSaveCmd, templateShowCmd)

	regsCmd.Flags().StringVarP(&regsOut, "output", "o", "", "write the dump to a file instead of stdout")

	devicesCmd.Flags().BoolVarP(&listVerbose, "verbose", "v", false, "open each device and show firmware details")
}

func printDeviceDetails(ctx *gousb.Context, index int) {
	sel, err := yardstick.ParseSelector(fmt.Sprintf("#%d", index))
	if err != nil {
		return
	}
	dev, err := yardstick.Open(ctx, sel)
	if err != nil {
		fmt.Printf("      unavailable: %v\n", err)
		return
	}
	defer dev.Close()

	build, err := dev.GetBuildType()
	if err != nil {
		fmt.Printf("      build type: %v\n", err)
	} else {
		fmt.Printf("      build type: %s\n", build)
	}
	part, err := dev.GetPartNum()
	if err != nil {
		fmt.Printf("      part number: %v\n", err)
		return
	}
	fmt.Printf("      part number: 0x%02x (%s)\n", part, yardstick.ChipName(part))
	if f, err := dev.GetFrequency(); err == nil {
		fmt.Printf("      frequency: %.6f MHz\n", float64(f)/1e6)
	}
}
