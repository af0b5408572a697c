package main

import (
	"github.com/google/gousb"
	"github.com/rs/zerolog/log"

	"github.com/herlein/rollcat/pkg/yardstick"
)

// radios holds the USB context and the ports opened for one command
type radios struct {
	usb     *gousb.Context
	capture *yardstick.Port
	jam     *yardstick.Port
}

// Close releases every port and the USB context
func (r *radios) Close() {
	for _, p := range []*yardstick.Port{r.capture, r.jam} {
		if p != nil {
			if err := p.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close radio")
			}
		}
	}
	r.usb.Close()
}

// openCapture opens the capture radio and configures it
func openCapture() (*radios, error) {
	sel, err := yardstick.ParseSelector(env.cfg.Devices.Capture)
	if err != nil {
		return nil, err
	}

	r := &radios{usb: gousb.NewContext()}
	dev, err := yardstick.Open(r.usb, sel)
	if err != nil {
		r.usb.Close()
		return nil, err
	}
	r.capture = yardstick.NewPort(dev)
	log.Info().Str("device", dev.String()).Msg("capture radio")

	if err := r.capture.Configure(env.cfg.Radio); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// openPair opens the capture and jam radios. Only the capture radio is
// configured here; the jam coordinator configures its own radio on start.
func openPair() (*radios, error) {
	capSel, err := yardstick.ParseSelector(env.cfg.Devices.Capture)
	if err != nil {
		return nil, err
	}
	jamSel, err := yardstick.ParseSelector(env.cfg.Devices.Jam)
	if err != nil {
		return nil, err
	}

	r := &radios{usb: gousb.NewContext()}
	capDev, jamDev, err := yardstick.OpenPair(r.usb, capSel, jamSel)
	if err != nil {
		r.usb.Close()
		return nil, err
	}
	r.capture = yardstick.NewPort(capDev)
	r.jam = yardstick.NewPort(jamDev)
	log.Info().Str("capture", capDev.String()).Str("jam", jamDev.String()).Msg("radios opened")

	if err := r.capture.Configure(env.cfg.Radio); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// openJam opens the jam radio on its own. The coordinator configures it
// when jamming starts.
func openJam() (*radios, error) {
	sel, err := yardstick.ParseSelector(env.cfg.Devices.Jam)
	if err != nil {
		return nil, err
	}

	r := &radios{usb: gousb.NewContext()}
	dev, err := yardstick.Open(r.usb, sel)
	if err != nil {
		r.usb.Close()
		return nil, err
	}
	r.jam = yardstick.NewPort(dev)
	log.Info().Str("device", dev.String()).Msg("jam radio")
	return r, nil
}
