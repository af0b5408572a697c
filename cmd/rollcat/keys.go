package main

import (
	"context"

	"github.com/eiannone/keyboard"
	"github.com/rs/zerolog/log"
)

// stopOnKey returns a context cancelled when the operator presses Enter,
// 'q' or Ctrl+C. When stdin is not a terminal the parent is returned with
// only signal-based cancellation.
func stopOnKey(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	if err := keyboard.Open(); err != nil {
		log.Debug().Err(err).Msg("keyboard unavailable, stop with Ctrl+C")
		return ctx, cancel
	}

	go func() {
		defer cancel()
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			if key == keyboard.KeyEnter || key == keyboard.KeyCtrlC || char == 'q' || char == 'Q' {
				log.Info().Msg("stop requested")
				return
			}
		}
	}()

	return ctx, func() {
		cancel()
		keyboard.Close()
	}
}
