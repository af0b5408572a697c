// Package jam holds a second radio in continuous transmit so a receiver
// near the target never decodes the victim's transmission.
package jam

import (
	"bytes"
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/herlein/rollcat/pkg/radio"
	"github.com/herlein/rollcat/pkg/telemetry"
)

// State of a Coordinator
type State int

const (
	Idle State = iota
	Jamming
)

func (s State) String() string {
	if s == Jamming {
		return "jamming"
	}
	return "idle"
}

// Defaults for the noise burst
const (
	DefaultBurstSize = 255
	DefaultRepeat    = 10
	DefaultVariance  = 80000
)

// Coordinator owns the jam radio. Start and Stop may be called from any
// goroutine; the radio itself is only driven by the jam goroutine while
// Jamming and by Stop afterwards.
type Coordinator struct {
	port     radio.Port
	settings radio.Settings
	jitter   uint32
	burst    []byte
	repeat   int
	sink     telemetry.Sink
	rng      *rand.Rand

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan error
	loop   *loopState
}

// loopState is the outcome of one jam loop. err is written before exited
// is closed.
type loopState struct {
	exited chan struct{}
	err    error
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithBurst sets the noise payload and its repeat count
func WithBurst(burst []byte, repeat int) Option {
	return func(c *Coordinator) {
		c.burst = burst
		c.repeat = repeat
	}
}

// WithSink sets the telemetry sink
func WithSink(sink telemetry.Sink) Option {
	return func(c *Coordinator) { c.sink = sink }
}

// WithRand sets the source used to pick hop frequencies
func WithRand(rng *rand.Rand) Option {
	return func(c *Coordinator) { c.rng = rng }
}

// New returns an Idle coordinator for port. When jitterBand is non-zero
// each burst is sent on a random frequency within ±jitterBand of the
// settings' frequency.
func New(port radio.Port, settings radio.Settings, jitterBand uint32, opts ...Option) *Coordinator {
	c := &Coordinator{
		port:     port,
		settings: settings,
		jitter:   jitterBand,
		burst:    bytes.Repeat([]byte{0xFF}, DefaultBurstSize),
		repeat:   DefaultRepeat,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start configures the jam radio and begins transmitting in the
// background. It returns as soon as the loop is running. Starting while
// already Jamming logs a warning and does nothing.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Jamming {
		log.Warn().Msg("jammer already running, start ignored")
		return nil
	}

	if err := c.port.Configure(c.settings); err != nil {
		return errors.Wrap(err, "failed to configure jam radio")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan error, 1)
	c.loop = &loopState{exited: make(chan struct{})}
	c.state = Jamming

	go func(done chan<- error, loop *loopState) {
		err := c.run(loopCtx)
		if err != nil {
			log.Error().Err(err).Msg("jam loop stopped")
		}
		loop.err = err
		close(loop.exited)
		done <- err
	}(c.done, c.loop)

	log.Info().Uint32("freq", c.settings.Frequency).Uint32("jitter", c.jitter).Msg("jammer started")
	telemetry.Emit(c.sink, telemetry.Event{Kind: telemetry.KindJamStart, Frequency: c.settings.Frequency})
	return nil
}

// Stop halts transmission, waits for the jam loop to exit and idles the
// radio. It returns the error that ended the loop early, if any. Stopping
// while Idle logs a warning and does nothing.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Idle {
		log.Warn().Msg("jammer not running, stop ignored")
		return nil
	}

	c.cancel()
	loopErr := <-c.done
	c.cancel, c.done = nil, nil
	c.state = Idle

	idleErr := c.port.Idle()

	log.Info().Msg("jammer stopped")
	telemetry.Emit(c.sink, telemetry.Event{Kind: telemetry.KindJamStop, Frequency: c.settings.Frequency})

	if loopErr != nil {
		return errors.Wrap(loopErr, "jam loop failed")
	}
	if idleErr != nil {
		return errors.Wrap(idleErr, "failed to idle jam radio")
	}
	return nil
}

// Done is closed when the most recent jam loop exits, whether stopped or
// failed. It is nil before the first Start.
func (c *Coordinator) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loop == nil {
		return nil
	}
	return c.loop.exited
}

// Err returns the error that ended the most recent jam loop, or nil while
// it is still running or when it was stopped cleanly
func (c *Coordinator) Err() error {
	c.mu.Lock()
	loop := c.loop
	c.mu.Unlock()
	if loop == nil {
		return nil
	}
	select {
	case <-loop.exited:
		return loop.err
	default:
		return nil
	}
}

func (c *Coordinator) run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if c.jitter > 0 {
			if err := c.port.SetFrequency(c.hop()); err != nil {
				return errors.Wrap(err, "jam hop failed")
			}
		}
		if err := c.port.Transmit(c.burst, c.repeat); err != nil {
			return errors.Wrap(err, "jam transmit failed")
		}
	}
}

// hop picks a frequency uniformly in [f-jitter, f+jitter]
func (c *Coordinator) hop() uint32 {
	center := int64(c.settings.Frequency)
	span := int64(c.jitter)
	f := center - span + c.rng.Int63n(2*span+1)
	if f <= 0 {
		f = center
	}
	return uint32(f)
}
