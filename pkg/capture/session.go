package capture

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/herlein/rollcat/pkg/radio"
	"github.com/herlein/rollcat/pkg/telemetry"
)

// DefaultTimeout bounds a single receive call
const DefaultTimeout = 1 * time.Second

// Decider accepts or rejects a genuine capture in Single mode
type Decider func(c radio.Capture) (bool, error)

// Session drives one receive radio. It is not safe for concurrent use.
type Session struct {
	Port     radio.Port
	Settings radio.Settings
	Filter   Filter
	Timeout  time.Duration
	Sink     telemetry.Sink
	Decide   Decider

	// Frequency stamped on captures; defaults to Settings.Frequency
	Frequency uint32

	now func() time.Time
}

// NewSession returns a session using IsGenuine and DefaultTimeout
func NewSession(port radio.Port, settings radio.Settings, sink telemetry.Sink) *Session {
	return &Session{
		Port:     port,
		Settings: settings,
		Filter:   IsGenuine,
		Timeout:  DefaultTimeout,
		Sink:     sink,
	}
}

func (s *Session) timestamp() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Session) frequency() uint32 {
	if s.Frequency != 0 {
		return s.Frequency
	}
	return s.Settings.Frequency
}

// Poll makes one bounded receive without RSSI gating. ok is false when the
// window closed empty.
func (s *Session) Poll(ctx context.Context) (c radio.Capture, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return radio.Capture{}, false, err
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	reading, err := s.Port.Receive(timeout)
	if err != nil {
		if radio.IsTimeout(err) {
			telemetry.Emit(s.Sink, telemetry.Event{Kind: telemetry.KindTimeout, Frequency: s.frequency()})
			return radio.Capture{}, false, nil
		}
		return radio.Capture{}, false, errors.Wrap(err, "receive failed")
	}
	if len(reading.Payload) == 0 {
		return radio.Capture{}, false, nil
	}

	return radio.Capture{
		Payload:   reading.Payload,
		RSSI:      reading.RSSI,
		Frequency: s.frequency(),
		Timestamp: s.timestamp(),
	}, true, nil
}

// next blocks until a reading passes the filter, ctx is done or the radio
// fails.
func (s *Session) next(ctx context.Context) (radio.Capture, error) {
	filter := s.Filter
	if filter == nil {
		filter = IsGenuine
	}

	for {
		c, ok, err := s.Poll(ctx)
		if err != nil {
			return radio.Capture{}, err
		}
		if !ok {
			continue
		}
		if !filter(c.RSSI, s.Settings) {
			log.Debug().Int("rssi", c.RSSI).Str("payload", c.Hex()).Msg("reading outside rssi window")
			telemetry.Emit(s.Sink, telemetry.Event{
				Kind:      telemetry.KindRejected,
				Frequency: c.Frequency,
				RSSI:      c.RSSI,
				Payload:   c.Hex(),
			})
			continue
		}

		telemetry.Emit(s.Sink, telemetry.Event{
			Kind:      telemetry.KindCapture,
			Time:      c.Timestamp,
			Frequency: c.Frequency,
			RSSI:      c.RSSI,
			Payload:   c.Hex(),
		})
		return c, nil
	}
}

// Single returns the first genuine capture the Decider accepts. With no
// Decider the first genuine capture is returned.
func (s *Session) Single(ctx context.Context) (radio.Capture, error) {
	for {
		c, err := s.next(ctx)
		if err != nil {
			return radio.Capture{}, err
		}
		if s.Decide == nil {
			return c, nil
		}
		accept, err := s.Decide(c)
		if err != nil {
			return radio.Capture{}, errors.Wrap(err, "capture decision failed")
		}
		if accept {
			return c, nil
		}
		log.Info().Msg("capture discarded, listening again")
	}
}

// RollingPair returns the next two genuine captures in arrival order. A
// partial pair is discarded on cancellation or radio failure.
func (s *Session) RollingPair(ctx context.Context) ([2]radio.Capture, error) {
	var pair [2]radio.Capture
	for i := range pair {
		c, err := s.next(ctx)
		if err != nil {
			return [2]radio.Capture{}, errors.Wrapf(err, "rolling pair incomplete (%d of 2 captured)", i)
		}
		pair[i] = c
		log.Info().Int("index", i+1).Int("rssi", c.RSSI).Msg("rolling code captured")
	}
	return pair, nil
}

// Stream sends genuine captures to out until ctx is done or the radio
// fails. out is closed on return.
func (s *Session) Stream(ctx context.Context, out chan<- radio.Capture) error {
	defer close(out)
	for {
		c, err := s.next(ctx)
		if err != nil {
			return err
		}
		select {
		case out <- c:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
