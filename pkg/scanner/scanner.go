package scanner

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/herlein/rollcat/pkg/capture"
	"github.com/herlein/rollcat/pkg/telemetry"
)

// Scanner walks a capture session's radio across frequencies. Each step
// tunes, listens once for the session timeout and records anything heard.
type Scanner struct {
	Capture *capture.Session
	Sink    telemetry.Sink

	// GateRSSI drops readings the capture filter rejects
	GateRSSI bool
	// ValidateBand skips frequencies outside the CC1111 bands
	ValidateBand bool
}

// New returns a scanner listening for timeout on each step
func New(c *capture.Session, sink telemetry.Sink) *Scanner {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return &Scanner{Capture: c, Sink: sink}
}

// Sweep steps from start upward by interval until ctx is done
func (s *Scanner) Sweep(ctx context.Context, sess *Session, start, interval uint32) error {
	if interval == 0 {
		return ErrInvalidInterval
	}
	log.Info().Str("session", sess.ID.String()).Str("log", sess.Path).
		Uint32("start", start).Uint32("interval", interval).Msg("sweep started")

	for f := start; ; f += interval {
		if err := s.step(ctx, sess, f); err != nil {
			return err
		}
		if uint64(f)+uint64(interval) > math.MaxUint32 {
			return errors.Wrapf(ErrFrequencyOutOfRange, "sweep passed %d Hz", f)
		}
	}
}

// Known cycles freqs in order until ctx is done
func (s *Scanner) Known(ctx context.Context, sess *Session, freqs []uint32) error {
	if len(freqs) == 0 {
		return ErrNoFrequencies
	}
	log.Info().Str("session", sess.ID.String()).Str("log", sess.Path).
		Int("frequencies", len(freqs)).Msg("known-frequency scan started")

	for {
		for _, f := range freqs {
			if err := s.step(ctx, sess, f); err != nil {
				return err
			}
		}
	}
}

func (s *Scanner) step(ctx context.Context, sess *Session, f uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.ValidateBand && !IsValidFrequency(f) {
		log.Debug().Uint32("freq", f).Msg("outside CC1111 bands, skipped")
		return nil
	}

	if err := s.Capture.Port.SetFrequency(f); err != nil {
		return errors.Wrapf(err, "failed to tune to %d", f)
	}
	s.Capture.Frequency = f
	telemetry.Emit(s.Sink, telemetry.Event{
		Kind:      telemetry.KindScanStep,
		Session:   sess.ID.String(),
		Frequency: f,
	})

	c, ok, err := s.Capture.Poll(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if s.GateRSSI {
		filter := s.Capture.Filter
		if filter == nil {
			filter = capture.IsGenuine
		}
		if !filter(c.RSSI, s.Capture.Settings) {
			log.Debug().Uint32("freq", f).Int("rssi", c.RSSI).Msg("reading outside rssi window")
			return nil
		}
	}

	if err := sess.Record(f, c.Hex()); err != nil {
		return err
	}
	telemetry.Emit(s.Sink, telemetry.Event{
		Kind:      telemetry.KindScanHit,
		Session:   sess.ID.String(),
		Frequency: f,
		RSSI:      c.RSSI,
		Payload:   c.Hex(),
		Path:      sess.Path,
	})
	return nil
}
