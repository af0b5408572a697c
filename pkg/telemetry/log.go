package telemetry

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogging installs a console writer on the global logger and sets the
// level. An empty level means info.
func SetupLogging(level string, out io.Writer) error {
	if out == nil {
		out = os.Stderr
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"})

	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", level)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}

// LogSink writes events as structured log lines. Rejected readings and
// timeouts are not logged.
type LogSink struct {
	Logger zerolog.Logger
}

// NewLogSink returns a sink on the given logger
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{Logger: logger}
}

// Emit implements Sink
func (s *LogSink) Emit(e Event) {
	var ev *zerolog.Event
	switch e.Kind {
	case KindRejected, KindTimeout:
		return
	case KindScanStep:
		ev = s.Logger.Debug()
	default:
		ev = s.Logger.Info()
	}

	ev = ev.Str("event", string(e.Kind))
	if e.Session != "" {
		ev = ev.Str("session", e.Session)
	}
	if e.Frequency != 0 {
		ev = ev.Uint32("freq", e.Frequency)
	}
	if e.Kind == KindCapture {
		ev = ev.Int("rssi", e.RSSI)
	}
	if e.Payload != "" {
		ev = ev.Str("payload", e.Payload)
	}
	if e.Path != "" {
		ev = ev.Str("path", e.Path)
	}
	ev.Msg(e.message())
}

func (e Event) message() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case KindCapture:
		return "signal captured"
	case KindTransmit:
		return "transmission complete"
	case KindJamStart:
		return "jamming started"
	case KindJamStop:
		return "jamming stopped"
	case KindScanStep:
		return "scanning"
	case KindScanHit:
		return "a signal was found"
	case KindSaved:
		return "payload saved"
	}
	return string(e.Kind)
}
