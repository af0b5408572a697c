package telemetry

import (
	"encoding/json"
	"strconv"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultSubject is the subject prefix events are published under
const DefaultSubject = "rollcat.events"

// Publisher is the subset of *nats.Conn the sink needs
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes every event as JSON on <subject>.<kind>
type NATSSink struct {
	conn    Publisher
	subject string
}

// NewNATSSink wraps an existing connection
func NewNATSSink(conn Publisher, subject string) *NATSSink {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSSink{conn: conn, subject: subject}
}

// DialNATS connects to url and returns a sink plus the connection to close
func DialNATS(url, subject string) (*NATSSink, *nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("rollcat"))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to connect to NATS at %s", url)
	}
	log.Info().Str("url", url).Msg("connected to NATS")
	return NewNATSSink(nc, subject), nc, nil
}

// Subject returns the subject an event of kind k is published on
func (s *NATSSink) Subject(k Kind) string {
	return s.subject + "." + string(k)
}

// Emit implements Sink. Publish failures are logged, not returned.
func (s *NATSSink) Emit(e Event) {
	if e.Kind == KindTimeout || e.Kind == KindScanStep {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event")
		return
	}
	if err := s.conn.Publish(s.Subject(e.Kind), data); err != nil {
		log.Warn().Err(err).Str("subject", s.Subject(e.Kind)).Msg("failed to publish event")
	}
}

func formatHz(hz uint32) string {
	return strconv.FormatUint(uint64(hz), 10)
}
