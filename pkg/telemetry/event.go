// Package telemetry carries capture and status events from the engine to
// operator-facing sinks: the console log, Prometheus metrics and NATS.
package telemetry

import (
	"time"
)

// Kind identifies an event
type Kind string

const (
	KindCapture  Kind = "capture"   // genuine capture kept by a session
	KindRejected Kind = "rejected"  // reading outside the RSSI window
	KindTimeout  Kind = "timeout"   // empty receive window
	KindTransmit Kind = "transmit"  // payload sent
	KindJamStart Kind = "jam_start" // jammer started
	KindJamStop  Kind = "jam_stop"  // jammer stopped
	KindScanStep Kind = "scan_step" // scanner tuned and listened once
	KindScanHit  Kind = "scan_hit"  // scanner logged a record
	KindSaved    Kind = "saved"     // payload written to a capture file
)

// Event is a single telemetry record
type Event struct {
	Kind      Kind      `json:"kind"`
	Time      time.Time `json:"time"`
	Session   string    `json:"session,omitempty"`
	Frequency uint32    `json:"frequency,omitempty"`
	RSSI      int       `json:"rssi,omitempty"`
	Payload   string    `json:"payload,omitempty"`
	Path      string    `json:"path,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// Sink receives events. Emit must not block for long; it is called from
// capture and jam loops.
type Sink interface {
	Emit(e Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(e Event)

// Emit calls f(e)
func (f SinkFunc) Emit(e Event) { f(e) }

type multi []Sink

func (m multi) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// Multi fans an event out to every non-nil sink
func Multi(sinks ...Sink) Sink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

// Discard drops every event
var Discard Sink = SinkFunc(func(Event) {})

// Emit stamps e with the current time when unset and sends it to s. A nil
// sink is treated as Discard.
func Emit(s Sink, e Event) {
	if s == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	s.Emit(e)
}
