package telemetry

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSinkCapture(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(zerolog.New(&buf))

	sink.Emit(Event{Kind: KindCapture, Frequency: 315000000, RSSI: -52, Payload: "aabb"})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "capture", line["event"])
	assert.Equal(t, float64(-52), line["rssi"])
	assert.Equal(t, "aabb", line["payload"])
	assert.Equal(t, float64(315000000), line["freq"])
	assert.Equal(t, "signal captured", line["message"])
}

func TestLogSinkSkipsRejected(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(zerolog.New(&buf))

	sink.Emit(Event{Kind: KindRejected, RSSI: -150, Payload: "00"})
	sink.Emit(Event{Kind: KindTimeout})

	assert.Zero(t, buf.Len())
}

func TestMetricsSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Emit(Event{Kind: KindCapture, RSSI: -40})
	m.Emit(Event{Kind: KindCapture, RSSI: -60})
	m.Emit(Event{Kind: KindRejected})
	m.Emit(Event{Kind: KindTransmit})
	m.Emit(Event{Kind: KindJamStart})
	m.Emit(Event{Kind: KindScanHit, Frequency: 433920000})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Captures.WithLabelValues("genuine")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Captures.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transmissions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JamActive))
	assert.Equal(t, -60.0, testutil.ToFloat64(m.LastRSSI))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScanHits.WithLabelValues("433920000")))

	m.Emit(Event{Kind: KindJamStop})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.JamActive))
}

type publishRecorder struct {
	subjects []string
	bodies   [][]byte
}

func (p *publishRecorder) Publish(subject string, data []byte) error {
	p.subjects = append(p.subjects, subject)
	p.bodies = append(p.bodies, data)
	return nil
}

func TestNATSSinkPublishesJSON(t *testing.T) {
	rec := &publishRecorder{}
	sink := NewNATSSink(rec, "")

	sink.Emit(Event{Kind: KindScanHit, Session: "abc", Frequency: 315000000, Payload: "ff00"})
	sink.Emit(Event{Kind: KindTimeout})

	require.Len(t, rec.subjects, 1)
	assert.Equal(t, "rollcat.events.scan_hit", rec.subjects[0])

	var got Event
	require.NoError(t, json.Unmarshal(rec.bodies[0], &got))
	assert.Equal(t, "abc", got.Session)
	assert.Equal(t, "ff00", got.Payload)
}

func TestMultiSkipsNil(t *testing.T) {
	var count int
	s := Multi(nil, SinkFunc(func(Event) { count++ }), nil)
	Emit(s, Event{Kind: KindTransmit})
	assert.Equal(t, 1, count)
}
